// Package worker runs the background reminder dispatch loop.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/reminder"
	"lendledger/internal/infrastructure/metrics"
	"lendledger/internal/ledger"
)

const noticeTitle = "LendLedger Reminder"

// a failed reminder is retried no sooner than this, so it cannot hold the
// head of the due queue
const retryBackoff = 5 * time.Minute

type NoticePublisher interface {
	PublishNotice(ctx context.Context, n reminder.Notice) error
}

type BatchResult struct {
	Sent    int
	Skipped int
	Failed  int
}

// ReminderDispatcher publishes due reminders and moves their schedule forward.
type ReminderDispatcher struct {
	loans     loan.Repository
	reminders reminder.Repository
	pub       NoticePublisher
	interval  time.Duration
	batch     int
	now       func() time.Time
	log       *slog.Logger
}

func NewReminderDispatcher(loans loan.Repository, reminders reminder.Repository, pub NoticePublisher, interval time.Duration, batch int) *ReminderDispatcher {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &ReminderDispatcher{
		loans:     loans,
		reminders: reminders,
		pub:       pub,
		interval:  interval,
		batch:     batch,
		now:       func() time.Time { return time.Now().UTC() },
		log:       slog.Default().With("component", "reminder_dispatcher"),
	}
}

func (d *ReminderDispatcher) WithClock(now func() time.Time) *ReminderDispatcher {
	d.now = now
	return d
}

// Run dispatches once immediately and then on every tick until ctx ends.
func (d *ReminderDispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Info("reminder dispatcher started", "interval", d.interval, "batch", d.batch)
	for {
		res, err := d.RunOnce(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			d.log.Error("reminder batch failed", "err", err)
		case res.Sent+res.Skipped+res.Failed > 0:
			d.log.Info("reminder batch done", "sent", res.Sent, "skipped", res.Skipped, "failed", res.Failed)
		}

		select {
		case <-ctx.Done():
			d.log.Info("reminder dispatcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce handles one batch of due reminders. A reminder whose loan lookup
// or publish fails stays enabled and is pushed back by retryBackoff.
func (d *ReminderDispatcher) RunOnce(ctx context.Context) (BatchResult, error) {
	var res BatchResult
	start := time.Now()
	defer func() { metrics.ReminderBatchDuration.Observe(time.Since(start).Seconds()) }()

	now := d.now()
	due, err := d.reminders.ListDue(ctx, now, d.batch)
	if err != nil {
		return res, err
	}

	for i := range due {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		rem := &due[i]

		l, err := d.loans.GetByID(ctx, rem.LoanID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && l.ResolveStatus(now) == loan.StatusSettled):
			rem.Enabled = false
			if err := d.reminders.Save(ctx, rem); err != nil {
				d.log.Error("disable reminder failed", "reminder_id", rem.ReminderID, "err", err)
			}
			res.Skipped++
			metrics.RemindersDispatched.WithLabelValues("skipped").Inc()
			continue
		case err != nil:
			d.log.Error("load loan for reminder failed", "reminder_id", rem.ReminderID, "err", err)
			d.deferRetry(ctx, rem, now)
			res.Failed++
			metrics.RemindersDispatched.WithLabelValues("failed").Inc()
			continue
		}

		if err := d.pub.PublishNotice(ctx, buildNotice(rem, l, now)); err != nil {
			d.log.Error("publish reminder failed", "reminder_id", rem.ReminderID, "err", err)
			d.deferRetry(ctx, rem, now)
			res.Failed++
			metrics.RemindersDispatched.WithLabelValues("failed").Inc()
			continue
		}

		sent := now
		rem.LastSentAt = &sent
		if next, ok := ledger.AdvanceReminder(rem.Frequency, rem.NextReminderAt, now); ok {
			rem.NextReminderAt = next
		} else {
			rem.Enabled = false
		}
		if err := d.reminders.Save(ctx, rem); err != nil {
			// already published; the reminder may fire twice
			d.log.Error("save reminder after send failed", "reminder_id", rem.ReminderID, "err", err)
		}
		res.Sent++
		metrics.RemindersDispatched.WithLabelValues("sent").Inc()
	}
	return res, nil
}

func (d *ReminderDispatcher) deferRetry(ctx context.Context, rem *reminder.Reminder, now time.Time) {
	rem.NextReminderAt = now.Add(retryBackoff)
	if err := d.reminders.Save(ctx, rem); err != nil {
		d.log.Error("defer failed reminder", "reminder_id", rem.ReminderID, "err", err)
	}
}

func buildNotice(rem *reminder.Reminder, l *loan.Loan, now time.Time) reminder.Notice {
	amount := ledger.FormatCurrency(l.Principal, l.Currency)
	return reminder.Notice{
		NoticeID:     uuid.NewString(),
		ReminderID:   rem.ReminderID,
		LoanID:       l.LoanID,
		OwnerID:      rem.OwnerID,
		Counterparty: l.CounterpartyName,
		Email:        l.CounterpartyEmail,
		Phone:        l.CounterpartyPhone,
		Tone:         rem.Tone,
		Title:        noticeTitle,
		Body:         ledger.DueMessage(l.CounterpartyName, amount, l.DueAt, now),
		Draft:        ledger.ReminderMessage(rem, l),
		DueAt:        l.DueAt,
		SentAt:       now,
	}
}

// LogDeliveries is the notice consumer: delivery to devices belongs to the
// push provider, so the worker only records what went out.
func LogDeliveries(log *slog.Logger) func(context.Context, *reminder.Notice) error {
	return func(ctx context.Context, n *reminder.Notice) error {
		log.InfoContext(ctx, "reminder delivered",
			"notice_id", n.NoticeID,
			"reminder_id", n.ReminderID,
			"loan_id", n.LoanID,
			"owner_id", n.OwnerID,
			"tone", n.Tone,
			"body", n.Body)
		return nil
	}
}
