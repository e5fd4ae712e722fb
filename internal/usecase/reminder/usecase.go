package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	domainLoan "lendledger/internal/domain/loan"
	domainReminder "lendledger/internal/domain/reminder"
	"lendledger/internal/domain/uow"
	"lendledger/internal/ledger"
	"lendledger/pkg/id"
)

type Usecase struct {
	loanRepo        domainLoan.Repository
	reminderRepo    domainReminder.Repository
	uow             uow.UnitOfWork
	defaultCurrency string
}

// NewUsecase: pass both repos and a UoW for tx flows.
func NewUsecase(loans domainLoan.Repository, reminders domainReminder.Repository, tx uow.UnitOfWork) *Usecase {
	return &Usecase{loanRepo: loans, reminderRepo: reminders, uow: tx, defaultCurrency: "INR"}
}

func (u *Usecase) WithDefaultCurrency(code string) *Usecase {
	if code != "" {
		u.defaultCurrency = strings.ToUpper(code)
	}
	return u
}

// Schedule attaches a reminder to an unsettled loan.
func (u *Usecase) Schedule(ctx context.Context, ownerID, loanID string, in ScheduleInput, now time.Time) (*ReminderDTO, error) {
	if !in.Frequency.Valid() {
		return nil, fmt.Errorf("%w: unknown frequency %q", domainReminder.ErrInvalidInput, in.Frequency)
	}
	if !in.Tone.Valid() {
		return nil, fmt.Errorf("%w: unknown tone %q", domainReminder.ErrInvalidInput, in.Tone)
	}
	if u.uow == nil {
		return nil, errors.New("schedule requires a unit of work")
	}
	var dto *ReminderDTO

	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if l.OwnerID != ownerID {
			return domainLoan.ErrNotFound
		}
		// settled loans do not get reminded
		if l.ResolveStatus(now) == domainLoan.StatusSettled {
			return domainReminder.ErrLoanSettled
		}

		start := in.StartAt
		if start.IsZero() {
			start = now
		}
		rem := &domainReminder.Reminder{
			ReminderID:     id.NewID32(),
			LoanID:         l.ID, // numeric FK
			OwnerID:        ownerID,
			Frequency:      in.Frequency,
			Tone:           in.Tone,
			NextReminderAt: start.UTC(),
			Enabled:        true,
			CustomMessage:  strings.TrimSpace(in.CustomMessage),
		}
		if err := r.Reminders.Create(ctx, rem); err != nil {
			return err
		}
		d := toDTO(rem, l)
		dto = &d
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainLoan.ErrNotFound
		}
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) List(ctx context.Context, ownerID, loanID string) ([]ReminderDTO, error) {
	l, err := u.loanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainLoan.ErrNotFound
		}
		return nil, err
	}
	if l.OwnerID != ownerID {
		return nil, domainLoan.ErrNotFound
	}
	rems, err := u.reminderRepo.ListByLoanID(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	out := make([]ReminderDTO, 0, len(rems))
	for i := range rems {
		out = append(out, toDTO(&rems[i], l))
	}
	return out, nil
}

// Preview renders a reminder without storing anything.
func (u *Usecase) Preview(in PreviewInput) PreviewDTO {
	tone := in.Tone
	if !tone.Valid() {
		tone = domainReminder.ToneFriendly
	}
	amount := ""
	if in.Amount != nil {
		cur := in.Currency
		if cur == "" {
			cur = u.defaultCurrency
		}
		amount = ledger.FormatCurrency(*in.Amount, cur)
	}
	return PreviewDTO{Tone: tone, Message: ledger.ReminderPreview(tone, in.CounterpartyName, amount)}
}

func toDTO(rem *domainReminder.Reminder, l *domainLoan.Loan) ReminderDTO {
	return ReminderDTO{
		ReminderID:     rem.ReminderID,
		LoanID:         l.LoanID,
		Frequency:      rem.Frequency,
		Tone:           rem.Tone,
		NextReminderAt: rem.NextReminderAt,
		Enabled:        rem.Enabled,
		CustomMessage:  rem.CustomMessage,
		LastSentAt:     rem.LastSentAt,
		Message:        ledger.ReminderMessage(rem, l),
	}
}
