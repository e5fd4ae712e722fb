package reminder

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, r *Reminder) error
	Save(ctx context.Context, r *Reminder) error

	// All reminders (enabled or not) attached to a loan, by schedule
	ListByLoanID(ctx context.Context, loanID uint64) ([]Reminder, error)
	// Enabled reminders with next_reminder_at <= now, oldest first
	ListDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error)
	// Enabled reminders firing in [from, to) for one owner
	CountUpcomingByOwner(ctx context.Context, ownerID string, from, to time.Time) (int64, error)

	DisableByLoanID(ctx context.Context, loanID uint64) error
	DeleteByLoanID(ctx context.Context, loanID uint64) error
}
