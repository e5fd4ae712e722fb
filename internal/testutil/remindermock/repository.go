package remindermock

import (
	"context"
	"time"

	domain "lendledger/internal/domain/reminder"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies reminder.Repository.
type Repo struct {
	CreateFn               func(ctx context.Context, r *domain.Reminder) error
	SaveFn                 func(ctx context.Context, r *domain.Reminder) error
	ListByLoanIDFn         func(ctx context.Context, loanID uint64) ([]domain.Reminder, error)
	ListDueFn              func(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error)
	CountUpcomingByOwnerFn func(ctx context.Context, ownerID string, from, to time.Time) (int64, error)
	DisableByLoanIDFn      func(ctx context.Context, loanID uint64) error
	DeleteByLoanIDFn       func(ctx context.Context, loanID uint64) error
}

func (m *Repo) Create(ctx context.Context, r *domain.Reminder) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	return nil
}
func (m *Repo) Save(ctx context.Context, r *domain.Reminder) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, r)
	}
	return nil
}
func (m *Repo) ListByLoanID(ctx context.Context, loanID uint64) ([]domain.Reminder, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled
}
func (m *Repo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error) {
	if m.ListDueFn != nil {
		return m.ListDueFn(ctx, now, limit)
	}
	return nil, context.Canceled
}
func (m *Repo) CountUpcomingByOwner(ctx context.Context, ownerID string, from, to time.Time) (int64, error) {
	if m.CountUpcomingByOwnerFn != nil {
		return m.CountUpcomingByOwnerFn(ctx, ownerID, from, to)
	}
	return 0, context.Canceled
}
func (m *Repo) DisableByLoanID(ctx context.Context, loanID uint64) error {
	if m.DisableByLoanIDFn != nil {
		return m.DisableByLoanIDFn(ctx, loanID)
	}
	return nil
}
func (m *Repo) DeleteByLoanID(ctx context.Context, loanID uint64) error {
	if m.DeleteByLoanIDFn != nil {
		return m.DeleteByLoanIDFn(ctx, loanID)
	}
	return nil
}
