package uowmock

import (
	"context"
	"errors"

	"lendledger/internal/domain/account"
	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn     func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinLoanTxFn  func(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error
	WithinOwnerTxFn func(ctx context.Context, ownerID string, fn func(r uow.Repos, a *account.Account) error) error
}

// Convenience fluent setters
func New() *UoW { return &UoW{} }
func (m *UoW) WithWithinTx(fn func(context.Context, func(uow.Repos) error) error) *UoW {
	m.WithinTxFn = fn
	return m
}
func (m *UoW) WithWithinLoanTx(fn func(context.Context, string, func(uow.Repos, *loan.Loan) error) error) *UoW {
	m.WithinLoanTxFn = fn
	return m
}
func (m *UoW) WithWithinOwnerTx(fn func(context.Context, string, func(uow.Repos, *account.Account) error) error) *UoW {
	m.WithinOwnerTxFn = fn
	return m
}
func (m *UoW) Reset() { *m = UoW{} }

// Methods implementing UnitOfWork
func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}
func (m *UoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	if m.WithinLoanTxFn != nil {
		return m.WithinLoanTxFn(ctx, loanID, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinOwnerTx(ctx context.Context, ownerID string, fn func(r uow.Repos, a *account.Account) error) error {
	if m.WithinOwnerTxFn != nil {
		return m.WithinOwnerTxFn(ctx, ownerID, fn)
	}
	return errUnimplemented
}

// Passthrough runs transaction bodies directly against repos. WithinLoanTx
// resolves the loan through repos.Loans.GetByLoanIDForUpdate the way the
// gorm implementation does; WithinOwnerTx does the same through
// repos.Accounts, or hands over a free account when repos.Accounts is nil.
func Passthrough(repos uow.Repos) *UoW {
	return &UoW{
		WithinTxFn: func(_ context.Context, fn func(uow.Repos) error) error {
			return fn(repos)
		},
		WithinLoanTxFn: func(ctx context.Context, loanID string, fn func(uow.Repos, *loan.Loan) error) error {
			l, err := repos.Loans.GetByLoanIDForUpdate(ctx, loanID)
			if err != nil {
				return err
			}
			return fn(repos, l)
		},
		WithinOwnerTxFn: func(ctx context.Context, ownerID string, fn func(uow.Repos, *account.Account) error) error {
			if repos.Accounts == nil {
				return fn(repos, &account.Account{OwnerID: ownerID, Tier: account.TierFree})
			}
			a, err := repos.Accounts.GetByOwnerIDForUpdate(ctx, ownerID)
			if err != nil {
				return err
			}
			return fn(repos, a)
		},
	}
}
