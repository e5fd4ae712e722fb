package uow

import (
	"context"

	"lendledger/internal/domain/account"
	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/reminder"
)

// domain/uow/uow.go
type Repos struct {
	Loans     loan.Repository
	Reminders reminder.Repository
	Accounts  account.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
	// lock the owner's account row first; plan limits are checked under it
	WithinOwnerTx(ctx context.Context, ownerID string, fn func(r Repos, a *account.Account) error) error
}
