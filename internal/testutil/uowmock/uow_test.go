package uowmock

import (
	"context"
	"errors"
	"testing"

	"lendledger/internal/domain/account"
	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/uow"
	"lendledger/internal/testutil/accountmock"
	"lendledger/internal/testutil/loanmock"
	"lendledger/internal/testutil/remindermock"
)

func TestUoW_WithinTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	rems := &remindermock.Repo{}
	repos := uow.Repos{Loans: loans, Reminders: rems}

	innerCalled := false
	m := &UoW{
		WithinTxFn: func(gotCtx context.Context, fn func(r uow.Repos) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinTx: ctx mismatch")
			}
			if fn == nil {
				t.Fatalf("WithinTx: fn is nil")
			}
			// simulate transaction body
			return fn(repos)
		},
	}

	err := m.WithinTx(ctx, func(r uow.Repos) error {
		innerCalled = true
		if r.Loans != loans || r.Reminders != rems {
			t.Fatalf("WithinTx: repos not forwarded correctly")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinTx: inner fn not called")
	}
}

func TestUoW_WithinTx_PropagatesError(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("boom")

	m := &UoW{
		WithinTxFn: func(context.Context, func(uow.Repos) error) error {
			return sentinel
		},
	}
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_WithinTx_Default_Unimplemented(t *testing.T) {
	ctx := context.Background()
	m := &UoW{} // no funcs set
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinTx default: want errUnimplemented, got %v", err)
	}
}

func TestUoW_WithinLoanTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	rems := &remindermock.Repo{}
	repos := uow.Repos{Loans: loans, Reminders: rems}
	lock := &loan.Loan{ID: 7, LoanID: "LN-7"}

	innerCalled := false
	m := &UoW{
		WithinLoanTxFn: func(gotCtx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinLoanTx: ctx mismatch")
			}
			if loanID != "LN-7" {
				t.Fatalf("WithinLoanTx: loanID mismatch, got %s", loanID)
			}
			return fn(repos, lock)
		},
	}

	err := m.WithinLoanTx(ctx, "LN-7", func(r uow.Repos, l *loan.Loan) error {
		innerCalled = true
		if r.Loans != loans || r.Reminders != rems {
			t.Fatalf("WithinLoanTx: repos not forwarded")
		}
		if l != lock || l.LoanID != "LN-7" {
			t.Fatalf("WithinLoanTx: loan not forwarded correctly: %+v", l)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinLoanTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinLoanTx: inner fn not called")
	}
}

func TestUoW_WithinLoanTx_PropagatesError(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("stop")

	m := &UoW{
		WithinLoanTxFn: func(context.Context, string, func(uow.Repos, *loan.Loan) error) error {
			return sentinel
		},
	}
	if err := m.WithinLoanTx(ctx, "LN-X", func(uow.Repos, *loan.Loan) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinLoanTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_Default_Unimplemented_WithinLoanTx(t *testing.T) {
	ctx := context.Background()
	m := &UoW{} // no funcs set
	if err := m.WithinLoanTx(ctx, "LN-X", func(uow.Repos, *loan.Loan) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinLoanTx default: want errUnimplemented, got %v", err)
	}
}

func TestUoW_FluentSetters_And_Reset(t *testing.T) {
	m := New()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil || m.WithinOwnerTxFn != nil {
		t.Fatalf("New should start with nil funcs")
	}

	// set via fluent setters
	m.WithWithinTx(func(context.Context, func(uow.Repos) error) error { return nil }).
		WithWithinLoanTx(func(context.Context, string, func(uow.Repos, *loan.Loan) error) error { return nil }).
		WithWithinOwnerTx(func(context.Context, string, func(uow.Repos, *account.Account) error) error { return nil })

	if m.WithinTxFn == nil || m.WithinLoanTxFn == nil || m.WithinOwnerTxFn == nil {
		t.Fatalf("fluent setters didn't assign funcs")
	}

	// reset clears funcs
	m.Reset()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil {
		t.Fatalf("Reset should clear function fields")
	}
}

func TestPassthrough_LocksLoanFirst(t *testing.T) {
	ctx := context.Background()
	locked := &loan.Loan{ID: 3, LoanID: "LN-3"}
	loans := &loanmock.Repo{
		GetByLoanIDForUpdateFn: func(_ context.Context, id string) (*loan.Loan, error) {
			if id != "LN-3" {
				t.Fatalf("unexpected loan id %s", id)
			}
			return locked, nil
		},
	}
	m := Passthrough(uow.Repos{Loans: loans, Reminders: &remindermock.Repo{}})

	var got *loan.Loan
	if err := m.WithinLoanTx(ctx, "LN-3", func(_ uow.Repos, l *loan.Loan) error { got = l; return nil }); err != nil {
		t.Fatalf("WithinLoanTx: %v", err)
	}
	if got != locked {
		t.Fatalf("locked loan not forwarded")
	}

	// lookup failure short-circuits the body
	m = Passthrough(uow.Repos{Loans: &loanmock.Repo{}})
	err := m.WithinLoanTx(ctx, "LN-4", func(uow.Repos, *loan.Loan) error {
		t.Fatal("body must not run")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestPassthrough_LocksOwnerAccount(t *testing.T) {
	ctx := context.Background()
	var lockedFor string
	accts := &accountmock.Repo{
		GetByOwnerIDForUpdateFn: func(_ context.Context, ownerID string) (*account.Account, error) {
			lockedFor = ownerID
			return &account.Account{OwnerID: ownerID, Tier: account.TierPremium}, nil
		},
	}
	m := Passthrough(uow.Repos{Loans: &loanmock.Repo{}, Accounts: accts})

	var got *account.Account
	if err := m.WithinOwnerTx(ctx, "owner-1", func(_ uow.Repos, a *account.Account) error { got = a; return nil }); err != nil {
		t.Fatalf("WithinOwnerTx: %v", err)
	}
	if lockedFor != "owner-1" || got == nil || got.Tier != account.TierPremium {
		t.Fatalf("locked account not forwarded: locked=%q got=%+v", lockedFor, got)
	}

	// no account repo: everyone is free
	m = Passthrough(uow.Repos{Loans: &loanmock.Repo{}})
	if err := m.WithinOwnerTx(ctx, "owner-2", func(_ uow.Repos, a *account.Account) error { got = a; return nil }); err != nil {
		t.Fatalf("WithinOwnerTx: %v", err)
	}
	if got.OwnerID != "owner-2" || got.Tier != account.TierFree {
		t.Fatalf("want free account, got %+v", got)
	}

	// lookup failure short-circuits the body
	m = Passthrough(uow.Repos{Accounts: &accountmock.Repo{}})
	err := m.WithinOwnerTx(ctx, "owner-3", func(uow.Repos, *account.Account) error {
		t.Fatal("body must not run")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
