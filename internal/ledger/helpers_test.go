package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"lendledger/internal/domain/loan"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

var seq int

func mk(dir loan.Direction, name, amount string, due time.Duration) loan.Loan {
	seq++
	return loan.Loan{
		LoanID:           fmt.Sprintf("%032d", seq),
		Direction:        dir,
		CounterpartyName: name,
		Principal:        decimal.RequireFromString(amount),
		Currency:         "USD",
		Status:           loan.StatusActive,
		DueAt:            now.Add(due),
		CreatedAt:        now.Add(-days(30)),
	}
}

func settled(l loan.Loan, at time.Duration) loan.Loan {
	ts := now.Add(at)
	l.Status = loan.StatusSettled
	l.SettledAt = &ts
	return l
}

// the three demo loans
func scenario() []loan.Loan {
	return []loan.Loan{
		mk(loan.DirectionLent, "John Doe", "1500", days(7)),
		mk(loan.DirectionBorrowed, "Jane Smith", "2000", -days(2)),
		settled(mk(loan.DirectionLent, "Bob Johnson", "500", -days(10)), -days(5)),
	}
}
