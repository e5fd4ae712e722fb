// Package ledger holds the pure computations over a snapshot of an owner's
// loans. Nothing here reads a clock or touches storage; callers pass now.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"lendledger/internal/domain/loan"
)

// RecordIssue reports a record skipped by an aggregation.
type RecordIssue struct {
	Index  int    `json:"index"`
	LoanID string `json:"loan_id,omitempty"`
	Reason string `json:"reason"`
}

type CurrencyTotals struct {
	Lent     decimal.Decimal `json:"lent"`
	Borrowed decimal.Decimal `json:"borrowed"`
}

// DashboardStats is the rollup of one snapshot. TotalLent and TotalBorrowed sum
// principal across currencies; ByCurrency carries the split.
type DashboardStats struct {
	TotalLent     decimal.Decimal           `json:"total_lent"`
	TotalBorrowed decimal.Decimal           `json:"total_borrowed"`
	ActiveCount   int                       `json:"active_count"`
	OverdueCount  int                       `json:"overdue_count"`
	SettledCount  int                       `json:"settled_count"`
	ByCurrency    map[string]CurrencyTotals `json:"by_currency"`
	Invalid       []RecordIssue             `json:"invalid,omitempty"`
}

// Aggregate computes the dashboard rollup in a single pass. Overdue loans also
// count as active. Records failing validation are skipped and reported.
func Aggregate(loans []loan.Loan, now time.Time) DashboardStats {
	st := DashboardStats{
		TotalLent:     decimal.Zero,
		TotalBorrowed: decimal.Zero,
		ByCurrency:    map[string]CurrencyTotals{},
	}
	for i := range loans {
		l := &loans[i]
		if err := l.Validate(); err != nil {
			st.Invalid = append(st.Invalid, RecordIssue{Index: i, LoanID: l.LoanID, Reason: err.Error()})
			continue
		}

		ct, ok := st.ByCurrency[l.Currency]
		if !ok {
			ct = CurrencyTotals{Lent: decimal.Zero, Borrowed: decimal.Zero}
		}
		switch l.Direction {
		case loan.DirectionLent:
			st.TotalLent = st.TotalLent.Add(l.Principal)
			ct.Lent = ct.Lent.Add(l.Principal)
		case loan.DirectionBorrowed:
			st.TotalBorrowed = st.TotalBorrowed.Add(l.Principal)
			ct.Borrowed = ct.Borrowed.Add(l.Principal)
		}
		st.ByCurrency[l.Currency] = ct

		switch l.ResolveStatus(now) {
		case loan.StatusActive:
			st.ActiveCount++
		case loan.StatusOverdue:
			st.OverdueCount++
			st.ActiveCount++
		case loan.StatusSettled:
			st.SettledCount++
		}
	}
	return st
}
