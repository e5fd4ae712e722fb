package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lendledger/internal/domain/loan"
)

var ErrUnknownFilter = errors.New("unknown filter")

type Filter string

// active is every outstanding loan (overdue included); pending is only the
// ones not yet due.
const (
	FilterAll      Filter = "all"
	FilterLent     Filter = "lent"
	FilterBorrowed Filter = "borrowed"
	FilterActive   Filter = "active"
	FilterPending  Filter = "pending"
	FilterOverdue  Filter = "overdue"
	FilterSettled  Filter = "settled"
)

var filters = []Filter{FilterAll, FilterLent, FilterBorrowed, FilterActive, FilterPending, FilterOverdue, FilterSettled}

// ParseFilter accepts user input; empty means all.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
}

// VisibleLoans keeps the loans that match the filter and whose counterparty
// name contains query (case-insensitive). The query is matched as given,
// whitespace included; only an empty query matches every name. Input order
// is preserved and the input slice is never modified.
func VisibleLoans(loans []loan.Loan, f Filter, query string, now time.Time) []loan.Loan {
	q := strings.ToLower(query)
	out := make([]loan.Loan, 0, len(loans))
	for i := range loans {
		l := &loans[i]
		if !f.matches(l, now) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(l.CounterpartyName), q) {
			continue
		}
		out = append(out, *l)
	}
	return out
}

func (f Filter) matches(l *loan.Loan, now time.Time) bool {
	switch f {
	case FilterLent:
		return l.Direction == loan.DirectionLent
	case FilterBorrowed:
		return l.Direction == loan.DirectionBorrowed
	case FilterActive:
		return l.ResolveStatus(now) != loan.StatusSettled
	case FilterPending:
		return l.ResolveStatus(now) == loan.StatusActive
	case FilterOverdue:
		return l.ResolveStatus(now) == loan.StatusOverdue
	case FilterSettled:
		return l.ResolveStatus(now) == loan.StatusSettled
	default:
		return true
	}
}
