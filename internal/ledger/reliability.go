package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lendledger/internal/domain/loan"
)

const (
	neutralScore = 50

	onTimeDelta  = 10
	lateDelta    = 5
	overdueDelta = -15
	activeDelta  = 1
)

// ReliabilityScore rates a counterparty in [0,100] from their repayment history.
// Names match case-insensitively and exactly. No history scores 50.
func ReliabilityScore(loans []loan.Loan, counterparty string, now time.Time) int {
	key := strings.ToLower(counterparty)
	score := neutralScore
	for i := range loans {
		l := &loans[i]
		if strings.ToLower(l.CounterpartyName) != key {
			continue
		}
		score += scoreDelta(l, now)
	}
	return clamp(score, 0, 100)
}

func scoreDelta(l *loan.Loan, now time.Time) int {
	switch l.ResolveStatus(now) {
	case loan.StatusSettled:
		if l.SettledOnTime() {
			return onTimeDelta
		}
		return lateDelta
	case loan.StatusOverdue:
		return overdueDelta
	default:
		return activeDelta
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandPoor      Band = "poor"
)

func ReliabilityBand(score int) Band {
	switch {
	case score >= 80:
		return BandExcellent
	case score >= 50:
		return BandGood
	case score >= 30:
		return BandFair
	default:
		return BandPoor
	}
}

// Counterparty summarises every loan with one person.
type Counterparty struct {
	Name          string          `json:"name"`
	Initials      string          `json:"initials"`
	LoanCount     int             `json:"loan_count"`
	Outstanding   int             `json:"outstanding"`
	TotalLent     decimal.Decimal `json:"total_lent"`
	TotalBorrowed decimal.Decimal `json:"total_borrowed"`
	Score         int             `json:"score"`
	Band          Band            `json:"band"`
}

// Counterparties groups loans by case-insensitive counterparty name, keeping
// the first spelling seen, sorted by name.
func Counterparties(loans []loan.Loan, now time.Time) []Counterparty {
	byKey := map[string]*Counterparty{}
	var order []string
	for i := range loans {
		l := &loans[i]
		key := strings.ToLower(l.CounterpartyName)
		c, ok := byKey[key]
		if !ok {
			c = &Counterparty{
				Name:          l.CounterpartyName,
				Initials:      Initials(l.CounterpartyName),
				TotalLent:     decimal.Zero,
				TotalBorrowed: decimal.Zero,
				Score:         neutralScore,
			}
			byKey[key] = c
			order = append(order, key)
		}
		c.LoanCount++
		if l.ResolveStatus(now) != loan.StatusSettled {
			c.Outstanding++
		}
		if l.Direction == loan.DirectionBorrowed {
			c.TotalBorrowed = c.TotalBorrowed.Add(l.Principal)
		} else {
			c.TotalLent = c.TotalLent.Add(l.Principal)
		}
		c.Score += scoreDelta(l, now)
	}

	sort.Strings(order)
	out := make([]Counterparty, 0, len(order))
	for _, key := range order {
		c := byKey[key]
		c.Score = clamp(c.Score, 0, 100)
		c.Band = ReliabilityBand(c.Score)
		out = append(out, *c)
	}
	return out
}
