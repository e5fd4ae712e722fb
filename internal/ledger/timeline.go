package ledger

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/reminder"
)

const day = 24 * time.Hour

// DaysUntilDue is the number of days until due, rounded up. Negative once past due.
func DaysUntilDue(due, now time.Time) int {
	return int(math.Ceil(float64(due.Sub(now)) / float64(day)))
}

// DaysOverdue is the number of whole days past due, zero until then.
func DaysOverdue(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due) / day)
}

type MonthTotal struct {
	Month string          `json:"month"` // YYYY-MM
	Total decimal.Decimal `json:"total"`
}

// LentByMonth buckets lent principal by creation month, chronologically.
func LentByMonth(loans []loan.Loan) []MonthTotal {
	sums := map[string]decimal.Decimal{}
	for i := range loans {
		l := &loans[i]
		if l.Direction != loan.DirectionLent || l.CreatedAt.IsZero() {
			continue
		}
		m := l.CreatedAt.UTC().Format("2006-01")
		sums[m] = sums[m].Add(l.Principal)
	}
	out := make([]MonthTotal, 0, len(sums))
	for m, total := range sums {
		out = append(out, MonthTotal{Month: m, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// NextReminder returns when a reminder firing at from should fire again.
// Monthly keeps the day of month, clamped to the last day of shorter months.
// A once reminder has no next firing.
func NextReminder(freq reminder.Frequency, from time.Time) (time.Time, bool) {
	switch freq {
	case reminder.FrequencyDaily:
		return from.AddDate(0, 0, 1), true
	case reminder.FrequencyWeekly:
		return from.AddDate(0, 0, 7), true
	case reminder.FrequencyMonthly:
		y, m, d := from.Date()
		last := time.Date(y, m+2, 0, 0, 0, 0, 0, from.Location()).Day()
		if d > last {
			d = last
		}
		return time.Date(y, m+1, d, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location()), true
	default:
		return time.Time{}, false
	}
}

// AdvanceReminder moves next past now, skipping missed firings.
func AdvanceReminder(freq reminder.Frequency, next, now time.Time) (time.Time, bool) {
	for !next.After(now) {
		n, ok := NextReminder(freq, next)
		if !ok {
			return time.Time{}, false
		}
		next = n
	}
	return next, true
}
