package loan

import "time"

// ResolveStatus derives the effective status at now. Settlement is sticky;
// otherwise the loan is overdue strictly after its due instant, so now == DueAt
// is still active.
func (l *Loan) ResolveStatus(now time.Time) Status {
	if l.Status == StatusSettled {
		return StatusSettled
	}
	if now.After(l.DueAt) {
		return StatusOverdue
	}
	return StatusActive
}

// Outstanding reports whether the loan still represents open exposure.
func (l *Loan) Outstanding() bool { return l.Status != StatusSettled }

// ResolveStatus is the function form of (*Loan).ResolveStatus.
func ResolveStatus(l *Loan, now time.Time) Status { return l.ResolveStatus(now) }
