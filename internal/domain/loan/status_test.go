package loan

import (
	"testing"
	"time"
)

func TestResolveStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	settledAt := now.Add(-48 * time.Hour)

	tests := []struct {
		name string
		loan Loan
		want Status
	}{
		{"active, due in future", Loan{Status: StatusActive, DueAt: now.Add(7 * 24 * time.Hour)}, StatusActive},
		{"active, due in past", Loan{Status: StatusActive, DueAt: now.Add(-time.Second)}, StatusOverdue},
		{"active, due exactly now", Loan{Status: StatusActive, DueAt: now}, StatusActive},
		{"settled, due in past", Loan{Status: StatusSettled, DueAt: now.Add(-10 * 24 * time.Hour), SettledAt: &settledAt}, StatusSettled},
		{"settled, due in future", Loan{Status: StatusSettled, DueAt: now.Add(10 * 24 * time.Hour), SettledAt: &settledAt}, StatusSettled},
		{"legacy stored overdue, not yet due", Loan{Status: StatusOverdue, DueAt: now.Add(time.Hour)}, StatusActive},
		{"legacy stored overdue, past due", Loan{Status: StatusOverdue, DueAt: now.Add(-time.Hour)}, StatusOverdue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loan.ResolveStatus(now); got != tt.want {
				t.Fatalf("ResolveStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveStatus_SettledIgnoresClock(t *testing.T) {
	due := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at := due
	l := Loan{Status: StatusSettled, DueAt: due, SettledAt: &at}
	for _, offset := range []time.Duration{-1000 * time.Hour, 0, time.Nanosecond, 1000 * time.Hour} {
		if got := l.ResolveStatus(due.Add(offset)); got != StatusSettled {
			t.Fatalf("offset %v: got %s, want settled", offset, got)
		}
	}
}

func TestOutstanding(t *testing.T) {
	if !(&Loan{Status: StatusActive}).Outstanding() {
		t.Fatal("active loan should be outstanding")
	}
	if !(&Loan{Status: StatusOverdue}).Outstanding() {
		t.Fatal("stored overdue loan should be outstanding")
	}
	if (&Loan{Status: StatusSettled}).Outstanding() {
		t.Fatal("settled loan should not be outstanding")
	}
}
