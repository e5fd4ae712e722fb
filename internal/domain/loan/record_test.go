package loan

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFromRecord_Valid(t *testing.T) {
	raw := `{
		"id": "loan-1",
		"type": "lent",
		"contact_name": " John Doe ",
		"amount": 1500,
		"currency": "usd",
		"due_date": "2026-05-01T00:00:00Z",
		"created_date": "2026-04-01",
		"status": "active",
		"notes": "For car repair"
	}`
	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	owner := strings.Repeat("o", 32)
	l, err := FromRecord(r, owner)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if l.LoanID != "loan-1" || l.OwnerID != owner || l.Direction != DirectionLent {
		t.Fatalf("unexpected identity fields: %+v", l)
	}
	if l.CounterpartyName != "John Doe" || l.Currency != "USD" {
		t.Fatalf("fields not normalised: %q %q", l.CounterpartyName, l.Currency)
	}
	if l.Principal.String() != "1500" {
		t.Fatalf("principal = %s", l.Principal)
	}
	if !l.DueAt.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("due = %v", l.DueAt)
	}
	if !l.CreatedAt.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("created = %v", l.CreatedAt)
	}
}

func TestFromRecord_QuotedAmountAndSettled(t *testing.T) {
	raw := `{"id":"loan-3","type":"lent","contact_name":"Bob","amount":"500.25","currency":"INR",
		"due_date":"2026-01-10","status":"settled","settled_date":"2026-01-05T10:00:00+07:00"}`
	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	l, err := FromRecord(r, "")
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if l.Status != StatusSettled || l.SettledAt == nil {
		t.Fatalf("expected settled with date, got %+v", l)
	}
	if l.SettledAt.Location() != time.UTC || l.SettledAt.Hour() != 3 {
		t.Fatalf("settled_at not converted to UTC: %v", l.SettledAt)
	}
	if l.Principal.StringFixed(2) != "500.25" {
		t.Fatalf("principal = %s", l.Principal)
	}
}

func TestFromRecord_LegacyOverdueIsNormalised(t *testing.T) {
	amt := mustDecimal(t, "2000")
	l, err := FromRecord(Record{
		ID: "loan-2", Type: "borrowed", ContactName: "Jane", Amount: &amt,
		Currency: "USD", DueDate: "2026-02-01", Status: "overdue",
	}, "")
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if l.Status != StatusActive {
		t.Fatalf("stored status = %s, want active", l.Status)
	}
	if got := l.ResolveStatus(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)); got != StatusOverdue {
		t.Fatalf("resolved = %s, want overdue", got)
	}
}

func TestFromRecord_FailsFast(t *testing.T) {
	amt := mustDecimal(t, "10")
	neg := mustDecimal(t, "-10")
	base := func() Record {
		return Record{ID: "x", Type: "lent", ContactName: "A", Amount: &amt, Currency: "USD", DueDate: "2026-02-01", Status: "active"}
	}
	tests := []struct {
		name   string
		mutate func(r *Record)
		field  string
	}{
		{"missing id", func(r *Record) { r.ID = " " }, "id"},
		{"missing amount", func(r *Record) { r.Amount = nil }, "amount"},
		{"negative amount", func(r *Record) { r.Amount = &neg }, "principal"},
		{"missing due", func(r *Record) { r.DueDate = "" }, "due_date"},
		{"bad due", func(r *Record) { r.DueDate = "next tuesday" }, "due_date"},
		{"bad created", func(r *Record) { r.CreatedDate = "yesterday" }, "created_date"},
		{"bad type", func(r *Record) { r.Type = "gift" }, "direction"},
		{"bad status", func(r *Record) { r.Status = "archived" }, "status"},
		{"bad settled date", func(r *Record) { r.Status = "settled"; r.SettledDate = "soon" }, "settled_date"},
		{"settled without date", func(r *Record) { r.Status = "settled" }, "settled_at"},
		{"missing currency", func(r *Record) { r.Currency = "" }, "currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base()
			tt.mutate(&r)
			_, err := FromRecord(r, "")
			if !errors.Is(err, ErrInvalidLoan) {
				t.Fatalf("want ErrInvalidLoan, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Fatalf("error %q does not name %q", err, tt.field)
			}
		})
	}
}
