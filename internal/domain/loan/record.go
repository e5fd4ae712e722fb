package loan

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is the loan row as the hosted backend exports it (snake_case, string
// dates). FromRecord is the only way a Record becomes a Loan.
type Record struct {
	ID           string           `json:"id"`
	Type         string           `json:"type"`
	ContactName  string           `json:"contact_name"`
	ContactEmail string           `json:"contact_email,omitempty"`
	ContactPhone string           `json:"contact_phone,omitempty"`
	Amount       *decimal.Decimal `json:"amount"`
	Currency     string           `json:"currency"`
	DueDate      string           `json:"due_date"`
	CreatedDate  string           `json:"created_date,omitempty"`
	Status       string           `json:"status"`
	SettledDate  string           `json:"settled_date,omitempty"`
	InterestRate *decimal.Decimal `json:"interest_rate,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}

// accepted timestamp layouts, most specific first
var recordLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", time.DateOnly}

// FromRecord maps and validates a backend row. It fails fast on the first
// missing or malformed required field; errors wrap ErrInvalidLoan.
// A legacy stored "overdue" status is normalised to active.
func FromRecord(r Record, ownerID string) (*Loan, error) {
	if strings.TrimSpace(r.ID) == "" {
		return nil, invalid("id", "is required")
	}
	if r.Amount == nil {
		return nil, invalid("amount", "is required")
	}
	due, err := parseRecordTime(r.DueDate)
	if err != nil {
		return nil, invalid("due_date", err.Error())
	}

	l := &Loan{
		LoanID:            strings.TrimSpace(r.ID),
		OwnerID:           ownerID,
		Direction:         Direction(strings.ToLower(strings.TrimSpace(r.Type))),
		CounterpartyName:  strings.TrimSpace(r.ContactName),
		CounterpartyEmail: strings.TrimSpace(r.ContactEmail),
		CounterpartyPhone: strings.TrimSpace(r.ContactPhone),
		Principal:         *r.Amount,
		Currency:          strings.ToUpper(strings.TrimSpace(r.Currency)),
		InterestRate:      r.InterestRate,
		DueAt:             due,
		Notes:             r.Notes,
	}

	if r.CreatedDate != "" {
		created, err := parseRecordTime(r.CreatedDate)
		if err != nil {
			return nil, invalid("created_date", err.Error())
		}
		l.CreatedAt = created
	}

	switch Status(strings.ToLower(strings.TrimSpace(r.Status))) {
	case StatusActive, StatusOverdue:
		l.Status = StatusActive
	case StatusSettled:
		l.Status = StatusSettled
	default:
		return nil, invalid("status", fmt.Sprintf("unknown status %q", r.Status))
	}

	if r.SettledDate != "" {
		settled, err := parseRecordTime(r.SettledDate)
		if err != nil {
			return nil, invalid("settled_date", err.Error())
		}
		l.SettledAt = &settled
	}

	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func parseRecordTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("is required")
	}
	for _, layout := range recordLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", raw)
}
