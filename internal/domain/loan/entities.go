package loan

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Direction string

const (
	DirectionLent     Direction = "lent"
	DirectionBorrowed Direction = "borrowed"
)

func (d Direction) Valid() bool { return d == DirectionLent || d == DirectionBorrowed }

// Status is both the stored status and the resolved (effective) one.
// Only active and settled are written; overdue is derived from the due date.
type Status string

const (
	StatusActive  Status = "active"
	StatusOverdue Status = "overdue"
	StatusSettled Status = "settled"
)

var reCurrency = regexp.MustCompile(`^[A-Z]{3}$`)

// Table: loans
type Loan struct {
	ID                uint64           `gorm:"primaryKey;column:id" json:"-"`
	LoanID            string           `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	OwnerID           string           `gorm:"size:32;index:idx_loans_owner" json:"owner_id"`
	Direction         Direction        `gorm:"type:enum('lent','borrowed');not null" json:"direction"`
	CounterpartyName  string           `gorm:"size:120;not null" json:"counterparty_name"`
	CounterpartyEmail string           `gorm:"size:254" json:"counterparty_email,omitempty"`
	CounterpartyPhone string           `gorm:"size:32" json:"counterparty_phone,omitempty"`
	Principal         decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"principal"`
	Currency          string           `gorm:"type:char(3);not null" json:"currency"`
	InterestRate      *decimal.Decimal `gorm:"type:decimal(6,2)" json:"interest_rate,omitempty"`
	Status            Status           `gorm:"type:enum('active','overdue','settled');default:'active'" json:"status"`
	DueAt             time.Time        `gorm:"not null" json:"due_at"`
	SettledAt         *time.Time       `json:"settled_at,omitempty"`
	Notes             string           `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// Validate checks the record-level invariants. Failures wrap ErrInvalidLoan
// and name the offending field.
func (l *Loan) Validate() error {
	switch {
	case l.LoanID == "":
		return invalid("loan_id", "is required")
	case !l.Direction.Valid():
		return invalid("direction", fmt.Sprintf("unknown direction %q", l.Direction))
	case strings.TrimSpace(l.CounterpartyName) == "":
		return invalid("counterparty_name", "is required")
	case l.Principal.IsNegative():
		return invalid("principal", "must not be negative")
	case !reCurrency.MatchString(l.Currency):
		return invalid("currency", fmt.Sprintf("%q is not an ISO-4217 code", l.Currency))
	case l.DueAt.IsZero():
		return invalid("due_at", "is required")
	}
	switch l.Status {
	case StatusSettled:
		if l.SettledAt == nil {
			return invalid("settled_at", "is required once settled")
		}
	case StatusActive, StatusOverdue:
		if l.SettledAt != nil {
			return invalid("settled_at", "is only allowed on settled loans")
		}
	default:
		return invalid("status", fmt.Sprintf("unknown status %q", l.Status))
	}
	return nil
}

// Settle is the only state transition: active (or overdue) -> settled. It is terminal.
func (l *Loan) Settle(now time.Time) error {
	if l.Status == StatusSettled {
		return ErrAlreadySettled
	}
	at := now.UTC()
	l.Status = StatusSettled
	l.SettledAt = &at
	return nil
}

// SettledOnTime reports whether the loan was settled on or before its due date.
// A settled loan without a settlement time counts as late.
func (l *Loan) SettledOnTime() bool {
	return l.SettledAt != nil && !l.SettledAt.After(l.DueAt)
}

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidLoan, field, msg)
}
