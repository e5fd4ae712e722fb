package loan

import (
	"time"

	"github.com/shopspring/decimal"

	"lendledger/internal/domain/account"
	domain "lendledger/internal/domain/loan"
	"lendledger/internal/ledger"
)

type CreateLoanInput struct {
	Direction         domain.Direction
	CounterpartyName  string
	CounterpartyEmail string
	CounterpartyPhone string
	Principal         decimal.Decimal
	Currency          string // empty means the plan default
	InterestRate      *decimal.Decimal
	DueAt             time.Time
	Notes             string
}

// Plan carries the deployment-wide plan settings.
type Plan struct {
	FreeActiveLoanLimit int
	DefaultCurrency     string
}

type LoanDTO struct {
	LoanID            string           `json:"loan_id"`
	Direction         string           `json:"direction"`
	CounterpartyName  string           `json:"counterparty_name"`
	CounterpartyEmail string           `json:"counterparty_email,omitempty"`
	CounterpartyPhone string           `json:"counterparty_phone,omitempty"`
	Principal         decimal.Decimal  `json:"principal"`
	PrincipalDisplay  string           `json:"principal_display"`
	Currency          string           `json:"currency"`
	InterestRate      *decimal.Decimal `json:"interest_rate,omitempty"`
	Status            string           `json:"status"` // resolved at read time
	DueAt             time.Time        `json:"due_at"`
	DueDisplay        string           `json:"due_display"`
	DaysUntilDue      int              `json:"days_until_due"`
	DaysOverdue       int              `json:"days_overdue"`
	SettledAt         *time.Time       `json:"settled_at,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

type LoanDetailDTO struct {
	LoanDTO
	Reliability     int         `json:"reliability"`
	ReliabilityBand ledger.Band `json:"reliability_band"`
}

type ListDTO struct {
	Filter  ledger.Filter `json:"filter"`
	Query   string        `json:"query,omitempty"`
	Count   int           `json:"count"`
	Version int64         `json:"version"`
	Items   []LoanDTO     `json:"items"`
}

type DashboardDTO struct {
	ledger.DashboardStats
	TotalLentDisplay     string                `json:"total_lent_display"`
	TotalBorrowedDisplay string                `json:"total_borrowed_display"`
	LentByMonth          []ledger.MonthTotal   `json:"lent_by_month"`
	Counterparties       []ledger.Counterparty `json:"counterparties"`
	UpcomingReminders    int64                 `json:"upcoming_reminders"`
	Tier                 account.Tier          `json:"tier"`
	Limits               account.Limits        `json:"limits"`
	Version              int64                 `json:"version"`
}

type ReliabilityDTO struct {
	Counterparty string      `json:"counterparty"`
	Score        int         `json:"score"`
	Band         ledger.Band `json:"band"`
}

// ImportResult reports a bulk import; rejected records are listed, not fatal.
type ImportResult struct {
	Imported int                  `json:"imported"`
	Rejected []ledger.RecordIssue `json:"rejected,omitempty"`
}

func toDTO(l *domain.Loan, now time.Time) LoanDTO {
	dto := LoanDTO{
		LoanID:            l.LoanID,
		Direction:         string(l.Direction),
		CounterpartyName:  l.CounterpartyName,
		CounterpartyEmail: l.CounterpartyEmail,
		CounterpartyPhone: l.CounterpartyPhone,
		Principal:         l.Principal,
		PrincipalDisplay:  ledger.FormatCurrency(l.Principal, l.Currency),
		Currency:          l.Currency,
		InterestRate:      l.InterestRate,
		Status:            string(l.ResolveStatus(now)),
		DueAt:             l.DueAt,
		DueDisplay:        ledger.FormatDate(l.DueAt),
		DaysOverdue:       ledger.DaysOverdue(l.DueAt, now),
		SettledAt:         l.SettledAt,
		Notes:             l.Notes,
		CreatedAt:         l.CreatedAt,
	}
	if l.ResolveStatus(now) != domain.StatusSettled {
		dto.DaysUntilDue = ledger.DaysUntilDue(l.DueAt, now)
	}
	if l.Status == domain.StatusSettled {
		dto.DaysOverdue = 0
	}
	return dto
}

func toDTOs(loans []domain.Loan, now time.Time) []LoanDTO {
	out := make([]LoanDTO, 0, len(loans))
	for i := range loans {
		out = append(out, toDTO(&loans[i], now))
	}
	return out
}
