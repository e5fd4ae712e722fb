package reminder

import (
	"time"

	"github.com/shopspring/decimal"

	domain "lendledger/internal/domain/reminder"
)

type ScheduleInput struct {
	Frequency     domain.Frequency
	Tone          domain.Tone
	StartAt       time.Time // zero means fire on the next dispatcher tick
	CustomMessage string
}

type PreviewInput struct {
	Tone             domain.Tone
	CounterpartyName string
	Amount           *decimal.Decimal // nil renders a placeholder
	Currency         string
}

type ReminderDTO struct {
	ReminderID     string           `json:"reminder_id"`
	LoanID         string           `json:"loan_id"` // public id
	Frequency      domain.Frequency `json:"frequency"`
	Tone           domain.Tone      `json:"tone"`
	NextReminderAt time.Time        `json:"next_reminder_at"`
	Enabled        bool             `json:"enabled"`
	CustomMessage  string           `json:"custom_message,omitempty"`
	LastSentAt     *time.Time       `json:"last_sent_at,omitempty"`
	Message        string           `json:"message"`
}

type PreviewDTO struct {
	Tone    domain.Tone `json:"tone"`
	Message string      `json:"message"`
}
