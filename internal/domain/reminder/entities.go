package reminder

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("reminder not found")
	ErrLoanSettled  = errors.New("cannot schedule reminders on a settled loan")
	ErrInvalidInput = errors.New("invalid reminder")
)

type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type Tone string

const (
	ToneFriendly Tone = "friendly"
	ToneUrgent   Tone = "urgent"
	ToneFormal   Tone = "formal"
)

func (t Tone) Valid() bool { return t == ToneFriendly || t == ToneUrgent || t == ToneFormal }

// Table: reminders
type Reminder struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	// Public identifier (32-char lowercase hex)
	ReminderID string `gorm:"column:reminder_id;type:char(32);not null;uniqueIndex:ux_reminders_reminder_id" json:"reminder_id"`
	// FK to loans.id (numeric)
	LoanID         uint64         `gorm:"column:loan_id;not null;index" json:"-"`
	OwnerID        string         `gorm:"column:owner_id;type:char(32);not null;index" json:"owner_id"`
	Frequency      Frequency      `gorm:"column:frequency;type:enum('once','daily','weekly','monthly');not null" json:"frequency"`
	Tone           Tone           `gorm:"column:tone;type:enum('friendly','urgent','formal');not null" json:"tone"`
	NextReminderAt time.Time      `gorm:"column:next_reminder_at;not null;index:idx_reminders_due" json:"next_reminder_at"`
	Enabled        bool           `gorm:"column:enabled;not null;index:idx_reminders_due" json:"enabled"`
	CustomMessage  string         `gorm:"column:custom_message;type:text" json:"custom_message,omitempty"`
	LastSentAt     *time.Time     `gorm:"column:last_sent_at" json:"last_sent_at,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Reminder) TableName() string { return "reminders" }

// Notice is what the dispatcher hands to the delivery queue. Title and Body
// are for the owner; Draft is the message to forward to the counterparty.
type Notice struct {
	NoticeID     string    `json:"notice_id"`
	ReminderID   string    `json:"reminder_id"`
	LoanID       string    `json:"loan_id"`
	OwnerID      string    `json:"owner_id"`
	Counterparty string    `json:"counterparty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Tone         Tone      `json:"tone"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Draft        string    `json:"draft"`
	DueAt        time.Time `json:"due_at"`
	SentAt       time.Time `json:"sent_at"`
}
