package mysql

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	loanDomain "lendledger/internal/domain/loan"
	"lendledger/pkg/id"
)

// --- SQLite-friendly schema only for tests (no ENUM, no DECIMAL) ---

type loanSQLite struct {
	ID                uint64         `gorm:"primaryKey;column:id"`
	LoanID            string         `gorm:"size:32;column:loan_id;uniqueIndex"`
	OwnerID           string         `gorm:"size:32;column:owner_id;index"`
	Direction         string         `gorm:"type:text;column:direction"`
	CounterpartyName  string         `gorm:"column:counterparty_name"`
	CounterpartyEmail string         `gorm:"column:counterparty_email"`
	CounterpartyPhone string         `gorm:"column:counterparty_phone"`
	Principal         string         `gorm:"type:text;column:principal"`
	Currency          string         `gorm:"type:text;column:currency"`
	InterestRate      *string        `gorm:"type:text;column:interest_rate"`
	Status            string         `gorm:"type:text;column:status"`
	DueAt             time.Time      `gorm:"column:due_at"`
	SettledAt         *time.Time     `gorm:"column:settled_at"`
	Notes             string         `gorm:"column:notes"`
	CreatedAt         time.Time      `gorm:"column:created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (loanSQLite) TableName() string { return "loans" }

type reminderSQLite struct {
	ID             uint64         `gorm:"primaryKey;column:id"`
	ReminderID     string         `gorm:"size:32;column:reminder_id"`
	LoanID         uint64         `gorm:"column:loan_id"`
	OwnerID        string         `gorm:"size:32;column:owner_id"`
	Frequency      string         `gorm:"type:text;column:frequency"`
	Tone           string         `gorm:"type:text;column:tone"`
	NextReminderAt time.Time      `gorm:"column:next_reminder_at"`
	Enabled        bool           `gorm:"column:enabled"`
	CustomMessage  string         `gorm:"column:custom_message"`
	LastSentAt     *time.Time     `gorm:"column:last_sent_at"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (reminderSQLite) TableName() string { return "reminders" }

type accountSQLite struct {
	ID          uint64    `gorm:"primaryKey;column:id"`
	OwnerID     string    `gorm:"size:32;column:owner_id;uniqueIndex"`
	DisplayName string    `gorm:"column:display_name"`
	Email       string    `gorm:"column:email"`
	Tier        string    `gorm:"type:text;column:tier"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (accountSQLite) TableName() string { return "accounts" }

// openTestDB creates a per-test in-memory sqlite DB and migrates ONLY the
// sqlite-safe schema. Shared cache keeps every pooled connection on the same DB.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// IMPORTANT: migrate the sqlite-safe models, NOT the domain models.
	if err := db.AutoMigrate(&loanSQLite{}, &reminderSQLite{}, &accountSQLite{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func makeLoan(ownerID string, dir loanDomain.Direction, amount string, due time.Time) *loanDomain.Loan {
	return &loanDomain.Loan{
		LoanID:           id.NewID32(),
		OwnerID:          ownerID,
		Direction:        dir,
		CounterpartyName: "John Doe",
		Principal:        decimal.RequireFromString(amount),
		Currency:         "INR",
		Status:           loanDomain.StatusActive,
		DueAt:            due,
	}
}
