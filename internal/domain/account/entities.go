package account

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("account not found")

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

func (t Tier) Valid() bool { return t == TierFree || t == TierPremium }

// Table: accounts
type Account struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	OwnerID     string    `gorm:"column:owner_id;type:char(32);not null;uniqueIndex:ux_accounts_owner" json:"owner_id"`
	DisplayName string    `gorm:"column:display_name;size:120" json:"display_name"`
	Email       string    `gorm:"column:email;size:254" json:"email"`
	Tier        Tier      `gorm:"column:tier;type:enum('free','premium');not null;default:'free'" json:"tier"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

// Limits is what a plan allows. ActiveLoanLimit <= 0 means unlimited.
type Limits struct {
	ActiveLoanLimit int  `json:"active_loan_limit"`
	Interest        bool `json:"interest"`
	MultiCurrency   bool `json:"multi_currency"`
	CSVExport       bool `json:"csv_export"`
}

func LimitsFor(t Tier, freeActiveLimit int) Limits {
	if t == TierPremium {
		return Limits{Interest: true, MultiCurrency: true, CSVExport: true}
	}
	return Limits{ActiveLoanLimit: freeActiveLimit}
}
