package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	reminderDomain "lendledger/internal/domain/reminder"
)

type ReminderRepository struct{ db *gorm.DB }

func NewReminderRepository(db *gorm.DB) *ReminderRepository { return &ReminderRepository{db: db} }

func (r *ReminderRepository) Create(ctx context.Context, rem *reminderDomain.Reminder) error {
	return r.db.WithContext(ctx).Create(rem).Error
}

func (r *ReminderRepository) Save(ctx context.Context, rem *reminderDomain.Reminder) error {
	return r.db.WithContext(ctx).Save(rem).Error
}

func (r *ReminderRepository) ListByLoanID(ctx context.Context, loanNumericID uint64) ([]reminderDomain.Reminder, error) {
	var out []reminderDomain.Reminder
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanNumericID).
		Order("next_reminder_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *ReminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]reminderDomain.Reminder, error) {
	var out []reminderDomain.Reminder
	res := r.db.WithContext(ctx).
		Where("enabled = ? AND next_reminder_at <= ?", true, now.UTC()).
		Order("next_reminder_at ASC, id ASC").
		Limit(limit).
		Find(&out)
	return out, res.Error
}

func (r *ReminderRepository) CountUpcomingByOwner(ctx context.Context, ownerID string, from, to time.Time) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&reminderDomain.Reminder{}).
		Where("owner_id = ? AND enabled = ? AND next_reminder_at >= ? AND next_reminder_at < ?", ownerID, true, from.UTC(), to.UTC()).
		Count(&n)
	return n, res.Error
}

func (r *ReminderRepository) DisableByLoanID(ctx context.Context, loanNumericID uint64) error {
	return r.db.WithContext(ctx).
		Model(&reminderDomain.Reminder{}).
		Where("loan_id = ?", loanNumericID).
		Update("enabled", false).Error
}

func (r *ReminderRepository) DeleteByLoanID(ctx context.Context, loanNumericID uint64) error {
	return r.db.WithContext(ctx).
		Where("loan_id = ?", loanNumericID).
		Delete(&reminderDomain.Reminder{}).Error
}
