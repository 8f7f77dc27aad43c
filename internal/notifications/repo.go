package notifications

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/pagination"
)

// Repository persists the notification outbox.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	ListPending(ctx context.Context, recipientID int64, page pagination.Request) ([]models.Notification, error)
	// MarkSent stamps sent_at once. It reports whether the row exists at all,
	// so repeated acks stay successful.
	MarkSent(ctx context.Context, notificationID uint, now time.Time) (bool, error)
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) outbox(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{})
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *gormRepository) ListPending(ctx context.Context, recipientID int64, page pagination.Request) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.outbox(ctx).
		Where("recipient_id = ? AND sent_at IS NULL AND id > ?", recipientID, page.AfterID).
		Order("id ASC").
		Limit(page.Fetch()).
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) MarkSent(ctx context.Context, notificationID uint, now time.Time) (bool, error) {
	res := r.outbox(ctx).
		Where("id = ? AND sent_at IS NULL", notificationID).
		UpdateColumn("sent_at", now)
	if res.Error != nil || res.RowsAffected > 0 {
		return res.RowsAffected > 0, res.Error
	}
	var count int64
	err := r.outbox(ctx).Where("id = ?", notificationID).Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("sent_at IS NOT NULL AND sent_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
