package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

// Repository defines persistence operations for pending orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PendingOrder) error
	FindByRef(ctx context.Context, ref string) (*models.PendingOrder, error)
	ExistsByRef(ctx context.Context, ref string) (bool, error)
	ListByBuyer(ctx context.Context, buyerID int64, limit int) ([]models.PendingOrder, error)
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.PendingOrder, error)
	ListPendingSince(ctx context.Context, since time.Time) ([]models.PendingOrder, error)
	Resolve(ctx context.Context, ref string, status enums.OrderStatus, reason *string, at time.Time) (bool, error)
	IncrementAttempts(ctx context.Context, ref string) error
	CountByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.PendingOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByRef(ctx context.Context, ref string) (*models.PendingOrder, error) {
	var order models.PendingOrder
	if err := r.db.WithContext(ctx).Where("payment_ref = ?", ref).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ExistsByRef(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PendingOrder{}).
		Where("payment_ref = ?", ref).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID int64, limit int) ([]models.PendingOrder, error) {
	var out []models.PendingOrder
	q := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.PendingOrder, error) {
	var out []models.PendingOrder
	q := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff.UTC()).
		Order("created_at ASC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListPendingSince(ctx context.Context, since time.Time) ([]models.PendingOrder, error) {
	var out []models.PendingOrder
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at >= ?", enums.OrderStatusPending, since.UTC()).
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Resolve moves a pending order to a terminal status. It reports false when the
// order was already resolved, which makes every transition apply at most once.
func (r *repository) Resolve(ctx context.Context, ref string, status enums.OrderStatus, reason *string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PendingOrder{}).
		Where("payment_ref = ? AND status = ?", ref, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":        status,
			"reject_reason": reason,
			"resolved_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) IncrementAttempts(ctx context.Context, ref string) error {
	return r.db.WithContext(ctx).
		Model(&models.PendingOrder{}).
		Where("payment_ref = ? AND status = ?", ref, enums.OrderStatusPending).
		UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error
}

func (r *repository) CountByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error) {
	var rows []struct {
		Status enums.OrderStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.PendingOrder{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
