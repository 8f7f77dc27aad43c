package inventory

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

// Repository defines persistence operations for products and stash items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProduct(ctx context.Context, product *models.Product) error
	FindProduct(ctx context.Context, id uint) (*models.Product, error)
	ListProductsByStatus(ctx context.Context, status enums.ProductStatus) ([]models.Product, error)
	UpdateProductStatus(ctx context.Context, id uint, status enums.ProductStatus) error
	InsertItems(ctx context.Context, items []models.StashItem) error
	FindItem(ctx context.Context, id uint) (*models.StashItem, error)
	OldestAvailableItem(ctx context.Context, productID uint) (*models.StashItem, error)
	ClaimItem(ctx context.Context, itemID uint, at time.Time) (bool, error)
	UnclaimItem(ctx context.Context, itemID uint) (bool, error)
	CountItems(ctx context.Context, productID uint) (Counts, error)
	CountAvailableByProduct(ctx context.Context, productIDs []uint) (map[uint]int64, error)
	RefreshHasStock(ctx context.Context, productID uint) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) FindProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListProductsByStatus(ctx context.Context, status enums.ProductStatus) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) UpdateProductStatus(ctx context.Context, id uint, status enums.ProductStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) InsertItems(ctx context.Context, items []models.StashItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindItem(ctx context.Context, id uint) (*models.StashItem, error) {
	var item models.StashItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// OldestAvailableItem picks the next item to claim. On postgres the row is
// locked with SKIP LOCKED so concurrent reservers fan out over distinct items.
func (r *repository) OldestAvailableItem(ctx context.Context, productID uint) (*models.StashItem, error) {
	var item models.StashItem
	query := r.db.WithContext(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked})
	}
	err := query.
		Where("product_id = ? AND reserved = ?", productID, false).
		Order("created_at ASC").
		Order("id ASC").
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ClaimItem flips an item to reserved only if it is still available.
func (r *repository) ClaimItem(ctx context.Context, itemID uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StashItem{}).
		Where("id = ? AND reserved = ?", itemID, false).
		Updates(map[string]any{"reserved": true, "reserved_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UnclaimItem returns a reserved item to the pool; false means it was already available.
func (r *repository) UnclaimItem(ctx context.Context, itemID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StashItem{}).
		Where("id = ? AND reserved = ?", itemID, true).
		Updates(map[string]any{"reserved": false, "reserved_at": nil})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CountItems(ctx context.Context, productID uint) (Counts, error) {
	var counts Counts
	base := r.db.WithContext(ctx).Model(&models.StashItem{}).Where("product_id = ?", productID)
	if err := base.Session(&gorm.Session{}).Where("reserved = ?", false).Count(&counts.Available).Error; err != nil {
		return Counts{}, err
	}
	if err := base.Session(&gorm.Session{}).Where("reserved = ?", true).Count(&counts.Reserved).Error; err != nil {
		return Counts{}, err
	}
	counts.Total = counts.Available + counts.Reserved
	return counts, nil
}

func (r *repository) CountAvailableByProduct(ctx context.Context, productIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []productCount
	err := r.db.WithContext(ctx).
		Model(&models.StashItem{}).
		Select("product_id, COUNT(*) AS available").
		Where("product_id IN ? AND reserved = ?", productIDs, false).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ProductID] = row.Available
	}
	return out, nil
}

// RefreshHasStock recomputes the cached has_stock flag from the stash pool.
func (r *repository) RefreshHasStock(ctx context.Context, productID uint) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET has_stock = EXISTS (
			SELECT 1 FROM stash_items
			WHERE stash_items.product_id = ? AND stash_items.reserved = ?
		)
		WHERE id = ?
	`, productID, false, productID).Error
}
