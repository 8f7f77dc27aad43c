package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stashbot/pkg/enums"
)

// Product is a catalog entry sold from its stash pool.
type Product struct {
	ID        uint                `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string              `gorm:"column:name;not null;uniqueIndex"`
	UnitPrice decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Kind      string              `gorm:"column:kind;not null;default:'digital'"`
	Status    enums.ProductStatus `gorm:"column:status;type:varchar(16);not null;default:'active'"`
	HasStock  bool                `gorm:"column:has_stock;not null;default:false"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsActive reports whether the product can be listed and purchased.
func (p Product) IsActive() bool {
	return p.Status == enums.ProductStatusActive
}
