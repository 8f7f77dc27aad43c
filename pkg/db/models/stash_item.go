package models

import (
	"time"

	"github.com/angelmondragon/stashbot/pkg/enums"
)

// StashItem is one unique deliverable unit of a product.
type StashItem struct {
	ID          uint              `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID   uint              `gorm:"column:product_id;not null;index:idx_stash_items_pick,priority:1"`
	Content     string            `gorm:"column:content;type:text;not null;default:''"`
	FileRef     *string           `gorm:"column:file_ref"`
	PayloadKind enums.PayloadKind `gorm:"column:payload_kind;type:varchar(16);not null;default:'text'"`
	Reserved    bool              `gorm:"column:reserved;not null;default:false;index:idx_stash_items_pick,priority:2"`
	ReservedAt  *time.Time        `gorm:"column:reserved_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime;index:idx_stash_items_pick,priority:3"`
}
