package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stashbot/pkg/enums"
)

// PendingOrder is the append-only record of a buyer's payment claim.
type PendingOrder struct {
	ID                 uint              `gorm:"column:id;primaryKey;autoIncrement"`
	PaymentRef         string            `gorm:"column:payment_ref;not null;uniqueIndex"`
	BuyerID            int64             `gorm:"column:buyer_id;not null;index"`
	BuyerUsername      string            `gorm:"column:buyer_username;not null;default:''"`
	ProductID          uint              `gorm:"column:product_id;not null"`
	ProductName        string            `gorm:"column:product_name;not null"`
	Amount             decimal.Decimal   `gorm:"column:amount;type:numeric(20,8);not null"`
	Currency           enums.Currency    `gorm:"column:currency;type:varchar(8);not null"`
	DestinationAddress string            `gorm:"column:destination_address;not null"`
	Status             enums.OrderStatus `gorm:"column:status;type:varchar(16);not null;default:'pending';index"`
	RejectReason       *string           `gorm:"column:reject_reason"`
	StashItemID        *uint             `gorm:"column:stash_item_id"`
	Attempts           int               `gorm:"column:attempts;not null;default:0"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	ResolvedAt         *time.Time        `gorm:"column:resolved_at"`
}
