package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BuyerAccount is keyed by the chat user id; counters change only on verified orders.
type BuyerAccount struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement:false"`
	Username      string          `gorm:"column:username;not null;default:''"`
	FirstName     string          `gorm:"column:first_name;not null;default:''"`
	LastName      string          `gorm:"column:last_name;not null;default:''"`
	JoinedAt      time.Time       `gorm:"column:joined_at;autoCreateTime"`
	PurchaseCount int             `gorm:"column:purchase_count;not null;default:0"`
	TotalSpent    decimal.Decimal `gorm:"column:total_spent;type:numeric(20,8);not null;default:0"`
}

// DisplayName prefers the @username and falls back to the given names.
func (b BuyerAccount) DisplayName() string {
	if b.Username != "" {
		return "@" + b.Username
	}
	name := b.FirstName
	if b.LastName != "" {
		if name != "" {
			name += " "
		}
		name += b.LastName
	}
	return name
}
