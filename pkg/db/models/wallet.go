package models

import (
	"time"

	"github.com/angelmondragon/stashbot/pkg/enums"
)

// Wallet holds the store's receiving address for one currency.
type Wallet struct {
	Currency  enums.Currency `gorm:"column:currency;type:varchar(8);primaryKey"`
	Address   string         `gorm:"column:address;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
