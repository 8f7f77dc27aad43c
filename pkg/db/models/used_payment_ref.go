package models

import "time"

// UsedPaymentRef permanently records a payment reference that settled an order.
type UsedPaymentRef struct {
	Ref    string    `gorm:"column:ref;primaryKey"`
	UsedAt time.Time `gorm:"column:used_at;autoCreateTime"`
}
