package sessions

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stashbot/pkg/enums"
)

// Session is a buyer's in-flight checkout: what they picked and what they owe.
type Session struct {
	BuyerID            int64           `json:"buyer_id"`
	ProductID          uint            `json:"product_id"`
	ProductName        string          `json:"product_name"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           enums.Currency  `json:"currency"`
	DestinationAddress string          `json:"destination_address"`
	PaymentURI         string          `json:"payment_uri"`
	CreatedAt          time.Time       `json:"created_at"`
	ExpiresAt          time.Time       `json:"expires_at"`
}

// Expired reports whether the session is past its deadline at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// TTL returns the remaining lifetime at now, floored at zero.
func (s Session) TTL(now time.Time) time.Duration {
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
