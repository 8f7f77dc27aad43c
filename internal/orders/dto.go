package orders

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

// PlaceOrderInput is everything needed to turn a payment claim into a reservation.
type PlaceOrderInput struct {
	BuyerID            int64
	BuyerUsername      string
	ProductID          uint
	ProductName        string
	Amount             decimal.Decimal
	Currency           enums.Currency
	DestinationAddress string
	PaymentRef         string
}

// Outcome classifies a successful PlaceOrder call.
type Outcome string

const (
	OutcomeReserved Outcome = "reserved"
	OutcomeNoStock  Outcome = "no_stock"
)

// Placement is the result of PlaceOrder. On OutcomeNoStock the order carries
// status stock_error and no stash item.
type Placement struct {
	Outcome     Outcome
	Order       models.PendingOrder
	StashItemID uint
}

// Reserved reports whether a stash item is now held for the order.
func (p *Placement) Reserved() bool {
	return p != nil && p.Outcome == OutcomeReserved
}

// SubmitInput is a buyer's payment reference for their active session.
type SubmitInput struct {
	BuyerID       int64
	BuyerUsername string
	PaymentRef    string
}
