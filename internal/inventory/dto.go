package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

// Payload is the deliverable body of a stash item.
type Payload struct {
	Kind    enums.PayloadKind
	Content string
	FileRef string
}

// CreateProductInput carries the admin fields for a new catalog entry.
type CreateProductInput struct {
	Name      string
	UnitPrice decimal.Decimal
	Kind      string
}

// Counts splits a product's stash pool by reservation state.
type Counts struct {
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Total     int64 `json:"total"`
}

// ProductSummary is a listing row with live stock.
type ProductSummary struct {
	Product   models.Product
	Available int64
}

type productCount struct {
	ProductID uint
	Available int64
}
