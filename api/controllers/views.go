package controllers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stashbot/internal/inventory"
	"github.com/angelmondragon/stashbot/internal/orders"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

type productView struct {
	ID        uint                `json:"id"`
	Name      string              `json:"name"`
	UnitPrice decimal.Decimal     `json:"unit_price"`
	Kind      string              `json:"kind"`
	Status    enums.ProductStatus `json:"status"`
	Available *int64              `json:"available,omitempty"`
}

func newProductView(p models.Product) productView {
	return productView{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Kind:      p.Kind,
		Status:    p.Status,
	}
}

func newProductSummaryView(s inventory.ProductSummary) productView {
	v := newProductView(s.Product)
	available := s.Available
	v.Available = &available
	return v
}

type orderView struct {
	ID                 uint              `json:"id"`
	PaymentRef         string            `json:"payment_ref"`
	BuyerID            int64             `json:"buyer_id"`
	ProductID          uint              `json:"product_id"`
	ProductName        string            `json:"product_name"`
	Amount             decimal.Decimal   `json:"amount"`
	Currency           enums.Currency    `json:"currency"`
	DestinationAddress string            `json:"destination_address"`
	Status             enums.OrderStatus `json:"status"`
	RejectReason       *string           `json:"reject_reason,omitempty"`
	Attempts           int               `json:"attempts"`
	CreatedAt          time.Time         `json:"created_at"`
	ResolvedAt         *time.Time        `json:"resolved_at,omitempty"`
}

func newOrderView(o models.PendingOrder) orderView {
	return orderView{
		ID:                 o.ID,
		PaymentRef:         o.PaymentRef,
		BuyerID:            o.BuyerID,
		ProductID:          o.ProductID,
		ProductName:        o.ProductName,
		Amount:             o.Amount,
		Currency:           o.Currency,
		DestinationAddress: o.DestinationAddress,
		Status:             o.Status,
		RejectReason:       o.RejectReason,
		Attempts:           o.Attempts,
		CreatedAt:          o.CreatedAt,
		ResolvedAt:         o.ResolvedAt,
	}
}

func newOrderViews(list []models.PendingOrder) []orderView {
	out := make([]orderView, 0, len(list))
	for _, o := range list {
		out = append(out, newOrderView(o))
	}
	return out
}

type placementView struct {
	Outcome orders.Outcome `json:"outcome"`
	Order   orderView      `json:"order"`
}

type buyerView struct {
	ID            int64           `json:"id"`
	Username      string          `json:"username"`
	DisplayName   string          `json:"display_name"`
	JoinedAt      time.Time       `json:"joined_at"`
	PurchaseCount int             `json:"purchase_count"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
}

func newBuyerView(b models.BuyerAccount) buyerView {
	return buyerView{
		ID:            b.ID,
		Username:      b.Username,
		DisplayName:   b.DisplayName(),
		JoinedAt:      b.JoinedAt,
		PurchaseCount: b.PurchaseCount,
		TotalSpent:    b.TotalSpent,
	}
}

type walletView struct {
	Currency  enums.Currency `json:"currency"`
	Address   string         `json:"address"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func newWalletView(w models.Wallet) walletView {
	return walletView{Currency: w.Currency, Address: w.Address, UpdatedAt: w.UpdatedAt}
}

type notificationView struct {
	ID          uint                   `json:"id"`
	RecipientID int64                  `json:"recipient_id"`
	Kind        enums.NotificationKind `json:"kind"`
	Message     string                 `json:"message,omitempty"`
	PayloadKind *enums.PayloadKind     `json:"payload_kind,omitempty"`
	FileRef     *string                `json:"file_ref,omitempty"`
	Content     *string                `json:"content,omitempty"`
	PaymentRef  *string                `json:"payment_ref,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

func newNotificationView(n models.Notification) notificationView {
	return notificationView{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Kind:        n.Kind,
		Message:     n.Message,
		PayloadKind: n.PayloadKind,
		FileRef:     n.FileRef,
		Content:     n.Content,
		PaymentRef:  n.PaymentRef,
		CreatedAt:   n.CreatedAt,
	}
}
