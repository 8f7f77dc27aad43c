package stats

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
)

// Summary is the admin dashboard snapshot.
type Summary struct {
	TotalBuyers    int64                       `json:"total_buyers"`
	PayingBuyers   int64                       `json:"paying_buyers"`
	TotalOrders    int64                       `json:"total_orders"`
	OrdersByStatus map[enums.OrderStatus]int64 `json:"orders_by_status"`
	TotalSpent     decimal.Decimal             `json:"total_spent"`
	ActiveProducts int64                       `json:"active_products"`
	AvailableItems int64                       `json:"available_items"`
	ReservedItems  int64                       `json:"reserved_items"`
}

type Service interface {
	Summary(ctx context.Context) (*Summary, error)
}

type service struct {
	db *gorm.DB
}

func NewService(conn *gorm.DB) (Service, error) {
	if conn == nil {
		return nil, errors.New("db required")
	}
	return &service{db: conn}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	db := s.db.WithContext(ctx)
	out := &Summary{OrdersByStatus: map[enums.OrderStatus]int64{}}
	for _, status := range enums.AllOrderStatuses() {
		out.OrdersByStatus[status] = 0
	}

	if err := db.Model(&models.BuyerAccount{}).Count(&out.TotalBuyers).Error; err != nil {
		return nil, wrap(err, "count buyers")
	}
	if err := db.Model(&models.BuyerAccount{}).Where("purchase_count > 0").Count(&out.PayingBuyers).Error; err != nil {
		return nil, wrap(err, "count paying buyers")
	}

	if err := db.Model(&models.BuyerAccount{}).Select("COALESCE(SUM(total_spent), 0)").Row().Scan(&out.TotalSpent); err != nil {
		return nil, wrap(err, "sum spent")
	}

	var rows []struct {
		Status enums.OrderStatus
		Count  int64
	}
	if err := db.Model(&models.PendingOrder{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, wrap(err, "count orders")
	}
	for _, row := range rows {
		out.OrdersByStatus[row.Status] = row.Count
		out.TotalOrders += row.Count
	}

	if err := db.Model(&models.Product{}).Where("status = ?", enums.ProductStatusActive).Count(&out.ActiveProducts).Error; err != nil {
		return nil, wrap(err, "count products")
	}
	if err := db.Model(&models.StashItem{}).Where("reserved = ?", false).Count(&out.AvailableItems).Error; err != nil {
		return nil, wrap(err, "count available items")
	}
	if err := db.Model(&models.StashItem{}).Where("reserved = ?", true).Count(&out.ReservedItems).Error; err != nil {
		return nil, wrap(err, "count reserved items")
	}
	return out, nil
}

func wrap(err error, msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
