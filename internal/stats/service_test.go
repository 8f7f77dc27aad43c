package stats

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:stats_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

func TestSummaryEmptyStore(t *testing.T) {
	svc, err := NewService(newTestDB(t))
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.TotalBuyers)
	assert.True(t, summary.TotalSpent.IsZero())
	assert.Len(t, summary.OrdersByStatus, len(enums.AllOrderStatuses()))
}

func TestSummaryAggregates(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, conn.Create(&models.BuyerAccount{ID: 1, Username: "a", PurchaseCount: 2, TotalSpent: decimal.RequireFromString("0.5")}).Error)
	require.NoError(t, conn.Create(&models.BuyerAccount{ID: 2, Username: "b"}).Error)
	product := &models.Product{Name: "Widget", UnitPrice: decimal.NewFromInt(10), Kind: "digital", Status: enums.ProductStatusActive}
	require.NoError(t, conn.Create(product).Error)
	require.NoError(t, conn.Create(&models.StashItem{ProductID: product.ID, Content: "x", PayloadKind: enums.PayloadKindText}).Error)
	require.NoError(t, conn.Create(&models.StashItem{ProductID: product.ID, Content: "y", PayloadKind: enums.PayloadKindText, Reserved: true}).Error)
	for i, status := range []enums.OrderStatus{enums.OrderStatusVerified, enums.OrderStatusVerified, enums.OrderStatusTimeout} {
		require.NoError(t, conn.Create(&models.PendingOrder{
			PaymentRef:         "tx-" + string(rune('a'+i)),
			BuyerID:            1,
			ProductID:          product.ID,
			ProductName:        product.Name,
			Amount:             decimal.RequireFromString("0.25"),
			Currency:           enums.CurrencyLTC,
			DestinationAddress: "LTCaddr1234567890abcdef",
			Status:             status,
		}).Error)
	}

	svc, err := NewService(conn)
	require.NoError(t, err)
	summary, err := svc.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.TotalBuyers)
	assert.Equal(t, int64(1), summary.PayingBuyers)
	assert.Equal(t, int64(3), summary.TotalOrders)
	assert.Equal(t, int64(2), summary.OrdersByStatus[enums.OrderStatusVerified])
	assert.Equal(t, int64(0), summary.OrdersByStatus[enums.OrderStatusRejected])
	assert.True(t, summary.TotalSpent.Equal(decimal.RequireFromString("0.5")), "spent %s", summary.TotalSpent)
	assert.Equal(t, int64(1), summary.ActiveProducts)
	assert.Equal(t, int64(1), summary.AvailableItems)
	assert.Equal(t, int64(1), summary.ReservedItems)
}
