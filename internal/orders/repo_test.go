package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

func (f *fixture) pendingAt(t *testing.T, ref string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, f.conn.Create(&models.PendingOrder{
		PaymentRef:         ref,
		BuyerID:            77,
		ProductID:          f.product.ID,
		ProductName:        f.product.Name,
		Amount:             decimal.RequireFromString("0.2"),
		Currency:           enums.CurrencyLTC,
		DestinationAddress: "LTCaddr1234567890abcdef",
		Status:             enums.OrderStatusPending,
		CreatedAt:          createdAt.UTC(),
	}).Error)
}

func refs(orders []models.PendingOrder) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.PaymentRef)
	}
	return out
}

func TestListPendingSinceIgnoresCallerOffset(t *testing.T) {
	f := newFixture(t)
	repo := NewRepository(f.conn)
	now := time.Now().UTC()
	f.pendingAt(t, "tx-recent", now.Add(-time.Hour))
	f.pendingAt(t, "tx-old", now.Add(-3*time.Hour))

	east := time.FixedZone("east", 5*3600)
	got, err := repo.ListPendingSince(context.Background(), now.Add(-2*time.Hour).In(east))
	require.NoError(t, err)
	assert.Equal(t, []string{"tx-recent"}, refs(got))
}

func TestListStalePendingIgnoresCallerOffset(t *testing.T) {
	f := newFixture(t)
	repo := NewRepository(f.conn)
	now := time.Now().UTC()
	f.pendingAt(t, "tx-stale", now.Add(-time.Hour))
	f.pendingAt(t, "tx-fresh", now.Add(-10*time.Minute))

	west := time.FixedZone("west", -5*3600)
	got, err := repo.ListStalePending(context.Background(), now.Add(-30*time.Minute).In(west), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx-stale"}, refs(got))
}

func TestPlacedOrdersAreStampedInUTC(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "code-1")
	_, err := f.coord.PlaceOrder(context.Background(), f.input("tx-utc"))
	require.NoError(t, err)

	var stored models.PendingOrder
	require.NoError(t, f.conn.Where("payment_ref = ?", "tx-utc").First(&stored).Error)
	_, offset := stored.CreatedAt.Zone()
	assert.Zero(t, offset)

	got, err := NewRepository(f.conn).ListPendingSince(context.Background(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"tx-utc"}, refs(got))
}
