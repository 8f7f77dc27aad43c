package buyers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stashbot/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:buyers_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.BuyerAccount{}))
	return conn
}

func TestTouchDoesNotResetCounters(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	svc, err := NewService(conn)
	require.NoError(t, err)

	account, err := svc.Touch(ctx, Profile{ID: 1001, Username: "@alice", FirstName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, 0, account.PurchaseCount)
	joined := account.JoinedAt

	require.NoError(t, svc.CreditPurchaseWithin(ctx, nil, 1001, decimal.RequireFromString("0.2")))

	account, err = svc.Touch(ctx, Profile{ID: 1001, Username: "alice_new", FirstName: "Alice", LastName: "L"})
	require.NoError(t, err)
	assert.Equal(t, "alice_new", account.Username)
	assert.Equal(t, "L", account.LastName)
	assert.Equal(t, 1, account.PurchaseCount)
	assert.True(t, account.TotalSpent.Equal(decimal.RequireFromString("0.2")), "total spent %s", account.TotalSpent)
	assert.True(t, account.JoinedAt.Equal(joined))
}

func TestCreditPurchaseAccumulates(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	svc, err := NewService(conn)
	require.NoError(t, err)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.CreditPurchaseWithin(ctx, tx, 7, decimal.RequireFromString("0.5"))
	}))
	require.NoError(t, svc.CreditPurchaseWithin(ctx, nil, 7, decimal.RequireFromString("0.25")))

	account, err := svc.Account(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, account.PurchaseCount)
	assert.True(t, account.TotalSpent.Equal(decimal.RequireFromString("0.75")), "total spent %s", account.TotalSpent)

	assert.Error(t, svc.CreditPurchaseWithin(ctx, nil, 7, decimal.NewFromInt(-1)))
}

func TestCreditRolledBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	svc, err := NewService(conn)
	require.NoError(t, err)
	_, err = svc.Touch(ctx, Profile{ID: 9})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.CreditPurchaseWithin(ctx, tx, 9, decimal.NewFromInt(1)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	account, err := svc.Account(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, account.PurchaseCount)
}

func TestAccountMissing(t *testing.T) {
	svc, err := NewService(newTestDB(t))
	require.NoError(t, err)
	_, err = svc.Account(context.Background(), 404)
	assert.ErrorIs(t, err, ErrBuyerNotFound)

	_, err = svc.Touch(context.Background(), Profile{})
	assert.Error(t, err)
}
