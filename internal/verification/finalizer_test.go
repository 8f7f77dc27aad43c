package verification

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stashbot/internal/notifications"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

func TestVerifyCreditsDeliversAndBurnsRef(t *testing.T) {
	e := newEnv(t)
	order := e.place(t, "tx-ok")

	applied, err := e.finalizer.Verify(context.Background(), order)
	require.NoError(t, err)
	require.True(t, applied)

	stored := e.order(t, "tx-ok")
	assert.Equal(t, enums.OrderStatusVerified, stored.Status)
	assert.NotNil(t, stored.ResolvedAt)

	used, err := e.guard.IsUsed(context.Background(), "tx-ok")
	require.NoError(t, err)
	assert.True(t, used)

	account, err := e.buyers.Account(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, account.PurchaseCount)
	assert.True(t, account.TotalSpent.Equal(decimal.RequireFromString("0.2")), "total spent %s", account.TotalSpent)

	assert.Len(t, e.deliveries(t), 1)
	assert.Len(t, e.notifier.to(testAdminID), 1)
	counts := e.counts(t)
	assert.Equal(t, int64(1), counts.Reserved, "delivered item stays reserved")
}

func TestVerifyRecordsDeliveryWhenNoticeQueueIsFull(t *testing.T) {
	e := newEnv(t)
	order := e.place(t, "tx-busy")
	dispatcher, err := notifications.NewDispatcher(e.logg, notifications.DispatcherOptions{QueueSize: 1, Workers: 1},
		notifications.StoreSink(e.outbox))
	require.NoError(t, err)
	dispatcher.Notify(context.Background(), 7, "backlog")

	applied, err := e.newFinalizer(t, dispatcher).Verify(context.Background(), order)
	require.NoError(t, err)
	require.True(t, applied)

	rows := e.deliveries(t)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0].RecipientID)
	require.NotNil(t, rows[0].Content)
	assert.Equal(t, "code-tx-busy", *rows[0].Content)
	require.NotNil(t, rows[0].PaymentRef)
	assert.Equal(t, "tx-busy", *rows[0].PaymentRef)
}

func TestVerifyRollsBackWhenDeliveryCannotBeRecorded(t *testing.T) {
	e := newEnv(t)
	order := e.place(t, "tx-nooutbox")
	require.NoError(t, e.conn.Migrator().DropTable(&models.Notification{}))

	applied, err := e.finalizer.Verify(context.Background(), order)
	require.Error(t, err)
	assert.False(t, applied)

	assert.Equal(t, enums.OrderStatusPending, e.order(t, "tx-nooutbox").Status)
	used, err := e.guard.IsUsed(context.Background(), "tx-nooutbox")
	require.NoError(t, err)
	assert.False(t, used, "reference must stay unburned when the delivery is not on record")
}

func TestVerifyIsAppliedOnce(t *testing.T) {
	e := newEnv(t)
	order := e.place(t, "tx-once")

	var wg sync.WaitGroup
	results := make(chan bool, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := e.finalizer.Verify(context.Background(), order)
			if err == nil {
				results <- applied
			}
		}()
	}
	wg.Wait()
	close(results)

	applied := 0
	for ok := range results {
		if ok {
			applied++
		}
	}
	assert.Equal(t, 1, applied)

	account, err := e.buyers.Account(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, account.PurchaseCount)
	assert.Len(t, e.deliveries(t), 1)
}

func TestRejectReleasesWithoutCredit(t *testing.T) {
	e := newEnv(t)
	order := e.place(t, "tx-bad")

	applied, err := e.finalizer.Reject(context.Background(), order, ReasonAmountMismatch)
	require.NoError(t, err)
	require.True(t, applied)

	stored := e.order(t, "tx-bad")
	assert.Equal(t, enums.OrderStatusRejected, stored.Status)
	require.NotNil(t, stored.RejectReason)
	assert.Equal(t, ReasonAmountMismatch, *stored.RejectReason)

	counts := e.counts(t)
	assert.Equal(t, int64(1), counts.Available)
	assert.Equal(t, int64(0), counts.Reserved)

	_, err = e.buyers.Account(context.Background(), 42)
	require.Error(t, err, "rejection must not create a credited account")

	buyerNotices := e.notifier.to(42)
	require.Len(t, buyerNotices, 1)
	assert.Contains(t, buyerNotices[0].text, ReasonAmountMismatch)

	applied, err = e.finalizer.Verify(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, applied, "terminal orders never transition again")
}

func TestTimeoutReleasesOnce(t *testing.T) {
	e := newEnv(t)
	order := e.place(t, "tx-slow")

	applied, err := e.finalizer.Timeout(context.Background(), order)
	require.NoError(t, err)
	require.True(t, applied)
	applied, err = e.finalizer.Timeout(context.Background(), order)
	require.NoError(t, err)
	require.False(t, applied)

	assert.Equal(t, enums.OrderStatusTimeout, e.order(t, "tx-slow").Status)
	assert.Equal(t, int64(1), e.counts(t).Available)
	assert.Len(t, e.notifier.to(42), 1)
}
