package orders

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stashbot/internal/idempotency"
	"github.com/angelmondragon/stashbot/internal/inventory"
	"github.com/angelmondragon/stashbot/internal/sessions"
	"github.com/angelmondragon/stashbot/pkg/db"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
	"github.com/angelmondragon/stashbot/pkg/logger"
)

type fixture struct {
	conn      *gorm.DB
	inventory inventory.Service
	guard     *idempotency.Guard
	sessions  *fakeSessions
	workers   *recordingWorkers
	coord     Coordinator
	product   *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true, NowFunc: db.UTCNow})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(models.All()...))

	inv, err := inventory.NewService(inventory.NewRepository(conn), db.FromConn(conn))
	require.NoError(t, err)
	guard, err := idempotency.NewGuard(conn)
	require.NoError(t, err)

	product, err := inv.CreateProduct(context.Background(), inventory.CreateProductInput{
		Name:      "Widget",
		UnitPrice: decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)

	f := &fixture{
		conn:      conn,
		inventory: inv,
		guard:     guard,
		sessions:  &fakeSessions{byBuyer: map[int64]sessions.Session{}},
		workers:   &recordingWorkers{},
		product:   product,
	}
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	f.coord, err = NewCoordinator(NewRepository(conn), inv, guard, f.sessions, f.workers, logg, nil)
	require.NoError(t, err)
	return f
}

func (f *fixture) stock(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		_, err := f.inventory.AddItem(context.Background(), f.product.ID, inventory.Payload{Content: line})
		require.NoError(t, err)
	}
}

func (f *fixture) input(ref string) PlaceOrderInput {
	return PlaceOrderInput{
		BuyerID:            77,
		BuyerUsername:      "alice",
		ProductID:          f.product.ID,
		ProductName:        f.product.Name,
		Amount:             decimal.RequireFromString("0.2"),
		Currency:           enums.CurrencyLTC,
		DestinationAddress: "LTCaddr1234567890abcdef",
		PaymentRef:         ref,
	}
}

type fakeSessions struct {
	mu      sync.Mutex
	byBuyer map[int64]sessions.Session
}

func (f *fakeSessions) Get(_ context.Context, buyerID int64) (*sessions.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byBuyer[buyerID]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	return &s, nil
}

func (f *fakeSessions) Cancel(_ context.Context, buyerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byBuyer, buyerID)
	return nil
}

func (f *fakeSessions) has(buyerID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byBuyer[buyerID]
	return ok
}

type recordingWorkers struct {
	mu      sync.Mutex
	started []string
}

func (r *recordingWorkers) Start(order models.PendingOrder) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, order.PaymentRef)
	return true
}
