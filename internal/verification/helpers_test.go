package verification

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

	"github.com/angelmondragon/stashbot/internal/buyers"
	"github.com/angelmondragon/stashbot/internal/idempotency"
	"github.com/angelmondragon/stashbot/internal/inventory"
	"github.com/angelmondragon/stashbot/internal/notifications"
	"github.com/angelmondragon/stashbot/internal/orders"
	"github.com/angelmondragon/stashbot/pkg/db"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
	"github.com/angelmondragon/stashbot/pkg/logger"
)

const testAdminID int64 = 1000

type env struct {
	conn      *gorm.DB
	inventory inventory.Service
	guard     *idempotency.Guard
	buyers    buyers.Service
	repo      orders.Repository
	outbox    notifications.Repository
	coord     orders.Coordinator
	notifier  *recordingNotifier
	finalizer *Finalizer
	logg      *logger.Logger
	product   *models.Product
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dsn := "file:verification_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(models.All()...))

	e := &env{conn: conn, notifier: &recordingNotifier{}}
	e.logg = logger.New(logger.Options{ServiceName: "verification-test", Output: io.Discard})
	e.inventory, err = inventory.NewService(inventory.NewRepository(conn), db.FromConn(conn))
	require.NoError(t, err)
	e.guard, err = idempotency.NewGuard(conn)
	require.NoError(t, err)
	e.buyers, err = buyers.NewService(conn)
	require.NoError(t, err)
	e.repo = orders.NewRepository(conn)
	e.outbox = notifications.NewRepository(conn)
	e.coord, err = orders.NewCoordinator(e.repo, e.inventory, e.guard, nil, nil, e.logg, nil)
	require.NoError(t, err)
	e.finalizer = e.newFinalizer(t, e.notifier)

	e.product, err = e.inventory.CreateProduct(context.Background(), inventory.CreateProductInput{
		Name:      "Widget",
		UnitPrice: decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)
	return e
}

func (e *env) newFinalizer(t *testing.T, notifier Notifier) *Finalizer {
	t.Helper()
	finalizer, err := NewFinalizer(FinalizerDeps{
		Tx:       db.FromConn(e.conn),
		Orders:   e.repo,
		Refs:     e.guard,
		Buyers:   e.buyers,
		Stash:    e.inventory,
		Outbox:   e.outbox,
		Notifier: notifier,
		AdminID:  testAdminID,
		Logger:   e.logg,
	})
	require.NoError(t, err)
	return finalizer
}

// deliveries returns the delivery rows recorded in the outbox.
func (e *env) deliveries(t *testing.T) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, e.conn.Where("kind = ?", enums.NotificationKindDelivery).Order("id").Find(&rows).Error)
	return rows
}

// place stocks one item and reserves it for a fresh order.
func (e *env) place(t *testing.T, ref string) models.PendingOrder {
	t.Helper()
	_, err := e.inventory.AddItem(context.Background(), e.product.ID, inventory.Payload{Content: "code-" + ref})
	require.NoError(t, err)
	placement, err := e.coord.PlaceOrder(context.Background(), orders.PlaceOrderInput{
		BuyerID:            42,
		BuyerUsername:      "alice",
		ProductID:          e.product.ID,
		ProductName:        e.product.Name,
		Amount:             decimal.RequireFromString("0.2"),
		Currency:           enums.CurrencyLTC,
		DestinationAddress: "LTCaddr1234567890abcdef",
		PaymentRef:         ref,
	})
	require.NoError(t, err)
	require.True(t, placement.Reserved())
	return placement.Order
}

func (e *env) order(t *testing.T, ref string) *models.PendingOrder {
	t.Helper()
	order, err := e.repo.FindByRef(context.Background(), ref)
	require.NoError(t, err)
	return order
}

func (e *env) counts(t *testing.T) inventory.Counts {
	t.Helper()
	counts, err := e.inventory.Counts(context.Background(), e.product.ID)
	require.NoError(t, err)
	return counts
}

type notice struct {
	recipient int64
	text      string
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (r *recordingNotifier) Notify(_ context.Context, recipientID int64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice{recipient: recipientID, text: text})
}

func (r *recordingNotifier) to(recipient int64) []notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notice
	for _, n := range r.notices {
		if n.recipient == recipient {
			out = append(out, n)
		}
	}
	return out
}

// scriptedSource replays results in order and repeats the last one.
type scriptedSource struct {
	mu      sync.Mutex
	results []enums.PaymentCheck
	errs    []error
	calls   int
}

func (s *scriptedSource) CheckPayment(context.Context, string, decimal.Decimal, string) (enums.PaymentCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if len(s.results) == 0 {
		return enums.PaymentCheckPending, err
	}
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i], err
}

func (s *scriptedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
