package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/stashbot/internal/idempotency"
	"github.com/angelmondragon/stashbot/internal/inventory"
	"github.com/angelmondragon/stashbot/internal/sessions"
	"github.com/angelmondragon/stashbot/pkg/db"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
	"github.com/angelmondragon/stashbot/pkg/logger"
	"github.com/angelmondragon/stashbot/pkg/metrics"
)

const defaultHistoryLimit = 20

var (
	ErrDuplicateRef  = pkgerrors.New(pkgerrors.CodeDuplicateRef, "payment reference already used")
	ErrOrderNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
)

type stash interface {
	ReserveOne(ctx context.Context, productID uint) (*models.StashItem, error)
	Release(ctx context.Context, itemID uint) error
}

type refGuard interface {
	IsUsed(ctx context.Context, ref string) (bool, error)
}

type sessionStore interface {
	Get(ctx context.Context, buyerID int64) (*sessions.Session, error)
	Cancel(ctx context.Context, buyerID int64) error
}

// WorkerStarter launches verification for a freshly reserved order.
type WorkerStarter interface {
	Start(order models.PendingOrder) bool
}

// Coordinator turns payment claims into reserved pending orders.
type Coordinator interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Placement, error)
	Submit(ctx context.Context, input SubmitInput) (*Placement, error)
	GetOrder(ctx context.Context, ref string) (*models.PendingOrder, error)
	ListBuyerOrders(ctx context.Context, buyerID int64, limit int) ([]models.PendingOrder, error)
}

type coordinator struct {
	repo     Repository
	stash    stash
	guard    refGuard
	sessions sessionStore
	workers  WorkerStarter
	logg     *logger.Logger
	metrics  *metrics.OrderMetrics
}

// NewCoordinator wires the reservation path. sessions and workers may be nil for
// callers that only use PlaceOrder; m may be nil.
func NewCoordinator(repo Repository, stash stash, guard refGuard, sessions sessionStore, workers WorkerStarter, logg *logger.Logger, m *metrics.OrderMetrics) (Coordinator, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stash == nil {
		return nil, fmt.Errorf("stash required")
	}
	if guard == nil {
		return nil, fmt.Errorf("payment ref guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &coordinator{
		repo:     repo,
		stash:    stash,
		guard:    guard,
		sessions: sessions,
		workers:  workers,
		logg:     logg,
		metrics:  m,
	}, nil
}

func (c *coordinator) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Placement, error) {
	ref, err := idempotency.NormalizeRef(input.PaymentRef)
	if err != nil {
		return nil, err
	}
	input.PaymentRef = ref
	ctx = c.logg.WithPaymentRef(c.logg.WithBuyerID(ctx, input.BuyerID), ref)

	if err := c.ensureFreshRef(ctx, ref); err != nil {
		return nil, err
	}

	item, err := c.stash.ReserveOne(ctx, input.ProductID)
	if errors.Is(err, inventory.ErrNoStock) {
		return c.recordStockError(ctx, input)
	}
	if err != nil {
		c.logg.Error(ctx, "reserve stash item failed", err)
		return nil, err
	}

	itemID := item.ID
	order := newOrder(input, enums.OrderStatusPending)
	order.StashItemID = &itemID
	if err := c.repo.Create(ctx, &order); err != nil {
		c.compensate(ctx, itemID)
		if db.IsUniqueViolation(err, "") {
			return nil, ErrDuplicateRef
		}
		c.logg.Error(ctx, "persist pending order failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist pending order")
	}

	c.metrics.IncPlaced(string(OutcomeReserved))
	c.logg.Info(c.logg.WithOrderID(ctx, order.ID), "stash item reserved")
	return &Placement{Outcome: OutcomeReserved, Order: order, StashItemID: itemID}, nil
}

func (c *coordinator) ensureFreshRef(ctx context.Context, ref string) error {
	exists, err := c.repo.ExistsByRef(ctx, ref)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending orders")
	}
	if exists {
		return ErrDuplicateRef
	}
	used, err := c.guard.IsUsed(ctx, ref)
	if err != nil {
		return err
	}
	if used {
		return ErrDuplicateRef
	}
	return nil
}

func (c *coordinator) recordStockError(ctx context.Context, input PlaceOrderInput) (*Placement, error) {
	order := newOrder(input, enums.OrderStatusStockError)
	now := time.Now().UTC()
	order.ResolvedAt = &now
	if err := c.repo.Create(ctx, &order); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, ErrDuplicateRef
		}
		c.logg.Error(ctx, "record stock error failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock error")
	}
	c.metrics.IncPlaced(string(OutcomeNoStock))
	c.logg.Warn(c.logg.WithOrderID(ctx, order.ID), "no stock for paid order")
	return &Placement{Outcome: OutcomeNoStock, Order: order}, nil
}

func (c *coordinator) compensate(ctx context.Context, itemID uint) {
	if err := c.stash.Release(ctx, itemID); err != nil {
		c.logg.Error(c.logg.WithField(ctx, "stash_item_id", itemID), "release after failed order insert", err)
	}
}

func newOrder(input PlaceOrderInput, status enums.OrderStatus) models.PendingOrder {
	return models.PendingOrder{
		PaymentRef:         input.PaymentRef,
		BuyerID:            input.BuyerID,
		BuyerUsername:      input.BuyerUsername,
		ProductID:          input.ProductID,
		ProductName:        input.ProductName,
		Amount:             input.Amount,
		Currency:           input.Currency,
		DestinationAddress: input.DestinationAddress,
		Status:             status,
	}
}

// Submit places an order for the buyer's active session. The session survives a
// duplicate reference so the buyer can retry with another one.
func (c *coordinator) Submit(ctx context.Context, input SubmitInput) (*Placement, error) {
	if c.sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session store not configured")
	}
	session, err := c.sessions.Get(ctx, input.BuyerID)
	if err != nil {
		return nil, err
	}

	placement, err := c.PlaceOrder(ctx, PlaceOrderInput{
		BuyerID:            input.BuyerID,
		BuyerUsername:      input.BuyerUsername,
		ProductID:          session.ProductID,
		ProductName:        session.ProductName,
		Amount:             session.Amount,
		Currency:           session.Currency,
		DestinationAddress: session.DestinationAddress,
		PaymentRef:         input.PaymentRef,
	})
	if err != nil {
		return nil, err
	}

	if err := c.sessions.Cancel(ctx, input.BuyerID); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "clear session failed")
	}
	if placement.Reserved() && c.workers != nil {
		c.workers.Start(placement.Order)
	}
	return placement, nil
}

func (c *coordinator) GetOrder(ctx context.Context, ref string) (*models.PendingOrder, error) {
	normalized, err := idempotency.NormalizeRef(ref)
	if err != nil {
		return nil, err
	}
	order, err := c.repo.FindByRef(ctx, normalized)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (c *coordinator) ListBuyerOrders(ctx context.Context, buyerID int64, limit int) ([]models.PendingOrder, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	out, err := c.repo.ListByBuyer(ctx, buyerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return out, nil
}
