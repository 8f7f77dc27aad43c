package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stashbot/internal/notifications"
	"github.com/angelmondragon/stashbot/internal/orders"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
	"github.com/angelmondragon/stashbot/pkg/logger"
	"github.com/angelmondragon/stashbot/pkg/metrics"
)

const (
	ReasonNotFound       = "payment not found"
	ReasonAmountMismatch = "amount mismatch"
	ReasonTimeout        = "payment not confirmed in time"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type refMarker interface {
	MarkUsedWithin(ctx context.Context, tx *gorm.DB, ref string) error
}

type buyerCredit interface {
	CreditPurchaseWithin(ctx context.Context, tx *gorm.DB, buyerID int64, amount decimal.Decimal) error
}

type stash interface {
	ReleaseWithin(ctx context.Context, tx *gorm.DB, itemID uint) error
	ItemWithin(ctx context.Context, tx *gorm.DB, itemID uint) (*models.StashItem, error)
}

// Notifier is the best-effort outbound channel to buyers and the admin.
type Notifier interface {
	Notify(ctx context.Context, recipientID int64, text string)
}

// Finalizer applies terminal transitions to pending orders. Every transition is
// conditional on the order still being pending, so concurrent finalizers for one
// reference apply side effects at most once.
type Finalizer struct {
	tx       txRunner
	orders   orders.Repository
	refs     refMarker
	buyers   buyerCredit
	stash    stash
	outbox   notifications.Repository
	notifier Notifier
	adminID  int64
	logg     *logger.Logger
	metrics  *metrics.OrderMetrics
	now      func() time.Time
}

// FinalizerDeps groups the collaborators of a Finalizer.
type FinalizerDeps struct {
	Tx       txRunner
	Orders   orders.Repository
	Refs     refMarker
	Buyers   buyerCredit
	Stash    stash
	Outbox   notifications.Repository
	Notifier Notifier
	AdminID  int64
	Logger   *logger.Logger
	Metrics  *metrics.OrderMetrics
}

func NewFinalizer(deps FinalizerDeps) (*Finalizer, error) {
	switch {
	case deps.Tx == nil:
		return nil, errors.New("transaction runner required")
	case deps.Orders == nil:
		return nil, errors.New("orders repository required")
	case deps.Refs == nil:
		return nil, errors.New("payment ref guard required")
	case deps.Buyers == nil:
		return nil, errors.New("buyer service required")
	case deps.Stash == nil:
		return nil, errors.New("stash required")
	case deps.Outbox == nil:
		return nil, errors.New("outbox repository required")
	case deps.Notifier == nil:
		return nil, errors.New("notifier required")
	case deps.Logger == nil:
		return nil, errors.New("logger required")
	}
	return &Finalizer{
		tx:       deps.Tx,
		orders:   deps.Orders,
		refs:     deps.Refs,
		buyers:   deps.Buyers,
		stash:    deps.Stash,
		outbox:   deps.Outbox,
		notifier: deps.Notifier,
		adminID:  deps.AdminID,
		logg:     deps.Logger,
		metrics:  deps.Metrics,
		now:      time.Now,
	}, nil
}

// Verify marks the order verified, burns the reference, credits the buyer and
// records the stash delivery in one transaction. It reports false when the
// order had already left pending.
func (f *Finalizer) Verify(ctx context.Context, order models.PendingOrder) (bool, error) {
	ctx = f.scope(ctx, order)
	applied, delivered := false, false
	err := f.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := f.orders.WithTx(tx).Resolve(ctx, order.PaymentRef, enums.OrderStatusVerified, nil, f.now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve order")
		}
		if !ok {
			return nil
		}
		if err := f.refs.MarkUsedWithin(ctx, tx, order.PaymentRef); err != nil {
			return err
		}
		if err := f.buyers.CreditPurchaseWithin(ctx, tx, order.BuyerID, order.Amount); err != nil {
			return err
		}
		if delivered, err = f.recordDelivery(ctx, tx, order); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		f.logg.Error(ctx, "verify order failed", err)
		return false, err
	}
	if !applied {
		f.logg.Info(ctx, "order already finalized")
		return false, nil
	}

	f.metrics.IncResolved(enums.OrderStatusVerified.String())
	f.logg.Info(ctx, "order verified")
	if !delivered {
		f.logg.Warn(ctx, "verified order has no deliverable stash item")
		f.notifier.Notify(ctx, f.adminID, fmt.Sprintf("Delivery of order %s failed: stash item unavailable", order.PaymentRef))
	}
	f.notifier.Notify(ctx, f.adminID, fmt.Sprintf(
		"Order %s verified: %s for %s %s by %s",
		order.PaymentRef, order.ProductName, order.Amount.String(), order.Currency, buyerLabel(order),
	))
	return true, nil
}

// recordDelivery writes the buyer's delivery row through tx. A missing stash
// item is reported as undelivered rather than failing the verification, since
// the payment is already confirmed.
func (f *Finalizer) recordDelivery(ctx context.Context, tx *gorm.DB, order models.PendingOrder) (bool, error) {
	if order.StashItemID == nil {
		return false, nil
	}
	item, err := f.stash.ItemWithin(ctx, tx, *order.StashItemID)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	row := notifications.Delivery(order.BuyerID, *item, order.PaymentRef,
		fmt.Sprintf("Payment confirmed. Here is your %s.", order.ProductName))
	if err := f.outbox.WithTx(tx).Create(ctx, row); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record delivery")
	}
	return true, nil
}

// Reject resolves the order as rejected and returns its stash item to the pool.
func (f *Finalizer) Reject(ctx context.Context, order models.PendingOrder, reason string) (bool, error) {
	applied, err := f.release(ctx, order, enums.OrderStatusRejected, reason)
	if err != nil || !applied {
		return applied, err
	}
	f.notifier.Notify(ctx, order.BuyerID, fmt.Sprintf("Payment %s was rejected: %s.", order.PaymentRef, reason))
	f.notifier.Notify(ctx, f.adminID, fmt.Sprintf("Order %s rejected (%s) for %s", order.PaymentRef, reason, buyerLabel(order)))
	return true, nil
}

// Timeout resolves the order as timed out and returns its stash item to the pool.
func (f *Finalizer) Timeout(ctx context.Context, order models.PendingOrder) (bool, error) {
	applied, err := f.release(ctx, order, enums.OrderStatusTimeout, ReasonTimeout)
	if err != nil || !applied {
		return applied, err
	}
	f.notifier.Notify(ctx, order.BuyerID, fmt.Sprintf("Payment %s could not be confirmed in time. Your reservation was released.", order.PaymentRef))
	f.notifier.Notify(ctx, f.adminID, fmt.Sprintf("Order %s timed out for %s", order.PaymentRef, buyerLabel(order)))
	return true, nil
}

func (f *Finalizer) release(ctx context.Context, order models.PendingOrder, status enums.OrderStatus, reason string) (bool, error) {
	ctx = f.scope(ctx, order)
	applied := false
	err := f.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := f.orders.WithTx(tx).Resolve(ctx, order.PaymentRef, status, &reason, f.now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve order")
		}
		if !ok {
			return nil
		}
		if order.StashItemID != nil {
			if err := f.stash.ReleaseWithin(ctx, tx, *order.StashItemID); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		f.logg.Error(ctx, "finalize order failed", err)
		return false, err
	}
	if !applied {
		f.logg.Info(ctx, "order already finalized")
		return false, nil
	}
	f.metrics.IncResolved(status.String())
	f.logg.Info(f.logg.WithFields(ctx, map[string]any{"status": status.String(), "reason": reason}), "order released")
	return true, nil
}

func (f *Finalizer) scope(ctx context.Context, order models.PendingOrder) context.Context {
	ctx = f.logg.WithPaymentRef(ctx, order.PaymentRef)
	ctx = f.logg.WithBuyerID(ctx, order.BuyerID)
	return f.logg.WithOrderID(ctx, order.ID)
}

func buyerLabel(order models.PendingOrder) string {
	if order.BuyerUsername != "" {
		return "@" + order.BuyerUsername
	}
	return fmt.Sprintf("buyer %d", order.BuyerID)
}
