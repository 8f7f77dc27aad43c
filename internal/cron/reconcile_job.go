package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/logger"
)

const defaultReconcileBatch = 100

// ReconcileJobParams configure the stale pending order sweep.
type ReconcileJobParams struct {
	Logger    *logger.Logger
	Orders    stalePendingReader
	Finalizer orderTimeouter
	Workers   workerRegistry
	Window    time.Duration
	Grace     time.Duration
	BatchSize int
}

type stalePendingReader interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.PendingOrder, error)
}

type orderTimeouter interface {
	Timeout(ctx context.Context, order models.PendingOrder) (bool, error)
}

type workerRegistry interface {
	Active(ref string) bool
}

// NewReconcileJob builds the job that times out pending orders no worker will
// ever finish, such as those orphaned by a restart.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Finalizer == nil {
		return nil, fmt.Errorf("finalizer required")
	}
	if params.Window <= 0 {
		return nil, fmt.Errorf("verification window must be positive")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &reconcileJob{
		logg:      params.Logger,
		orders:    params.Orders,
		finalizer: params.Finalizer,
		workers:   params.Workers,
		window:    params.Window,
		grace:     params.Grace,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type reconcileJob struct {
	logg      *logger.Logger
	orders    stalePendingReader
	finalizer orderTimeouter
	workers   workerRegistry
	window    time.Duration
	grace     time.Duration
	batch     int
	now       func() time.Time
}

func (j *reconcileJob) Name() string { return "pending-order-reconcile" }

func (j *reconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-(j.window + j.grace))
	stale, err := j.orders.ListStalePending(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs error
	timedOut, skipped := 0, 0
	for _, order := range stale {
		if j.workers != nil && j.workers.Active(order.PaymentRef) {
			skipped++
			continue
		}
		applied, err := j.finalizer.Timeout(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("timeout order %s: %w", order.PaymentRef, err))
			continue
		}
		if applied {
			timedOut++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"found":     len(stale),
		"timed_out": timedOut,
		"skipped":   skipped,
	})
	j.logg.Info(logCtx, "pending order reconcile complete")
	return errs
}
