package verification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
	"github.com/angelmondragon/stashbot/pkg/logger"
	"github.com/angelmondragon/stashbot/pkg/metrics"
)

const (
	DefaultInitialDelay = 10 * time.Second
	DefaultInterval     = time.Minute
	DefaultMaxAttempts  = 10
)

// Source answers whether a payment reference settled the expected amount.
type Source interface {
	CheckPayment(ctx context.Context, ref string, expected decimal.Decimal, address string) (enums.PaymentCheck, error)
}

type finalizer interface {
	Verify(ctx context.Context, order models.PendingOrder) (bool, error)
	Reject(ctx context.Context, order models.PendingOrder, reason string) (bool, error)
	Timeout(ctx context.Context, order models.PendingOrder) (bool, error)
}

type attemptRecorder interface {
	IncrementAttempts(ctx context.Context, ref string) error
}

// Options sets the polling schedule.
type Options struct {
	InitialDelay time.Duration
	Interval     time.Duration
	MaxAttempts  int
}

func (o Options) withDefaults() Options {
	if o.InitialDelay < 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// Supervisor owns one polling worker per pending order.
type Supervisor struct {
	source    Source
	finalizer finalizer
	attempts  attemptRecorder
	opts      Options
	logg      *logger.Logger
	metrics   *metrics.OrderMetrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	workers map[string]struct{}
	stopped bool
}

func NewSupervisor(source Source, fin finalizer, attempts attemptRecorder, opts Options, logg *logger.Logger, m *metrics.OrderMetrics) (*Supervisor, error) {
	if source == nil {
		return nil, errors.New("verification source required")
	}
	if fin == nil {
		return nil, errors.New("finalizer required")
	}
	if attempts == nil {
		return nil, errors.New("attempt recorder required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		source:    source,
		finalizer: fin,
		attempts:  attempts,
		opts:      opts.withDefaults(),
		logg:      logg,
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
		workers:   map[string]struct{}{},
	}, nil
}

// Start launches a worker for order. It is a no-op, returning false, when the
// reference already has a live worker, the order is not pending, or the
// supervisor is shutting down.
func (s *Supervisor) Start(order models.PendingOrder) bool {
	if order.Status != enums.OrderStatusPending {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if _, running := s.workers[order.PaymentRef]; running {
		return false
	}
	s.workers[order.PaymentRef] = struct{}{}
	s.wg.Add(1)
	s.metrics.WorkerStarted()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.workers, order.PaymentRef)
			s.mu.Unlock()
			s.metrics.WorkerStopped()
			s.wg.Done()
		}()
		s.run(s.ctx, order)
	}()
	return true
}

// Active reports whether ref has a live worker.
func (s *Supervisor) Active(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.workers[ref]
	return ok
}

// ActiveCount returns the number of live workers.
func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

// Shutdown cancels every worker and waits for them to return or ctx to expire.
// Interrupted orders stay pending for reconciliation.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) run(ctx context.Context, order models.PendingOrder) {
	logCtx := s.logg.WithOrderID(s.logg.WithPaymentRef(ctx, order.PaymentRef), order.ID)
	s.logg.Debug(logCtx, "verification worker started")

	if !sleep(ctx, s.opts.InitialDelay) {
		return
	}
	for attempt := order.Attempts + 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if attempt > order.Attempts+1 && !sleep(ctx, s.opts.Interval) {
			return
		}
		if done := s.check(ctx, logCtx, order); done {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	if _, err := s.finalizer.Timeout(ctx, order); err != nil {
		s.logg.Error(logCtx, "timeout finalization failed", err)
	}
}

// check runs one poll and reports whether the worker is finished.
func (s *Supervisor) check(ctx, logCtx context.Context, order models.PendingOrder) bool {
	result, err := s.source.CheckPayment(ctx, order.PaymentRef, order.Amount, order.DestinationAddress)
	if ctx.Err() != nil {
		return true
	}
	if recErr := s.attempts.IncrementAttempts(ctx, order.PaymentRef); recErr != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", recErr.Error()), "record attempt failed")
	}
	if err != nil {
		s.metrics.IncCheck("error")
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "payment check failed")
		return false
	}
	s.metrics.IncCheck(result.String())

	switch result {
	case enums.PaymentCheckConfirmed:
		if _, err := s.finalizer.Verify(ctx, order); err != nil {
			s.logg.Error(logCtx, "verify finalization failed; will retry", err)
			return false
		}
		return true
	case enums.PaymentCheckNotFound:
		return s.finish(logCtx, func() (bool, error) { return s.finalizer.Reject(ctx, order, ReasonNotFound) })
	case enums.PaymentCheckAmountMismatch:
		return s.finish(logCtx, func() (bool, error) { return s.finalizer.Reject(ctx, order, ReasonAmountMismatch) })
	default:
		return false
	}
}

func (s *Supervisor) finish(logCtx context.Context, fn func() (bool, error)) bool {
	if _, err := fn(); err != nil {
		s.logg.Error(logCtx, "reject finalization failed", err)
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Resume restarts workers for orders left pending by a previous process and
// returns how many were started.
func (s *Supervisor) Resume(pending []models.PendingOrder) int {
	started := 0
	for _, order := range pending {
		if s.Start(order) {
			started++
		}
	}
	return started
}
