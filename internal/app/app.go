package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/stashbot/api/routes"
	"github.com/angelmondragon/stashbot/internal/buyers"
	"github.com/angelmondragon/stashbot/internal/cron"
	"github.com/angelmondragon/stashbot/internal/idempotency"
	"github.com/angelmondragon/stashbot/internal/inventory"
	"github.com/angelmondragon/stashbot/internal/notifications"
	"github.com/angelmondragon/stashbot/internal/orders"
	"github.com/angelmondragon/stashbot/internal/pricing"
	"github.com/angelmondragon/stashbot/internal/sessions"
	"github.com/angelmondragon/stashbot/internal/stats"
	"github.com/angelmondragon/stashbot/internal/verification"
	"github.com/angelmondragon/stashbot/internal/wallets"
	"github.com/angelmondragon/stashbot/pkg/blockcypher"
	"github.com/angelmondragon/stashbot/pkg/coingecko"
	"github.com/angelmondragon/stashbot/pkg/config"
	"github.com/angelmondragon/stashbot/pkg/db"
	"github.com/angelmondragon/stashbot/pkg/enums"
	"github.com/angelmondragon/stashbot/pkg/logger"
	"github.com/angelmondragon/stashbot/pkg/metrics"
	"github.com/angelmondragon/stashbot/pkg/migrate"
	"github.com/angelmondragon/stashbot/pkg/redis"
)

const cronLockName = "cron"

// Options override the collaborators New would otherwise build from config.
type Options struct {
	DB         *db.Client
	Rates      pricing.Source
	Verifier   verification.Source
	Registerer prometheus.Registerer
}

// App holds every wired service of one stashbot process.
type App struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client

	Inventory     inventory.Service
	Wallets       wallets.Service
	Buyers        buyers.Service
	Stats         stats.Service
	Sessions      sessions.Service
	Orders        orders.Coordinator
	OrderRepo     orders.Repository
	Notifications notifications.Service
	Outbox        notifications.Repository

	Dispatcher *notifications.Dispatcher
	Finalizer  *verification.Finalizer
	Supervisor *verification.Supervisor
	Cron       *cron.Service

	ownsDB bool
}

// New connects storage and wires the order pipeline. The caller must Close the
// returned App.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	a := &App{Config: cfg, Logger: logg, DB: opts.DB}
	if a.DB == nil {
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		a.DB = client
		a.ownsDB = true
		if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
			return nil, multierr.Append(fmt.Errorf("dev migrations: %w", err), a.Close())
		}
	}

	if cfg.Redis.Enabled() {
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("bootstrap redis: %w", err), a.Close())
		}
		a.Redis = client
	}

	if err := a.wire(cfg, logg, opts, reg); err != nil {
		return nil, multierr.Append(err, a.Close())
	}
	return a, nil
}

func (a *App) wire(cfg *config.Config, logg *logger.Logger, opts Options, reg prometheus.Registerer) error {
	conn := a.DB.DB()
	orderMetrics := metrics.NewOrderMetrics(reg)

	currency, err := enums.ParseCurrency(cfg.Store.Currency)
	if err != nil {
		return err
	}

	if a.Inventory, err = inventory.NewService(inventory.NewRepository(conn), a.DB); err != nil {
		return err
	}
	if a.Wallets, err = wallets.NewService(conn); err != nil {
		return err
	}
	if a.Buyers, err = buyers.NewService(conn); err != nil {
		return err
	}
	if a.Stats, err = stats.NewService(conn); err != nil {
		return err
	}
	guard, err := idempotency.NewGuard(conn)
	if err != nil {
		return err
	}

	rates, err := a.rateSource(cfg, logg, opts.Rates)
	if err != nil {
		return err
	}
	store, sweeper, err := a.sessionStore(cfg)
	if err != nil {
		return err
	}
	if a.Sessions, err = sessions.NewService(store, a.Inventory, a.Wallets, rates, sessions.Options{
		Currency:  currency,
		URIScheme: cfg.Store.URIScheme,
		TTL:       cfg.Store.SessionTTL,
	}); err != nil {
		return err
	}

	a.Outbox = notifications.NewRepository(conn)
	if a.Notifications, err = notifications.NewService(a.Outbox); err != nil {
		return err
	}
	if a.Dispatcher, err = notifications.NewDispatcher(logg, notifications.DispatcherOptions{
		QueueSize: cfg.Notifications.QueueSize,
		Workers:   cfg.Notifications.Workers,
		Metrics:   orderMetrics,
	}, notifications.StoreSink(a.Outbox), notifications.LogSink(logg)); err != nil {
		return err
	}

	a.OrderRepo = orders.NewRepository(conn)
	if a.Finalizer, err = verification.NewFinalizer(verification.FinalizerDeps{
		Tx:       a.DB,
		Orders:   a.OrderRepo,
		Refs:     guard,
		Buyers:   a.Buyers,
		Stash:    a.Inventory,
		Outbox:   a.Outbox,
		Notifier: a.Dispatcher,
		AdminID:  cfg.Admin.ChatID,
		Logger:   logg,
		Metrics:  orderMetrics,
	}); err != nil {
		return err
	}

	verifier := opts.Verifier
	if verifier == nil {
		verifier = blockcypher.NewClient(
			blockcypher.WithBaseURL(cfg.Verification.BaseURL),
			blockcypher.WithToken(cfg.Verification.Token),
			blockcypher.WithMinConfirmations(cfg.Verification.MinConfirmations),
			blockcypher.WithHTTPClient(&http.Client{Timeout: cfg.Verification.Timeout}),
		)
	}
	if a.Supervisor, err = verification.NewSupervisor(verifier, a.Finalizer, a.OrderRepo, verification.Options{
		InitialDelay: cfg.Verification.InitialDelay,
		Interval:     cfg.Verification.Interval,
		MaxAttempts:  cfg.Verification.MaxAttempts,
	}, logg, orderMetrics); err != nil {
		return err
	}

	if a.Orders, err = orders.NewCoordinator(a.OrderRepo, a.Inventory, guard, a.Sessions, a.Supervisor, logg, orderMetrics); err != nil {
		return err
	}

	return a.wireCron(cfg, logg, reg, sweeper)
}

func (a *App) rateSource(cfg *config.Config, logg *logger.Logger, override pricing.Source) (pricing.Source, error) {
	if override != nil {
		return override, nil
	}
	source := coingecko.NewClient(
		coingecko.WithBaseURL(cfg.Pricing.BaseURL),
		coingecko.WithAPIKey(cfg.Pricing.APIKey),
		coingecko.WithQuote(cfg.Pricing.QuoteCurrency),
		coingecko.WithAsset(enums.Currency(cfg.Store.Currency), cfg.Pricing.AssetID),
		coingecko.WithHTTPClient(&http.Client{Timeout: cfg.Pricing.Timeout}),
	)
	if a.Redis == nil {
		return source, nil
	}
	return pricing.NewCachedSource(source, a.Redis, source.Quote(), 0, logg)
}

func (a *App) sessionStore(cfg *config.Config) (sessions.Store, *sessions.MemoryStore, error) {
	if a.Redis == nil || cfg.FeatureFlags.MemorySessions {
		mem := sessions.NewMemoryStore()
		return mem, mem, nil
	}
	store, err := sessions.NewRedisStore(a.Redis)
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}

func (a *App) wireCron(cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer, sweeper *sessions.MemoryStore) error {
	reconcile, err := cron.NewReconcileJob(cron.ReconcileJobParams{
		Logger:    logg,
		Orders:    a.OrderRepo,
		Finalizer: a.Finalizer,
		Workers:   a.Supervisor,
		Window:    cfg.Verification.Window(),
		Grace:     cfg.Reconcile.Grace,
	})
	if err != nil {
		return err
	}
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: a.Outbox,
		Retention:  cfg.Notifications.Retention,
	})
	if err != nil {
		return err
	}
	registry := cron.NewRegistry(reconcile, cleanup)
	if sweeper != nil {
		sweep, err := cron.NewSessionSweepJob(logg, sweeper)
		if err != nil {
			return err
		}
		registry.Register(sweep)
	}

	var lock cron.Lock = cron.NewLocalLock()
	if a.Redis != nil {
		redisLock, err := cron.NewRedisLock(a.Redis, a.Redis.LockKey(cronLockName), 0)
		if err != nil {
			return err
		}
		lock = redisLock
	}

	a.Cron, err = cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: cfg.Reconcile.Interval,
	})
	return err
}

// Router builds the HTTP surface over the wired services.
func (a *App) Router(gatherer prometheus.Gatherer) http.Handler {
	return routes.NewRouter(routes.Deps{
		Config:        a.Config,
		Logger:        a.Logger,
		DB:            a.DB,
		Redis:         a.Redis,
		Gatherer:      gatherer,
		Inventory:     a.Inventory,
		Buyers:        a.Buyers,
		Wallets:       a.Wallets,
		Sessions:      a.Sessions,
		Orders:        a.Orders,
		Notifications: a.Notifications,
		Stats:         a.Stats,
	})
}

// ResumePending restarts verification for orders still inside their window.
// Older orders are left to the reconcile job.
func (a *App) ResumePending(ctx context.Context) (int, error) {
	since := time.Now().UTC().Add(-a.Config.Verification.Window())
	pending, err := a.OrderRepo.ListPendingSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list pending orders: %w", err)
	}
	return a.Supervisor.Resume(pending), nil
}

// Close releases the connections New opened.
func (a *App) Close() error {
	var err error
	if a.Redis != nil {
		err = multierr.Append(err, a.Redis.Close())
	}
	if a.ownsDB && a.DB != nil {
		err = multierr.Append(err, a.DB.Close())
	}
	return err
}
