package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/stashbot/internal/app"
	"github.com/angelmondragon/stashbot/pkg/config"
	"github.com/angelmondragon/stashbot/pkg/instance"
	"github.com/angelmondragon/stashbot/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "bot"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "bot",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	application, err := app.New(context.Background(), cfg, logg, app.Options{Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap bot", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logg.Error(context.Background(), "error closing connections", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"currency": cfg.Store.Currency,
		"instance": instance.GetID(),
	})

	resumed, err := application.ResumePending(ctx)
	if err != nil {
		logg.Error(ctx, "failed to resume pending orders", err)
	} else if resumed > 0 {
		logg.Info(logg.WithField(ctx, "resumed", resumed), "verification resumed for pending orders")
	}

	if err := run(ctx, logg, application, addr); err != nil {
		logg.Error(ctx, "bot stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "bot shut down gracefully")
}

func run(ctx context.Context, logg *logger.Logger, application *app.App, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              addr,
		Handler:           application.Router(prometheus.DefaultGatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The dispatcher outlives the supervisor so late verdicts still reach the outbox.
	dispatchCtx, cancelDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return application.Dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		if err := application.Cron.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logg.Info(ctx, "starting http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err := multierr.Combine(
			server.Shutdown(shutdownCtx),
			application.Supervisor.Shutdown(shutdownCtx),
		)
		cancelDispatch()
		return err
	})
	return g.Wait()
}
