package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ledgerlite/internal/accounts"
	"ledgerlite/internal/amqp"
	"ledgerlite/internal/backend"
	"ledgerlite/internal/cache"
	"ledgerlite/internal/cli"
	"ledgerlite/internal/config"
	httpserver "ledgerlite/internal/http"
	"ledgerlite/internal/log"
	"ledgerlite/internal/middleware/ratelimit"
	"ledgerlite/internal/services"
	"ledgerlite/internal/session"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentApp, "info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(log.ComponentApp, cfg.LogLevel)

	if err := run(logger, cfg); err != nil {
		logger.Error("Server failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *log.Logger, cfg *config.Config) error {
	instanceID := uuid.NewString()
	logger = logger.With(log.FieldInstanceID, instanceID)

	bcfg, err := backend.FromAppConfig(cfg, instanceID)
	if err != nil {
		return err
	}
	infra, err := backend.NewFactory(logger.Slog()).Create(context.Background(), bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := infra.Cleanup(); err != nil {
			logger.Error("Failed to release backends", log.FieldError, err)
		}
	}()

	// A nil *amqp.Client must not reach the interface-typed options.
	hubOpts := []session.Option{session.WithLogger(logger.WithComponent(log.ComponentSession).Slog())}
	var publisher services.SyncPublisher
	if infra.Broker != nil {
		hubOpts = append(hubOpts, session.WithPublisher(infra.Broker))
		publisher = infra.Broker
	}
	hub := session.NewHub(infra.Sessions, hubOpts...)

	tokens, err := accounts.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	caches := infra.Caches
	if caches == nil {
		caches = cache.NewManager()
		caches.StartCleanup(time.Minute)
		defer caches.Stop()
	}

	checks := map[string]httpserver.ReadyCheck{"data": infra.Data.Ping}
	if infra.Broker != nil {
		broker := infra.Broker
		checks["amqp"] = func(context.Context) error {
			if !broker.Healthy() {
				return errors.New("broker connection is down")
			}
			return nil
		}
	}

	srv, err := httpserver.NewServer(":"+cfg.Port, httpserver.Deps{
		Hub:          hub,
		Accounts:     accounts.NewService(infra.Data, tokens),
		Expenses:     services.NewExpenseService(infra.Data, publisher),
		Caches:       caches,
		Logger:       logger,
		CookieSecure: cfg.CookieSecure,
		RateLimit:    ratelimit.DefaultConfig(),
		ReadyChecks:  checks,
	})
	if err != nil {
		return err
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting LedgerLite server",
			"port", cfg.Port,
			"data_backend", cfg.DataBackend,
			"session_backend", cfg.SessionBackend,
			"amqp_enabled", infra.Broker != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if infra.Broker != nil {
		g.Go(func() error {
			err := infra.Broker.ConsumeSessionChanges(gctx, hub)
			switch {
			case err == nil, errors.Is(err, context.Canceled), errors.Is(err, amqp.ErrSessionFanoutDisabled):
			default:
				// Cross-instance notifications stop; local tabs keep working.
				logger.Error("Session fanout stopped", log.FieldError, err)
			}
			return nil
		})
	}

	err = g.Wait()
	if ctx.Err() != nil {
		<-done
	}
	return err
}
