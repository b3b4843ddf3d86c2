package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzas/internal/backend"
	"finanzas/internal/cli"
	apphttp "finanzas/internal/http"
	"finanzas/internal/live"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/session"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	logger.Info("Starting finanzas", "port", cfg.Port, "backend", cfg.DataBackend)

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).
		CreateBackend(context.Background(), bc)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", bc.Type)
		os.Exit(1)
	}

	holder := session.NewHolder(cfg.DefaultUser)
	opts := []services.Option{
		services.WithRecentLimit(cfg.RecentLimit),
		services.WithLogger(logger.WithComponent(applog.ComponentLedger).Slog()),
	}
	if result.Publisher != nil {
		opts = append(opts, services.WithPublisher(result.Publisher))
	}
	ledger := services.NewLedger(result.Store, holder, opts...)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:              ":" + cfg.Port,
		DefaultUser:       cfg.DefaultUser,
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Burst:             cfg.RateLimitBurst,
	}, ledger, result.Store, logger.WithComponent(applog.ComponentHTTP))

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	// Log the signed-in user's figures whenever their records change.
	liveLogger := logger.WithComponent(applog.ComponentLive)
	views := live.NewTracker(result.Store, holder, live.WithLogger(liveLogger.Slog())).Run(ctx)
	go func() {
		for v := range views {
			if !v.SignedIn() {
				liveLogger.Debug("Live view cleared")
				continue
			}
			args := []any{applog.FieldUser, v.User, "today", v.Today.String(), "months", len(v.Months)}
			if v.CurrentWeek != nil {
				args = append(args,
					"week_spent", v.CurrentWeek.Spent.StringFixed(2),
					"week_limit", v.CurrentWeek.Limit.StringFixed(2))
			}
			liveLogger.Info("Live view updated", args...)
		}
	}()

	logger.Info("HTTP server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
