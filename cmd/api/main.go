package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/loginguard/internal/app"
	"github.com/BradenHooton/loginguard/internal/background"
	"github.com/BradenHooton/loginguard/internal/config"
	"github.com/BradenHooton/loginguard/internal/handlers"
	middlewareCustom "github.com/BradenHooton/loginguard/internal/middleware"
	"github.com/BradenHooton/loginguard/internal/routes"
	"github.com/BradenHooton/loginguard/migrations"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage and services
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", slog.Any("error", err))
		os.Exit(1)
	}
	defer a.Close()

	migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
	err = migrations.Up(migrateCtx, a.DB.Pool)
	cancel()
	if err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Peers invalidate our cached settings when they save
	if a.Redis != nil {
		go a.Redis.Subscribe(ctx, a.SecurityCfg.Invalidate)
	}

	resolver, err := pkghttp.NewIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize handlers
	guardHandler := handlers.NewGuardHandler(a.Guard, logger)
	adminHandler := handlers.NewAdminHandler(a.Lockouts, a.SecurityCfg, a.Retention, a.Overview, a.Notifications, logger)
	deps := map[string]handlers.Pinger{"database": handlers.PingFunc(a.DB.HealthCheck)}
	if a.Redis != nil {
		deps["redis"] = a.Redis
	}
	healthHandler := handlers.NewHealthHandler(deps)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger, resolver))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterOpsRoutes(router, healthHandler, a.Registry, resolver)
	routes.RegisterRoutes(
		router,
		guardHandler,
		adminHandler,
		a.Tokens,
		middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.GuardRateLimitPerMinute},
		logger,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start retention sweeps
	scheduler := background.NewRetentionScheduler(a.Retention, logger, cfg.Retention.SweepInterval)
	go scheduler.Start(ctx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
