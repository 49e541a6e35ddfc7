// Package app wires configuration, storage and services into a running guard.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/loginguard/internal/auth"
	"github.com/BradenHooton/loginguard/internal/cache"
	"github.com/BradenHooton/loginguard/internal/config"
	"github.com/BradenHooton/loginguard/internal/database"
	"github.com/BradenHooton/loginguard/internal/metrics"
	"github.com/BradenHooton/loginguard/internal/notify"
	"github.com/BradenHooton/loginguard/internal/repositories"
	"github.com/BradenHooton/loginguard/internal/services"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App holds the wired services shared by the API server and the admin CLI
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *database.DB
	Registry *prometheus.Registry
	Redis    *cache.RedisInvalidator

	Tokens        *auth.TokenManager
	SecurityCfg   *services.SecurityConfigService
	Notifications *services.NotificationService
	Lockouts      *services.LockoutService
	Guard         *services.LoginGuard
	Retention     *services.RetentionService
	Overview      *services.SecurityOverviewService
}

// New connects to storage and builds every service. The caller owns Close.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, DB: db}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	logger := a.Logger

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(a.Registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	// Repositories
	attemptRepo := repositories.NewLoginAttemptRepository(a.DB)
	lockoutRepo := repositories.NewAccountLockoutRepository(a.DB)
	configRepo := repositories.NewSecurityConfigRepository(a.DB)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Cross-instance config invalidation
	var invalidator cache.Invalidator = cache.NoopInvalidator{}
	if cfg.Cache.RedisURL != "" {
		a.Redis, err = cache.NewRedisInvalidator(cfg.Cache.RedisURL, uuid.NewString(), logger)
		if err != nil {
			return err
		}
		invalidator = a.Redis
		logger.Info("redis config invalidation enabled",
			pkglogger.RedactedAttr("redis_url", cfg.Cache.RedisURL, cfg.Server.Env))
	}
	a.SecurityCfg = services.NewSecurityConfigService(configRepo, cfg.Cache.SecurityConfigTTL, invalidator, auditLogger, logger)

	// Notification channels
	location, err := time.LoadLocation(cfg.Notify.Timezone)
	if err != nil {
		return fmt.Errorf("invalid notification timezone: %w", err)
	}
	channels := []notify.Channel{
		notify.NewTelegramChannel(cfg.Notify.TelegramAPIBase, &http.Client{Timeout: cfg.Notify.Timeout}),
	}
	if cfg.Notify.EmailAlertsEnabled() {
		ses, err := notify.NewSESChannel(ctx, cfg.Notify.AWSRegion, cfg.Notify.EmailFrom, cfg.Notify.EmailTo)
		if err != nil {
			return fmt.Errorf("failed to initialize email alerts: %w", err)
		}
		channels = append(channels, ses)
	}
	a.Notifications = services.NewNotificationService(a.SecurityCfg, channels, location, cfg.Notify.Timeout, cfg.Notify.MaxInflight, m, logger)

	// Lockout evaluation
	a.Lockouts = services.NewLockoutService(lockoutRepo, attemptRepo, a.DB, a.SecurityCfg, a.Notifications, m, auditLogger, logger)
	a.Lockouts.SetNotifyOnFailedLogin(cfg.Notify.OnFailedLogin)

	timing := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})
	recorder := services.NewAttemptRecorder(attemptRepo, m, logger)
	a.Guard = services.NewLoginGuard(recorder, a.Lockouts, timing)

	a.Retention = services.NewRetentionService(attemptRepo, a.SecurityCfg, cfg.Retention.BatchSize, m, auditLogger, logger)
	a.Overview = services.NewSecurityOverviewService(attemptRepo, lockoutRepo, a.SecurityCfg)

	a.Tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenIssuer, cfg.Auth.DefaultTokenTTL)
	return nil
}

// Close waits for queued notifications and releases connections
func (a *App) Close() {
	if a.Notifications != nil {
		a.Notifications.Wait()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", slog.Any("error", err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
