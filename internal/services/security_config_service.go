package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BradenHooton/loginguard/internal/cache"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/pkg/logger"
	"github.com/go-playground/validator/v10"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const securityConfigCacheKey = "security_config"

// SecurityConfigRepository defines the storage operations for the settings singleton
type SecurityConfigRepository interface {
	Get(ctx context.Context) (*models.SecurityConfig, error)
	Save(ctx context.Context, cfg *models.SecurityConfig) (*models.SecurityConfig, error)
}

// ConfigProvider supplies the current security settings
type ConfigProvider interface {
	Get(ctx context.Context) (*models.SecurityConfig, error)
}

// SecurityConfigUpdate is an administrator's settings change.
// A nil credential keeps the stored value; an empty string clears it.
type SecurityConfigUpdate struct {
	TelegramBotToken       *string `json:"telegram_bot_token" validate:"omitempty,max=256"`
	TelegramChatID         *string `json:"telegram_chat_id" validate:"omitempty,max=64"`
	MaxFailedAttempts      int     `json:"max_failed_attempts" validate:"gte=3,lte=10"`
	LockoutDurationMinutes int     `json:"lockout_duration_minutes" validate:"gte=15,lte=1440"`
	SessionTimeoutMinutes  int     `json:"session_timeout_minutes" validate:"gte=15,lte=1440"`
	LogRetentionDays       int     `json:"log_retention_days" validate:"gte=7,lte=365"`
}

// SecurityConfigService reads and writes the security settings.
// Reads go through a short-lived in-process cache; a save invalidates it locally
// and, when Redis is configured, on every other instance.
type SecurityConfigService struct {
	repo        SecurityConfigRepository
	cache       *gocache.Cache
	group       singleflight.Group
	generation  atomic.Uint64
	invalidator cache.Invalidator
	validate    *validator.Validate
	audit       *logger.AuditLogger
	logger      *slog.Logger
}

// NewSecurityConfigService creates a new SecurityConfigService
func NewSecurityConfigService(repo SecurityConfigRepository, ttl time.Duration, invalidator cache.Invalidator, audit *logger.AuditLogger, logger *slog.Logger) *SecurityConfigService {
	if invalidator == nil {
		invalidator = cache.NoopInvalidator{}
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &SecurityConfigService{
		repo:        repo,
		cache:       gocache.New(ttl, 2*ttl),
		invalidator: invalidator,
		validate:    v,
		audit:       audit,
		logger:      logger,
	}
}

// Get returns the current settings. A missing row yields the defaults.
// On a storage error the defaults are returned together with the error and nothing is cached.
func (s *SecurityConfigService) Get(ctx context.Context) (*models.SecurityConfig, error) {
	if cached, ok := s.cache.Get(securityConfigCacheKey); ok {
		return copyConfig(cached.(*models.SecurityConfig)), nil
	}

	gen := s.generation.Load()
	v, err, _ := s.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		cfg, err := s.load(ctx)
		if errors.Is(err, models.ErrConfigMissing) {
			cfg, err = models.DefaultSecurityConfig(), nil
		}
		if err != nil {
			return nil, err
		}
		// A save that landed while this load was in flight wins.
		if s.generation.Load() == gen {
			s.cache.SetDefault(securityConfigCacheKey, cfg)
		}
		return cfg, nil
	})
	if err != nil {
		s.logger.Warn("security config unavailable, using defaults", slog.Any("error", err))
		return models.DefaultSecurityConfig(), err
	}

	return copyConfig(v.(*models.SecurityConfig)), nil
}

// load reads the stored row, bypassing the cache. ErrConfigMissing means nothing has been saved yet.
func (s *SecurityConfigService) load(ctx context.Context) (*models.SecurityConfig, error) {
	cfg, err := s.repo.Get(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrConfigMissing
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStorageUnavailable, err)
	}
	return cfg, nil
}

// Save validates and persists an update, then drops every cached copy
func (s *SecurityConfigService) Save(ctx context.Context, actor string, update SecurityConfigUpdate) (*models.SecurityConfig, error) {
	if err := s.validate.Struct(update); err != nil {
		verr := toValidationError(err)
		s.audit.LogConfigChange(ctx, actor, false, verr.Error())
		return nil, verr
	}

	// Stored credentials carry over, so the merge base must be the real row.
	current, err := s.load(ctx)
	if errors.Is(err, models.ErrConfigMissing) {
		current, err = models.DefaultSecurityConfig(), nil
	}
	if err != nil {
		s.audit.LogConfigChange(ctx, actor, false, "storage error")
		return nil, fmt.Errorf("failed to read security config: %w", err)
	}

	next := &models.SecurityConfig{
		ID:                     1,
		TelegramBotToken:       mergeCredential(current.TelegramBotToken, update.TelegramBotToken),
		TelegramChatID:         mergeCredential(current.TelegramChatID, update.TelegramChatID),
		MaxFailedAttempts:      update.MaxFailedAttempts,
		LockoutDurationMinutes: update.LockoutDurationMinutes,
		SessionTimeoutMinutes:  update.SessionTimeoutMinutes,
		LogRetentionDays:       update.LogRetentionDays,
	}

	saved, err := s.repo.Save(ctx, next)
	if err != nil {
		s.audit.LogConfigChange(ctx, actor, false, "storage error")
		return nil, fmt.Errorf("failed to save security config: %w", err)
	}

	s.Invalidate()
	if err := s.invalidator.PublishInvalidation(ctx); err != nil {
		s.logger.Warn("failed to broadcast security config invalidation", slog.Any("error", err))
	}

	s.audit.LogConfigChange(ctx, actor, true, fmt.Sprintf(
		"max_failed_attempts=%d lockout_duration_minutes=%d log_retention_days=%d telegram=%t",
		saved.MaxFailedAttempts, saved.LockoutDurationMinutes, saved.LogRetentionDays, saved.HasTelegram()))

	return copyConfig(saved), nil
}

// Invalidate drops the cached settings so the next read goes to storage
func (s *SecurityConfigService) Invalidate() {
	s.generation.Add(1)
	s.cache.Delete(securityConfigCacheKey)
}

func mergeCredential(current, update *string) *string {
	if update == nil {
		return current
	}
	trimmed := strings.TrimSpace(*update)
	if trimmed == "" {
		return nil
	}
	// The admin API hands out the masked token; sending it back unchanged keeps the stored one.
	if current != nil && strings.HasPrefix(trimmed, "****") {
		if masked := (&models.SecurityConfig{TelegramBotToken: current}).Masked().TelegramBotToken; *masked == trimmed {
			return current
		}
	}
	return &trimmed
}

func copyConfig(cfg *models.SecurityConfig) *models.SecurityConfig {
	out := *cfg
	return &out
}

func toValidationError(err error) *models.ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &models.ValidationError{Field: "body", Bound: "valid", Value: err.Error()}
	}

	fe := fieldErrs[0]
	bound := fe.Tag() + " " + fe.Param()
	switch fe.Tag() {
	case "gte":
		bound = "at least " + fe.Param()
	case "lte":
		bound = "at most " + fe.Param()
	case "max":
		bound = "at most " + fe.Param() + " characters"
	}

	value := fe.Value()
	if fe.Tag() == "max" {
		value = "(redacted)"
	}
	return &models.ValidationError{Field: fe.Field(), Bound: bound, Value: value}
}
