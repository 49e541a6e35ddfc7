package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/loginguard/internal/metrics"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/pkg/logger"
)

// AttemptPurger deletes old login attempts in bounded batches
type AttemptPurger interface {
	DeleteBatchOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// RetentionService removes login attempts older than a retention period
type RetentionService struct {
	repo      AttemptPurger
	config    ConfigProvider
	batchSize int
	metrics   *metrics.Metrics
	audit     *logger.AuditLogger
	logger    *slog.Logger
	now       func() time.Time
}

// NewRetentionService creates a new RetentionService
func NewRetentionService(repo AttemptPurger, config ConfigProvider, batchSize int, m *metrics.Metrics, audit *logger.AuditLogger, logger *slog.Logger) *RetentionService {
	return &RetentionService{
		repo:      repo,
		config:    config,
		batchSize: batchSize,
		metrics:   m,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the time source (tests only)
func (s *RetentionService) SetClock(now func() time.Time) {
	s.now = now
}

// PurgeOlderThan deletes attempts recorded more than days ago and returns how many were removed.
// Deletion runs in batches; if ctx ends between batches the count so far is returned with the error.
// Lock rows are never touched.
func (s *RetentionService) PurgeOlderThan(ctx context.Context, actor string, days int) (int64, error) {
	if days < 1 {
		return 0, &models.ValidationError{Field: "days", Bound: "at least 1", Value: days}
	}

	cutoff := s.now().UTC().AddDate(0, 0, -days)
	var total int64
	var err error

	for {
		if err = ctx.Err(); err != nil {
			break
		}
		var n int64
		n, err = s.repo.DeleteBatchOlderThan(ctx, cutoff, s.batchSize)
		total += n
		if err != nil || n < int64(s.batchSize) {
			break
		}
	}

	s.metrics.RetentionDeleted(total)
	s.audit.LogRetentionPurge(ctx, actor, days, total, err)
	if err != nil {
		return total, fmt.Errorf("retention sweep stopped after %d rows: %w", total, err)
	}

	s.logger.Info("login attempts purged",
		slog.Int("older_than_days", days),
		slog.Int64("deleted", total))
	return total, nil
}

// PurgeConfigured applies the configured log retention period
func (s *RetentionService) PurgeConfigured(ctx context.Context, actor string) (int64, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		s.logger.Warn("purging with default retention", slog.Any("error", err))
	}
	return s.PurgeOlderThan(ctx, actor, cfg.LogRetentionDays)
}
