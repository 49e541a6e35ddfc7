package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SchedulerActor is recorded as the actor of scheduled purges
const SchedulerActor = "scheduler"

// Purger removes login attempts older than the configured retention
type Purger interface {
	PurgeConfigured(ctx context.Context, actor string) (int64, error)
}

// RetentionScheduler periodically applies the configured log retention
type RetentionScheduler struct {
	purger   Purger
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRetentionScheduler creates a new retention scheduler
func NewRetentionScheduler(purger Purger, logger *slog.Logger, interval time.Duration) *RetentionScheduler {
	return &RetentionScheduler{
		purger:   purger,
		logger:   logger,
		interval: interval,
		timeout:  5 * time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep. A non-positive interval disables it.
func (s *RetentionScheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("retention scheduler disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopCh:
			s.logger.Info("retention scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("retention scheduler context cancelled")
			return
		}
	}
}

func (s *RetentionScheduler) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	deleted, err := s.purger.PurgeConfigured(sweepCtx, SchedulerActor)
	if err != nil {
		s.logger.Error("scheduled retention sweep failed",
			slog.Int64("rows_deleted", deleted),
			slog.Any("error", err))
		return
	}

	if deleted > 0 {
		s.logger.Info("scheduled retention sweep completed", slog.Int64("rows_deleted", deleted))
	}
}

// Stop signals the scheduler to stop
func (s *RetentionScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
