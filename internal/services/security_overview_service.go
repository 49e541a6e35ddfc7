package services

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAttemptsPerPage = 20
	MaxAttemptsPerPage     = 100
)

// AttemptReader reads the attempt log for the admin surface
type AttemptReader interface {
	Count(ctx context.Context) (int64, error)
	CountAllFailedSince(ctx context.Context, since time.Time) (int64, error)
	List(ctx context.Context, limit, offset int) ([]*models.LoginAttempt, error)
}

// ActiveLockLister lists locks in force
type ActiveLockLister interface {
	ListActive(ctx context.Context, now time.Time) ([]*models.AccountLockout, error)
}

// SecurityOverview is the admin dashboard summary
type SecurityOverview struct {
	Config           *models.SecurityConfig   `json:"config"`
	TotalAttempts    int64                    `json:"total_attempts"`
	FailuresLastHour int64                    `json:"failures_last_hour"`
	ActiveLockouts   []*models.AccountLockout `json:"active_lockouts"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

// AttemptPage is one page of the attempt log, newest first
type AttemptPage struct {
	Attempts []*models.LoginAttempt `json:"attempts"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PerPage  int                    `json:"per_page"`
}

// SecurityOverviewService assembles read-only views for administrators
type SecurityOverviewService struct {
	attempts AttemptReader
	locks    ActiveLockLister
	config   ConfigProvider
	now      func() time.Time
}

// NewSecurityOverviewService creates a new SecurityOverviewService
func NewSecurityOverviewService(attempts AttemptReader, locks ActiveLockLister, config ConfigProvider) *SecurityOverviewService {
	return &SecurityOverviewService{
		attempts: attempts,
		locks:    locks,
		config:   config,
		now:      time.Now,
	}
}

// SetClock replaces the time source (tests only)
func (s *SecurityOverviewService) SetClock(now func() time.Time) {
	s.now = now
}

// Overview loads the settings, attempt totals and active locks concurrently.
// The bot token in the returned settings is masked.
func (s *SecurityOverviewService) Overview(ctx context.Context) (*SecurityOverview, error) {
	now := s.now().UTC()
	out := &SecurityOverview{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cfg, err := s.config.Get(gctx)
		if err != nil {
			return err
		}
		out.Config = cfg.Masked()
		return nil
	})
	g.Go(func() error {
		n, err := s.attempts.Count(gctx)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		out.TotalAttempts = n
		return nil
	})
	g.Go(func() error {
		n, err := s.attempts.CountAllFailedSince(gctx, now.Add(-models.FailureWindow))
		if err != nil {
			return fmt.Errorf("failed to count recent failures: %w", err)
		}
		out.FailuresLastHour = n
		return nil
	})
	g.Go(func() error {
		locks, err := s.locks.ListActive(gctx, now)
		if err != nil {
			return fmt.Errorf("failed to list active lockouts: %w", err)
		}
		out.ActiveLockouts = locks
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAttempts returns one page of the attempt log. Page numbers start at 1.
func (s *SecurityOverviewService) ListAttempts(ctx context.Context, page, perPage int) (*AttemptPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultAttemptsPerPage
	}
	if perPage > MaxAttemptsPerPage {
		perPage = MaxAttemptsPerPage
	}

	out := &AttemptPage{Page: page, PerPage: perPage}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		attempts, err := s.attempts.List(gctx, perPage, (page-1)*perPage)
		if err != nil {
			return fmt.Errorf("failed to list attempts: %w", err)
		}
		out.Attempts = attempts
		return nil
	})
	g.Go(func() error {
		n, err := s.attempts.Count(gctx)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		out.Total = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
