package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/loginguard/internal/metrics"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/pkg/logger"
)

// LockoutRepository defines the storage operations for per-identity lock state
type LockoutRepository interface {
	Get(ctx context.Context, email string) (*models.AccountLockout, error)
	UpsertLock(ctx context.Context, lock *models.AccountLockout) error
	Unlock(ctx context.Context, email, unlockedBy string, at time.Time) (bool, error)
	ListActive(ctx context.Context, now time.Time) ([]*models.AccountLockout, error)
}

// FailureCounter counts failed attempts for an identity
type FailureCounter interface {
	CountFailedSince(ctx context.Context, email string, since time.Time) (int, error)
}

// IdentityLocker runs fn with exclusive access to one identity's lock state.
// Repository calls made with the ctx passed to fn join the same unit of work.
type IdentityLocker interface {
	WithIdentityLock(ctx context.Context, identity string, fn func(ctx context.Context) error) error
}

// Notifier accepts security events for asynchronous delivery
type Notifier interface {
	Send(event models.SecurityEvent)
}

// LockoutService evaluates attempts against the configured threshold and manages locks
type LockoutService struct {
	repo           LockoutRepository
	attempts       FailureCounter
	locker         IdentityLocker
	config         ConfigProvider
	notifier       Notifier
	notifyFailures bool
	metrics        *metrics.Metrics
	audit          *logger.AuditLogger
	logger         *slog.Logger
	now            func() time.Time
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(
	repo LockoutRepository,
	attempts FailureCounter,
	locker IdentityLocker,
	config ConfigProvider,
	notifier Notifier,
	m *metrics.Metrics,
	audit *logger.AuditLogger,
	logger *slog.Logger,
) *LockoutService {
	return &LockoutService{
		repo:     repo,
		attempts: attempts,
		locker:   locker,
		config:   config,
		notifier: notifier,
		metrics:  m,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source (tests only)
func (s *LockoutService) SetClock(now func() time.Time) {
	s.now = now
}

// SetNotifyOnFailedLogin enables a notification for every failed attempt that does not lock
func (s *LockoutService) SetNotifyOnFailedLogin(enabled bool) {
	s.notifyFailures = enabled
}

// CheckAndRecord evaluates an attempt that has already been recorded.
// An active lock denies the attempt whatever its outcome. A failure that brings the
// trailing-window count to the threshold places a system lock and notifies once.
// Storage errors deny the attempt.
func (s *LockoutService) CheckAndRecord(ctx context.Context, email, ipAddress string, success bool) (models.LockDecision, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		s.logger.Warn("evaluating with default security config", slog.Any("error", err))
	}

	now := s.now().UTC()
	var (
		decision models.LockDecision
		placed   *models.AccountLockout
		failures int
	)

	err = s.locker.WithIdentityLock(ctx, email, func(ctx context.Context) error {
		existing, err := s.repo.Get(ctx, email)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("failed to read lockout: %w", err)
		}
		if existing.IsActive(now) {
			decision = denied(existing.UnlockAt)
			return nil
		}
		if success {
			decision = models.LockDecision{Allowed: true}
			return nil
		}

		failures, err = s.attempts.CountFailedSince(ctx, email, now.Add(-models.FailureWindow))
		if err != nil {
			return fmt.Errorf("failed to count failures: %w", err)
		}
		if failures < cfg.MaxFailedAttempts {
			decision = models.LockDecision{Allowed: true}
			return nil
		}

		lock := &models.AccountLockout{
			Email:          email,
			IsLocked:       true,
			LockedAt:       now,
			UnlockAt:       now.Add(cfg.LockoutDuration()),
			FailedAttempts: failures,
			LockedBy:       models.LockedBySystem,
		}
		if err := s.repo.UpsertLock(ctx, lock); err != nil {
			return fmt.Errorf("failed to write lockout: %w", err)
		}
		placed = lock
		decision = denied(lock.UnlockAt)
		return nil
	})
	if err != nil {
		s.logger.Error("lockout evaluation failed, denying attempt",
			slog.String("email", logger.SanitizedEmail(email)),
			slog.Any("error", err))
		s.metrics.Decision(false)
		return models.LockDecision{Allowed: false}, fmt.Errorf("%w: %w", models.ErrStorageUnavailable, err)
	}

	s.metrics.Decision(decision.Allowed)

	switch {
	case placed != nil:
		s.metrics.Locked(models.LockedBySystem)
		s.audit.LogLockout(ctx, email, models.LockedBySystem, ipAddress, placed.FailedAttempts, placed.UnlockAt)
		s.logger.Warn("account locked",
			slog.String("email", logger.SanitizedEmail(email)),
			slog.Int("failed_attempts", placed.FailedAttempts),
			slog.Time("unlock_at", placed.UnlockAt))
		s.notify(models.SecurityEvent{
			Type:           models.EventAccountLocked,
			Email:          email,
			IPAddress:      ipAddress,
			FailedAttempts: placed.FailedAttempts,
			UnlockAt:       &placed.UnlockAt,
			OccurredAt:     now,
		})
	case !success && decision.Allowed && s.notifyFailures:
		s.notify(models.SecurityEvent{
			Type:           models.EventFailedLogin,
			Email:          email,
			IPAddress:      ipAddress,
			FailedAttempts: failures,
			OccurredAt:     now,
		})
	}

	return decision, nil
}

// Status reports whether an identity is currently locked without recording anything.
// A storage error is reported as locked.
func (s *LockoutService) Status(ctx context.Context, email string) (models.LockDecision, error) {
	lock, err := s.repo.Get(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return models.LockDecision{Allowed: true}, nil
	}
	if err != nil {
		return models.LockDecision{Allowed: false}, fmt.Errorf("%w: %w", models.ErrStorageUnavailable, err)
	}
	if lock.IsActive(s.now()) {
		return denied(lock.UnlockAt), nil
	}
	return models.LockDecision{Allowed: true}, nil
}

// Get returns the stored lock row for an identity
func (s *LockoutService) Get(ctx context.Context, email string) (*models.AccountLockout, error) {
	return s.repo.Get(ctx, email)
}

// Unlock clears any lock on an identity. Unlocking an identity with no lock is not an error.
// Every call emits a manual_unlock notification.
func (s *LockoutService) Unlock(ctx context.Context, email, actor string) error {
	now := s.now().UTC()

	existed, err := s.repo.Unlock(ctx, email, actor, now)
	if err != nil {
		return fmt.Errorf("failed to unlock account: %w", err)
	}

	s.metrics.Unlocked()
	s.audit.LogUnlock(ctx, email, actor, existed)
	s.notify(models.SecurityEvent{
		Type:       models.EventManualUnlock,
		Email:      email,
		Details:    "Unlocked by " + actor,
		OccurredAt: now,
	})

	return nil
}

// Lock places an administrator lock. A zero duration uses the configured lockout duration.
func (s *LockoutService) Lock(ctx context.Context, email string, duration time.Duration, actor string) (*models.AccountLockout, error) {
	if duration == 0 {
		cfg, err := s.config.Get(ctx)
		if err != nil {
			s.logger.Warn("locking with default security config", slog.Any("error", err))
		}
		duration = cfg.LockoutDuration()
	}
	minutes := int(duration / time.Minute)
	if duration%time.Minute != 0 || minutes < models.MinLockoutDurationMinutes || minutes > models.MaxLockoutDurationMinutes {
		return nil, &models.ValidationError{
			Field: "duration_minutes",
			Bound: fmt.Sprintf("a whole number of minutes between %d and %d", models.MinLockoutDurationMinutes, models.MaxLockoutDurationMinutes),
			Value: duration.Minutes(),
		}
	}

	now := s.now().UTC()
	var lock *models.AccountLockout

	err := s.locker.WithIdentityLock(ctx, email, func(ctx context.Context) error {
		failures, err := s.attempts.CountFailedSince(ctx, email, now.Add(-models.FailureWindow))
		if err != nil {
			return fmt.Errorf("failed to count failures: %w", err)
		}
		lock = &models.AccountLockout{
			Email:          email,
			IsLocked:       true,
			LockedAt:       now,
			UnlockAt:       now.Add(duration),
			FailedAttempts: failures,
			LockedBy:       models.LockedByAdmin,
		}
		return s.repo.UpsertLock(ctx, lock)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	s.metrics.Locked(models.LockedByAdmin)
	s.audit.LogLockout(ctx, email, actor, "", lock.FailedAttempts, lock.UnlockAt)
	s.notify(models.SecurityEvent{
		Type:           models.EventAccountLocked,
		Email:          email,
		FailedAttempts: lock.FailedAttempts,
		UnlockAt:       &lock.UnlockAt,
		Details:        "Locked by " + actor,
		OccurredAt:     now,
	})

	return lock, nil
}

// ListActive returns the identities whose lock is currently in force
func (s *LockoutService) ListActive(ctx context.Context) ([]*models.AccountLockout, error) {
	return s.repo.ListActive(ctx, s.now().UTC())
}

func (s *LockoutService) notify(event models.SecurityEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.Send(event)
}

func denied(unlockAt time.Time) models.LockDecision {
	at := unlockAt
	return models.LockDecision{Allowed: false, UnlockAt: &at}
}
