package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/loginguard/internal/metrics"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/pkg/logger"
)

// recordTimeout bounds the append of one attempt after the caller has gone away
const recordTimeout = 5 * time.Second

// AttemptWriter persists login attempts
type AttemptWriter interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
}

// AttemptRecorder appends every login submission to the attempt log.
// Recording is best effort: a write failure is logged and never surfaced to the login flow.
type AttemptRecorder struct {
	repo    AttemptWriter
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewAttemptRecorder creates a new AttemptRecorder
func NewAttemptRecorder(repo AttemptWriter, m *metrics.Metrics, logger *slog.Logger) *AttemptRecorder {
	return &AttemptRecorder{
		repo:    repo,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the time source (tests only)
func (r *AttemptRecorder) SetClock(now func() time.Time) {
	r.now = now
}

// Record appends one attempt. It returns the stored attempt, or nil when the write failed.
func (r *AttemptRecorder) Record(ctx context.Context, email, ipAddress, userAgent string, success bool, failureReason *string) *models.LoginAttempt {
	attempt := &models.LoginAttempt{
		Email:         email,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		Success:       success,
		FailureReason: failureReason,
		AttemptedAt:   r.now().UTC(),
	}
	if success {
		attempt.FailureReason = nil
	}

	// The attempt must land even if the caller disconnects mid-request.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := r.repo.RecordAttempt(writeCtx, attempt); err != nil {
		r.logger.Error("failed to record login attempt",
			slog.String("email", logger.SanitizedEmail(email)),
			slog.String("outcome", attempt.Outcome()),
			slog.Any("error", err))
		return nil
	}

	r.metrics.AttemptRecorded(attempt.Outcome())
	return attempt
}
