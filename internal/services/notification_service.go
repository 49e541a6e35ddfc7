package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/loginguard/internal/metrics"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/notify"
	"github.com/BradenHooton/loginguard/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// NotificationService renders security events and delivers them to every enabled channel.
// Send never blocks the login path: delivery runs on a bounded set of goroutines and
// events beyond that bound are dropped.
type NotificationService struct {
	config   ConfigProvider
	channels []notify.Channel
	location *time.Location
	timeout  time.Duration
	inflight *errgroup.Group
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	config ConfigProvider,
	channels []notify.Channel,
	location *time.Location,
	timeout time.Duration,
	maxInflight int,
	m *metrics.Metrics,
	logger *slog.Logger,
) *NotificationService {
	if location == nil {
		location = time.UTC
	}
	g := &errgroup.Group{}
	g.SetLimit(maxInflight)

	return &NotificationService{
		config:   config,
		channels: channels,
		location: location,
		timeout:  timeout,
		inflight: g,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Send queues an event for delivery. Missing credentials make it a no-op.
func (s *NotificationService) Send(event models.SecurityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	started := s.inflight.TryGo(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.dispatch(ctx, event); err != nil {
			s.logger.Error("security notification failed",
				slog.String("event", string(event.Type)),
				slog.String("email", logger.SanitizedEmail(event.Email)),
				slog.Any("error", err))
		}
		return nil
	})
	if !started {
		s.metrics.Notification(string(event.Type), "dropped")
		s.logger.Warn("notification dropped, too many in flight",
			slog.String("event", string(event.Type)))
	}
}

// SendTest delivers a test message synchronously so the administrator sees the outcome
func (s *NotificationService) SendTest(ctx context.Context, actor string) error {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return err
	}
	if len(s.enabled(cfg)) == 0 {
		return models.ErrNotificationNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.dispatch(ctx, models.SecurityEvent{
		Type:       models.EventTest,
		Email:      actor,
		OccurredAt: s.now(),
	})
}

// Wait blocks until every queued delivery has finished
func (s *NotificationService) Wait() {
	_ = s.inflight.Wait()
}

func (s *NotificationService) dispatch(ctx context.Context, event models.SecurityEvent) error {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		s.logger.Warn("dispatching with default security config", slog.Any("error", err))
	}

	channels := s.enabled(cfg)
	if len(channels) == 0 {
		s.metrics.Notification(string(event.Type), "skipped")
		return nil
	}

	msg, err := notify.Render(event, s.location)
	if err != nil {
		return err
	}

	var errs []error
	for _, ch := range channels {
		if err := ch.Deliver(ctx, cfg, msg); err != nil {
			s.metrics.Notification(string(event.Type), "failed")
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		s.metrics.Notification(string(event.Type), "sent")
	}

	return errors.Join(errs...)
}

func (s *NotificationService) enabled(cfg *models.SecurityConfig) []notify.Channel {
	var out []notify.Channel
	for _, ch := range s.channels {
		if ch.Enabled(cfg) {
			out = append(out, ch)
		}
	}
	return out
}
