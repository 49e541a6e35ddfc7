package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/loginguard/internal/metrics"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/notify"
	"github.com/BradenHooton/loginguard/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotificationService(t *testing.T, channels []notify.Channel, maxInflight int) (*services.NotificationService, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	svc := services.NewNotificationService(&staticConfig{}, channels, time.UTC, time.Second, maxInflight, m, testLogger())
	return svc, reg
}

// notificationCount reads loginguard_notifications_total for one event/result pair
func notificationCount(t *testing.T, reg *prometheus.Registry, event, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "loginguard_notifications_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if labelsMatch(metric, map[string]string{"event": event, "result": result}) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestNotificationService_NoChannelIsNoop(t *testing.T) {
	ch := &fakeChannel{name: "telegram", enabled: false}
	svc, reg := newNotificationService(t, []notify.Channel{ch}, 4)

	svc.Send(models.SecurityEvent{Type: models.EventAccountLocked, Email: "a@x.com"})
	svc.Send(models.SecurityEvent{Type: models.EventTest})
	svc.Wait()

	assert.Empty(t, ch.Delivered())
	assert.Equal(t, float64(1), notificationCount(t, reg, "account_locked", "skipped"))
}

func TestNotificationService_DeliversToEveryEnabledChannel(t *testing.T) {
	tg := &fakeChannel{name: "telegram", enabled: true}
	email := &fakeChannel{name: "email", enabled: true}
	off := &fakeChannel{name: "other", enabled: false}
	svc, reg := newNotificationService(t, []notify.Channel{tg, email, off}, 4)

	unlockAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.Send(models.SecurityEvent{
		Type:           models.EventAccountLocked,
		Email:          "a@x.com",
		FailedAttempts: 5,
		UnlockAt:       &unlockAt,
	})
	svc.Wait()

	require.Len(t, tg.Delivered(), 1)
	require.Len(t, email.Delivered(), 1)
	assert.Empty(t, off.Delivered())
	assert.Contains(t, tg.Delivered()[0].Text, "a@x.com")
	assert.Equal(t, float64(2), notificationCount(t, reg, "account_locked", "sent"))
}

func TestNotificationService_ChannelFailureIsContained(t *testing.T) {
	bad := &fakeChannel{name: "telegram", enabled: true, err: models.ErrDispatchFailure}
	good := &fakeChannel{name: "email", enabled: true}
	svc, reg := newNotificationService(t, []notify.Channel{bad, good}, 4)

	svc.Send(models.SecurityEvent{Type: models.EventManualUnlock, Email: "a@x.com"})
	svc.Wait()

	assert.Len(t, good.Delivered(), 1)
	assert.Equal(t, float64(1), notificationCount(t, reg, "manual_unlock", "failed"))
}

func TestNotificationService_SendDoesNotBlock(t *testing.T) {
	block := make(chan struct{})
	ch := &fakeChannel{name: "telegram", enabled: true, block: block}
	svc, reg := newNotificationService(t, []notify.Channel{ch}, 1)

	done := make(chan struct{})
	go func() {
		svc.Send(models.SecurityEvent{Type: models.EventAccountLocked, Email: "a@x.com"})
		svc.Send(models.SecurityEvent{Type: models.EventAccountLocked, Email: "b@x.com"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a slow channel")
	}

	close(block)
	svc.Wait()

	assert.Len(t, ch.Delivered(), 1)
	assert.Equal(t, float64(1), notificationCount(t, reg, "account_locked", "dropped"))
}

func TestNotificationService_SendTest(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc, _ := newNotificationService(t, []notify.Channel{&fakeChannel{name: "telegram"}}, 1)
		err := svc.SendTest(context.Background(), "admin@x.com")
		assert.ErrorIs(t, err, models.ErrNotificationNotConfigured)
	})

	t.Run("delivered", func(t *testing.T) {
		ch := &fakeChannel{name: "telegram", enabled: true}
		svc, _ := newNotificationService(t, []notify.Channel{ch}, 1)
		require.NoError(t, svc.SendTest(context.Background(), "admin@x.com"))
		require.Len(t, ch.Delivered(), 1)
		assert.Contains(t, ch.Delivered()[0].Text, "admin@x.com")
	})

	t.Run("delivery failure surfaces", func(t *testing.T) {
		ch := &fakeChannel{name: "telegram", enabled: true, err: models.ErrDispatchFailure}
		svc, _ := newNotificationService(t, []notify.Channel{ch}, 1)
		err := svc.SendTest(context.Background(), "admin@x.com")
		assert.True(t, errors.Is(err, models.ErrDispatchFailure))
	})
}
