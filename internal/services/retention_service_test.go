package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAttempts(t *testing.T, store *memoryStore, now time.Time, ageDays ...int) {
	t.Helper()
	for _, days := range ageDays {
		require.NoError(t, store.RecordAttempt(context.Background(), &models.LoginAttempt{
			Email:       "a@x.com",
			AttemptedAt: now.AddDate(0, 0, -days),
		}))
	}
}

func TestRetentionService_PurgeOlderThan(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	seedAttempts(t, store, now, 1, 6, 8, 30)
	store.locks["a@x.com"] = &models.AccountLockout{Email: "a@x.com", IsLocked: true, UnlockAt: now.Add(time.Hour)}

	svc := services.NewRetentionService(store, &staticConfig{}, 100, nil, nil, testLogger())
	svc.SetClock(func() time.Time { return now })

	deleted, err := svc.PurgeOlderThan(context.Background(), "admin@x.com", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, 2, store.AttemptCount())

	remaining, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	for _, a := range remaining {
		assert.True(t, a.AttemptedAt.After(now.AddDate(0, 0, -7)))
	}
	assert.Len(t, store.locks, 1)
}

func TestRetentionService_DeletesInBatches(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	seedAttempts(t, store, now, 10, 11, 12, 13, 14, 15, 16, 2)

	svc := services.NewRetentionService(store, &staticConfig{}, 3, nil, nil, testLogger())
	svc.SetClock(func() time.Time { return now })

	deleted, err := svc.PurgeOlderThan(context.Background(), "admin@x.com", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.Equal(t, 1, store.AttemptCount())
}

func TestRetentionService_PurgeConfigured(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	seedAttempts(t, store, now, 5, 29, 31, 100)

	cfg := models.DefaultSecurityConfig()
	cfg.LogRetentionDays = 30
	svc := services.NewRetentionService(store, &staticConfig{cfg: cfg}, 100, nil, nil, testLogger())
	svc.SetClock(func() time.Time { return now })

	deleted, err := svc.PurgeConfigured(context.Background(), "scheduler")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestRetentionService_RejectsNonPositiveDays(t *testing.T) {
	svc := services.NewRetentionService(newMemoryStore(), &staticConfig{}, 100, nil, nil, testLogger())

	for _, days := range []int{0, -3} {
		_, err := svc.PurgeOlderThan(context.Background(), "admin@x.com", days)
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
	}
}

func TestRetentionService_StorageError(t *testing.T) {
	store := newMemoryStore()
	store.DeleteErr = errors.New("relation locked")
	svc := services.NewRetentionService(store, &staticConfig{}, 100, nil, nil, testLogger())

	deleted, err := svc.PurgeOlderThan(context.Background(), "admin@x.com", 7)
	assert.Error(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestRetentionService_CancelledContextStops(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	seedAttempts(t, store, now, 10, 11)

	svc := services.NewRetentionService(store, &staticConfig{}, 1, nil, nil, testLogger())
	svc.SetClock(func() time.Time { return now })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deleted, err := svc.PurgeOlderThan(ctx, "scheduler", 7)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), deleted)
	assert.Equal(t, 2, store.AttemptCount())
}
