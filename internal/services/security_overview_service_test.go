package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityOverviewService_Overview(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	for i, success := range []bool{false, false, true, false} {
		require.NoError(t, store.RecordAttempt(context.Background(), &models.LoginAttempt{
			Email:       "a@x.com",
			Success:     success,
			AttemptedAt: now.Add(-time.Duration(i*20) * time.Minute),
		}))
	}
	store.locks["a@x.com"] = &models.AccountLockout{Email: "a@x.com", IsLocked: true, UnlockAt: now.Add(time.Hour)}
	store.locks["old@x.com"] = &models.AccountLockout{Email: "old@x.com", IsLocked: true, UnlockAt: now.Add(-time.Hour)}

	token := "123456:ABCDEFGHIJ"
	cfg := models.DefaultSecurityConfig()
	cfg.TelegramBotToken = &token

	svc := services.NewSecurityOverviewService(store, store, &staticConfig{cfg: cfg})
	svc.SetClock(func() time.Time { return now })

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), overview.TotalAttempts)
	// The failure at exactly one hour ago is inside the window.
	assert.Equal(t, int64(3), overview.FailuresLastHour)
	require.Len(t, overview.ActiveLockouts, 1)
	assert.Equal(t, "a@x.com", overview.ActiveLockouts[0].Email)
	assert.Equal(t, "****GHIJ", *overview.Config.TelegramBotToken)
}

func TestSecurityOverviewService_ListAttempts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	for i := 0; i < 45; i++ {
		require.NoError(t, store.RecordAttempt(context.Background(), &models.LoginAttempt{
			Email:       "a@x.com",
			AttemptedAt: now.Add(-time.Duration(i) * time.Minute),
		}))
	}
	svc := services.NewSecurityOverviewService(store, store, &staticConfig{})

	tests := []struct {
		name        string
		page        int
		perPage     int
		wantPage    int
		wantPerPage int
		wantLen     int
	}{
		{name: "defaults", page: 0, perPage: 0, wantPage: 1, wantPerPage: services.DefaultAttemptsPerPage, wantLen: 20},
		{name: "last partial page", page: 3, perPage: 20, wantPage: 3, wantPerPage: 20, wantLen: 5},
		{name: "past the end", page: 9, perPage: 20, wantPage: 9, wantPerPage: 20, wantLen: 0},
		{name: "per page capped", page: 1, perPage: 500, wantPage: 1, wantPerPage: services.MaxAttemptsPerPage, wantLen: 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ListAttempts(context.Background(), tt.page, tt.perPage)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantPerPage, page.PerPage)
			assert.Len(t, page.Attempts, tt.wantLen)
			assert.Equal(t, int64(45), page.Total)
		})
	}

	first, err := svc.ListAttempts(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, first.Attempts[0].AttemptedAt.After(first.Attempts[1].AttemptedAt))
}

func TestAttemptRecorder_StoresOutcome(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	recorder := services.NewAttemptRecorder(store, nil, testLogger())
	recorder.SetClock(func() time.Time { return now })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	failed := recorder.Record(ctx, "a@x.com", "198.51.100.1", "curl/8", false, strPtr("invalid_credentials"))
	require.NotNil(t, failed)
	assert.Equal(t, models.OutcomeFailure, failed.Outcome())
	assert.Equal(t, now, failed.AttemptedAt)

	ok := recorder.Record(context.Background(), "a@x.com", "", "", true, strPtr("ignored"))
	require.NotNil(t, ok)
	assert.Nil(t, ok.FailureReason)
	assert.Equal(t, 2, store.AttemptCount())
}
