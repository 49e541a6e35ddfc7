package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/loginguard/internal/auth"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/services"
	"github.com/golang-jwt/jwt/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func asAdmin(r *http.Request, subject string) *http.Request {
	claims := &models.TokenClaims{
		Type:             models.TokenTypeAdmin,
		Scopes:           []string{models.ScopeGuardAdmin},
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
	return r.WithContext(context.WithValue(r.Context(), auth.ClaimsContextKey, claims))
}

// MockGuardService is a function-field mock of the guard
type MockGuardService struct {
	SubmitFunc func(ctx context.Context, sub services.Submission) (models.LockDecision, error)
	StatusFunc func(ctx context.Context, email string) (models.LockDecision, error)
}

func (m *MockGuardService) Submit(ctx context.Context, sub services.Submission) (models.LockDecision, error) {
	return m.SubmitFunc(ctx, sub)
}

func (m *MockGuardService) Status(ctx context.Context, email string) (models.LockDecision, error) {
	return m.StatusFunc(ctx, email)
}

// MockLockoutAdmin is a function-field mock of the lock operations
type MockLockoutAdmin struct {
	ListActiveFunc func(ctx context.Context) ([]*models.AccountLockout, error)
	UnlockFunc     func(ctx context.Context, email, actor string) error
	LockFunc       func(ctx context.Context, email string, duration time.Duration, actor string) (*models.AccountLockout, error)
}

func (m *MockLockoutAdmin) ListActive(ctx context.Context) ([]*models.AccountLockout, error) {
	return m.ListActiveFunc(ctx)
}

func (m *MockLockoutAdmin) Unlock(ctx context.Context, email, actor string) error {
	return m.UnlockFunc(ctx, email, actor)
}

func (m *MockLockoutAdmin) Lock(ctx context.Context, email string, duration time.Duration, actor string) (*models.AccountLockout, error) {
	return m.LockFunc(ctx, email, duration, actor)
}

// MockConfigAdmin is a function-field mock of the settings operations
type MockConfigAdmin struct {
	GetFunc  func(ctx context.Context) (*models.SecurityConfig, error)
	SaveFunc func(ctx context.Context, actor string, update services.SecurityConfigUpdate) (*models.SecurityConfig, error)
}

func (m *MockConfigAdmin) Get(ctx context.Context) (*models.SecurityConfig, error) {
	return m.GetFunc(ctx)
}

func (m *MockConfigAdmin) Save(ctx context.Context, actor string, update services.SecurityConfigUpdate) (*models.SecurityConfig, error) {
	return m.SaveFunc(ctx, actor, update)
}

// MockRetentionAdmin is a function-field mock of the purge operations
type MockRetentionAdmin struct {
	PurgeOlderThanFunc  func(ctx context.Context, actor string, days int) (int64, error)
	PurgeConfiguredFunc func(ctx context.Context, actor string) (int64, error)
}

func (m *MockRetentionAdmin) PurgeOlderThan(ctx context.Context, actor string, days int) (int64, error) {
	return m.PurgeOlderThanFunc(ctx, actor, days)
}

func (m *MockRetentionAdmin) PurgeConfigured(ctx context.Context, actor string) (int64, error) {
	return m.PurgeConfiguredFunc(ctx, actor)
}

// MockOverviewReader is a function-field mock of the read-only views
type MockOverviewReader struct {
	OverviewFunc     func(ctx context.Context) (*services.SecurityOverview, error)
	ListAttemptsFunc func(ctx context.Context, page, perPage int) (*services.AttemptPage, error)
}

func (m *MockOverviewReader) Overview(ctx context.Context) (*services.SecurityOverview, error) {
	return m.OverviewFunc(ctx)
}

func (m *MockOverviewReader) ListAttempts(ctx context.Context, page, perPage int) (*services.AttemptPage, error) {
	return m.ListAttemptsFunc(ctx, page, perPage)
}

// MockTestNotifier is a function-field mock of the test notification
type MockTestNotifier struct {
	SendTestFunc func(ctx context.Context, actor string) error
}

func (m *MockTestNotifier) SendTest(ctx context.Context, actor string) error {
	return m.SendTestFunc(ctx, actor)
}
