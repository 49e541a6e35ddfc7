package services_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock is a settable time source
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memoryStore is an in-memory attempt log and lock table.
// WithIdentityLock serializes callers the way the advisory lock does in Postgres.
type memoryStore struct {
	identityMu sync.Mutex
	mu         sync.Mutex
	attempts   []*models.LoginAttempt
	locks      map[string]*models.AccountLockout
	upserts    int

	RecordErr error
	GetErr    error
	CountErr  error
	DeleteErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{locks: make(map[string]*models.AccountLockout)}
}

func (m *memoryStore) WithIdentityLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	m.identityMu.Lock()
	defer m.identityMu.Unlock()
	return fn(ctx)
}

func (m *memoryStore) RecordAttempt(_ context.Context, attempt *models.LoginAttempt) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *attempt
	m.attempts = append(m.attempts, &stored)
	return nil
}

func (m *memoryStore) CountFailedSince(_ context.Context, email string, since time.Time) (int, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.attempts {
		if a.Email == email && !a.Success && !a.AttemptedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) CountAllFailedSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.attempts {
		if !a.Success && !a.AttemptedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.attempts)), nil
}

func (m *memoryStore) List(_ context.Context, limit, offset int) ([]*models.LoginAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sorted := append([]*models.LoginAttempt(nil), m.attempts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AttemptedAt.After(sorted[j].AttemptedAt) })
	if offset >= len(sorted) {
		return []*models.LoginAttempt{}, nil
	}
	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], nil
}

func (m *memoryStore) DeleteBatchOlderThan(_ context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.attempts[:0]
	var deleted int64
	for _, a := range m.attempts {
		if a.AttemptedAt.Before(cutoff) && deleted < int64(batchSize) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	m.attempts = kept
	return deleted, nil
}

func (m *memoryStore) Get(_ context.Context, email string) (*models.AccountLockout, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *lock
	return &out, nil
}

func (m *memoryStore) UpsertLock(_ context.Context, lock *models.AccountLockout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *lock
	m.locks[lock.Email] = &stored
	m.upserts++
	return nil
}

func (m *memoryStore) Unlock(_ context.Context, email, unlockedBy string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[email]
	if !ok {
		return false, nil
	}
	lock.IsLocked = false
	lock.UnlockedAt = &at
	lock.UnlockedBy = &unlockedBy
	return true, nil
}

func (m *memoryStore) ListActive(_ context.Context, now time.Time) ([]*models.AccountLockout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AccountLockout
	for _, lock := range m.locks {
		if lock.IsActive(now) {
			out = append(out, lock)
		}
	}
	return out, nil
}

func (m *memoryStore) Upserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

func (m *memoryStore) AttemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts)
}

// staticConfig is a ConfigProvider returning a fixed value
type staticConfig struct {
	cfg *models.SecurityConfig
	err error
}

func (s *staticConfig) Get(context.Context) (*models.SecurityConfig, error) {
	if s.cfg == nil {
		return models.DefaultSecurityConfig(), s.err
	}
	out := *s.cfg
	return &out, s.err
}

// recordingNotifier captures every event passed to Send
type recordingNotifier struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (r *recordingNotifier) Send(event models.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) Events() []models.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SecurityEvent(nil), r.events...)
}

func (r *recordingNotifier) OfType(t models.EventType) []models.SecurityEvent {
	var out []models.SecurityEvent
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// MockSecurityConfigRepository implements SecurityConfigRepository for testing
type MockSecurityConfigRepository struct {
	mu       sync.Mutex
	gets     int
	GetFunc  func(ctx context.Context) (*models.SecurityConfig, error)
	SaveFunc func(ctx context.Context, cfg *models.SecurityConfig) (*models.SecurityConfig, error)
}

func (m *MockSecurityConfigRepository) Get(ctx context.Context) (*models.SecurityConfig, error) {
	m.mu.Lock()
	m.gets++
	m.mu.Unlock()
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	return nil, models.ErrNotFound
}

func (m *MockSecurityConfigRepository) Save(ctx context.Context, cfg *models.SecurityConfig) (*models.SecurityConfig, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, cfg)
	}
	out := *cfg
	return &out, nil
}

func (m *MockSecurityConfigRepository) Gets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

// countingInvalidator records broadcasts
type countingInvalidator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingInvalidator) PublishInvalidation(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

// fakeChannel is a notify.Channel that records deliveries
type fakeChannel struct {
	name    string
	enabled bool
	err     error
	block   chan struct{}

	mu        sync.Mutex
	delivered []notify.Message
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Enabled(*models.SecurityConfig) bool { return f.enabled }

func (f *fakeChannel) Deliver(ctx context.Context, _ *models.SecurityConfig, msg notify.Message) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, msg)
	return f.err
}

func (f *fakeChannel) Delivered() []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Message(nil), f.delivered...)
}

// countingDelay records how often a denial was padded
type countingDelay struct {
	mu    sync.Mutex
	calls int
}

func (c *countingDelay) Wait(bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

func strPtr(s string) *string { return &s }
