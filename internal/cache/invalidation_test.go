package cache

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopInvalidator(t *testing.T) {
	var inv Invalidator = NoopInvalidator{}
	assert.NoError(t, inv.PublishInvalidation(context.Background()))
}

func TestNewRedisInvalidator_RejectsBadURL(t *testing.T) {
	_, err := NewRedisInvalidator("not-a-redis-url", "i-1", slog.Default())
	assert.Error(t, err)
}

func TestNewRedisInvalidator_ParsesURL(t *testing.T) {
	inv, err := NewRedisInvalidator("redis://localhost:6379/0", "i-1", slog.Default())
	assert.NoError(t, err)
	assert.NoError(t, inv.Close())
}
