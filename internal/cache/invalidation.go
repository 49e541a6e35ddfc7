// Package cache carries security config invalidations between guard instances.
package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// InvalidationChannel is the Redis pub/sub channel used for config invalidations
const InvalidationChannel = "loginguard:security_config:invalidate"

// Invalidator broadcasts that the security config changed
type Invalidator interface {
	PublishInvalidation(ctx context.Context) error
}

// NoopInvalidator is used for single-instance deployments
type NoopInvalidator struct{}

func (NoopInvalidator) PublishInvalidation(context.Context) error { return nil }

// RedisInvalidator publishes and receives invalidations over Redis pub/sub
type RedisInvalidator struct {
	client     *redis.Client
	instanceID string
	logger     *slog.Logger
}

// NewRedisInvalidator parses url and returns an invalidator. instanceID lets a
// subscriber skip its own publications.
func NewRedisInvalidator(url, instanceID string, logger *slog.Logger) (*RedisInvalidator, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return NewRedisInvalidatorWithClient(redis.NewClient(opts), instanceID, logger), nil
}

// NewRedisInvalidatorWithClient wraps an existing client
func NewRedisInvalidatorWithClient(client *redis.Client, instanceID string, logger *slog.Logger) *RedisInvalidator {
	return &RedisInvalidator{client: client, instanceID: instanceID, logger: logger}
}

func (r *RedisInvalidator) PublishInvalidation(ctx context.Context) error {
	if err := r.client.Publish(ctx, InvalidationChannel, r.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to publish config invalidation: %w", err)
	}
	return nil
}

// Subscribe calls onInvalidate for every invalidation published by another
// instance until ctx is cancelled.
func (r *RedisInvalidator) Subscribe(ctx context.Context, onInvalidate func()) {
	sub := r.client.Subscribe(ctx, InvalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("config invalidation subscriber stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Payload == r.instanceID {
				continue
			}
			r.logger.Info("security config invalidated by peer", slog.String("peer", msg.Payload))
			onInvalidate()
		}
	}
}

// Ping checks connectivity
func (r *RedisInvalidator) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisInvalidator) Close() error {
	return r.client.Close()
}
