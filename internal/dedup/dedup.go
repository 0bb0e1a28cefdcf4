// Package dedup remembers handled event ids so redelivered events are applied once
package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Registry interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// redisClient - подмножество redis.UniversalClient, которое нужно реестру
type redisClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type RedisRegistry struct {
	client    redisClient
	namespace string
	ttl       time.Duration
}

func NewRedisRegistry(client redisClient, namespace string, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, namespace: namespace, ttl: ttl}
}

func (r *RedisRegistry) key(eventID string) string {
	return r.namespace + ":" + eventID
}

func (r *RedisRegistry) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisRegistry) Mark(ctx context.Context, eventID string) error {
	return r.client.Set(ctx, r.key(eventID), 1, r.ttl).Err()
}

// Noop - используется, когда REDIS_ADDR не задан
type Noop struct{}

func (Noop) Seen(context.Context, string) (bool, error) { return false, nil }
func (Noop) Mark(context.Context, string) error         { return nil }

// New - без адреса Redis возвращает Noop
func New(ctx context.Context, addr, password, namespace string, ttl time.Duration) (Registry, func() error, error) {
	if addr == "" {
		return Noop{}, func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return NewRedisRegistry(client, namespace, ttl), client.Close, nil
}
