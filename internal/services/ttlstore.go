package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLStore is a small expiring key-value abstraction for short-lived state
// such as the per-(user, quiz) start lock. The lifetime is injected; nothing
// in the engine holds process-global mutable state.
type TTLStore interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type RedisTTLStore struct {
	client *redis.Client
}

func NewRedisTTLStore(client *redis.Client) *RedisTTLStore {
	return &RedisTTLStore{client: client}
}

func (s *RedisTTLStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisTTLStore) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *RedisTTLStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
