package securestore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contact-sync/internal/config"
)

// RedisStore is a Store backed by a Redis hash per service, for server-side
// deployments where snapshots live next to the rest of the session state.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store and verifies the connection
func NewRedisStore(cfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("securestore: failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client (used by tests)
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Set stores value under (service, key)
func (s *RedisStore) Set(ctx context.Context, service, key, value string) error {
	if err := s.client.HSet(ctx, hashKey(service), key, value).Err(); err != nil {
		return fmt.Errorf("securestore: redis set failed: %w", err)
	}
	return nil
}

// Get retrieves the value under (service, key)
func (s *RedisStore) Get(ctx context.Context, service, key string) (string, error) {
	value, err := s.client.HGet(ctx, hashKey(service), key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("securestore: redis get failed: %w", err)
	}
	return value, nil
}

// Reset removes every key stored under service
func (s *RedisStore) Reset(ctx context.Context, service string) error {
	if err := s.client.Del(ctx, hashKey(service)).Err(); err != nil {
		return fmt.Errorf("securestore: redis reset failed: %w", err)
	}
	return nil
}

// hashKey returns the Redis key holding all entries for one service.
// Format: securestore:<service>
func hashKey(service string) string {
	return "securestore:" + service
}
