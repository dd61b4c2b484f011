package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/domain/shared"
	"github.com/furniro/storefront/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// RedisStorage implements collection.Storage using Redis strings.
// Multiple storefront instances share device state through it.
type RedisStorage struct {
	client     *redis.Client
	keyPrefix  string
	ttl        time.Duration
	quotaBytes int64
}

// RedisStorageOption configures a RedisStorage
type RedisStorageOption func(*RedisStorage)

// WithRedisKeyPrefix namespaces every key
func WithRedisKeyPrefix(prefix string) RedisStorageOption {
	return func(s *RedisStorage) { s.keyPrefix = prefix }
}

// WithRedisTTL expires idle payloads; zero keeps them forever
func WithRedisTTL(ttl time.Duration) RedisStorageOption {
	return func(s *RedisStorage) { s.ttl = ttl }
}

// WithRedisQuota rejects payloads larger than n bytes
func WithRedisQuota(n int64) RedisStorageOption {
	return func(s *RedisStorage) { s.quotaBytes = n }
}

// NewRedisClient dials Redis and pings it once. Collection storage and the
// token blacklist each hold one.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewRedisStorage connects to Redis and verifies the connection
func NewRedisStorage(cfg config.RedisConfig, opts ...RedisStorageOption) (*RedisStorage, error) {
	client, err := NewRedisClient(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisStorageWithClient(client, opts...), nil
}

// NewRedisStorageWithClient creates a storage with an existing Redis client
func NewRedisStorageWithClient(client *redis.Client, opts ...RedisStorageOption) *RedisStorage {
	s := &RedisStorage{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the payload stored under key
func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return payload, true, nil
}

// Set replaces the payload stored under key, refreshing its TTL
func (s *RedisStorage) Set(ctx context.Context, key string, payload []byte) error {
	if s.quotaBytes > 0 && int64(len(payload)) > s.quotaBytes {
		return shared.ErrQuotaExceeded
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisStorage) GetClient() *redis.Client {
	return s.client
}

var _ collection.Storage = (*RedisStorage)(nil)
