// Package keystore deletes the Redis keys that render jobs leave behind
package keystore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store removes keys from the job cache
type Store interface {
	// Delete removes the given keys and returns how many existed
	Delete(ctx context.Context, keys ...string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Config holds Redis connection settings
type Config struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// RedisStore is a Store backed by a Redis server
type RedisStore struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisStore creates a store for the given server. No connection is made
// until the first command.
func NewRedisStore(cfg Config, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}

	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	return &RedisStore{
		rdb:    redis.NewClient(opts),
		logger: logger.With("component", "keystore", "addr", cfg.Addr),
	}
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(rdb *redis.Client, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{rdb: rdb, logger: logger.With("component", "keystore")}
}

// Delete removes keys with a single DEL command
func (s *RedisStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("delete %d redis keys: %w", len(keys), err)
	}

	s.logger.DebugContext(ctx, "deleted redis keys", "requested", len(keys), "deleted", n)
	return n, nil
}

// Ping checks the server is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
