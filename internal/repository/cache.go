// Package repository provides the storage backends of the catalog response
// cache: Postgres, Redis and an in-process map.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PostgresCacheRepository stores cached upstream bodies in the catalog_cache table.
type PostgresCacheRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
	// now is replaced in tests.
	now func() time.Time
}

// NewPostgresCacheRepository creates a repository over an initialized database.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresCacheRepository(db *sql.DB) *PostgresCacheRepository {
	return &PostgresCacheRepository{DB: db, now: time.Now}
}

// Get returns the body stored under key if it has not expired.
// A missing or expired row is reported as found == false with a nil error.
func (r *PostgresCacheRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body []byte
	err := r.DB.QueryRowContext(ctx,
		`SELECT body FROM catalog_cache WHERE key = $1 AND expires_at >= $2`,
		key, r.now().Unix(),
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}
	return body, true, nil
}

// Set upserts body under key with the given time to live.
func (r *PostgresCacheRepository) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO catalog_cache (key, body, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			body = EXCLUDED.body,
			expires_at = EXCLUDED.expires_at
	`, key, body, r.now().Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

// RedisCacheRepository stores cached upstream bodies as Redis strings with a TTL.
type RedisCacheRepository struct {
	client *redis.Client
	prefix string
}

// ConnectRedis initializes a Redis client from a redis:// URL or host:port.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// NewRedisCacheRepository creates a repository whose keys are prefixed with "storefront:catalog:".
func NewRedisCacheRepository(client *redis.Client) *RedisCacheRepository {
	return &RedisCacheRepository{client: client, prefix: "storefront:catalog:"}
}

func (r *RedisCacheRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}
	return body, true, nil
}

func (r *RedisCacheRepository) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, body, ttl).Err(); err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

type memoryEntry struct {
	body      []byte
	expiresAt time.Time
}

// MemoryCacheRepository keeps cached bodies in process memory.
type MemoryCacheRepository struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCacheRepository creates an empty in-memory cache.
func NewMemoryCacheRepository() *MemoryCacheRepository {
	return &MemoryCacheRepository{entries: make(map[string]memoryEntry), now: time.Now}
}

func (r *MemoryCacheRepository) Get(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false, nil
	}
	if r.now().After(e.expiresAt) {
		delete(r.entries, key)
		return nil, false, nil
	}
	return e.body, true, nil
}

func (r *MemoryCacheRepository) Set(_ context.Context, key string, body []byte, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = memoryEntry{body: append([]byte(nil), body...), expiresAt: r.now().Add(ttl)}
	return nil
}
