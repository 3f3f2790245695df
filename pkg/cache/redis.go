// Package cache provides Redis-backed caching of coverage results, so
// repeated analyses of the same log skip the ranking work.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tracelens/tracelens/pkg/variants"
)

// ErrMiss is returned when no cached entry exists for a digest.
var ErrMiss = fmt.Errorf("cache: miss")

// Config configures the Redis cache.
type Config struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address string

	// Password for Redis authentication (optional)
	Password string

	// Database number to use (default: 0)
	Database int

	// Prefix is prepended to all cache keys (e.g., "tracelens:")
	Prefix string

	// TTL is the time-to-live for cached entries (0 = no expiration)
	TTL time.Duration

	// Timeout for Redis operations
	Timeout time.Duration

	// PoolSize is the maximum number of connections
	PoolSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(address string) Config {
	return Config{
		Address:  address,
		Prefix:   "tracelens:coverage:",
		TTL:      24 * time.Hour,
		Timeout:  5 * time.Second,
		PoolSize: 10,
	}
}

// Cache stores coverage results keyed by log content digest.
type Cache struct {
	cfg    Config
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(cfg Config) (*Cache, error) {
	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{cfg: cfg, client: client}, nil
}

// entry is the stored representation of a cached result.
type entry struct {
	Digest  string         `json:"digest"`
	Source  string         `json:"source"`
	Cases   int            `json:"cases"`
	Rows    []variants.Row `json:"rows"`
	SavedAt time.Time      `json:"saved_at"`
}

func (c *Cache) key(digest string) string {
	return c.cfg.Prefix + digest
}

// Digest computes the cache key for a log file: the SHA-256 of its raw
// bytes. Two byte-identical files always hit the same entry.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Put stores the ranked coverage rows for a log digest.
func (c *Cache) Put(ctx context.Context, digest, source string, cases int, rows []variants.Row) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(&entry{
		Digest:  digest,
		Source:  source,
		Cases:   cases,
		Rows:    rows,
		SavedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.client.Set(ctx, c.key(digest), data, c.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

// Get retrieves the cached coverage rows for a log digest. Returns
// ErrMiss when no entry exists.
func (c *Cache) Get(ctx context.Context, digest string) ([]variants.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	data, err := c.client.Get(ctx, c.key(digest)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to load cache entry: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return e.Rows, nil
}

// Invalidate removes the entry for a digest.
func (c *Cache) Invalidate(ctx context.Context, digest string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return c.client.Del(ctx, c.key(digest)).Err()
}

// Ping checks the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
