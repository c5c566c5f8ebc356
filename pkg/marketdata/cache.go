package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNoSnapshot is returned when no snapshot has been published for a symbol
var ErrNoSnapshot = errors.New("no snapshot for symbol")

// Cache stores and serves top-of-book snapshots.
type Cache interface {
	Publish(ctx context.Context, snapshot *Snapshot) error
	Get(ctx context.Context, symbol string) (*Snapshot, error)
	Close() error
}

// RedisOptions represents configuration options for the Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

var defaultOptions = &RedisOptions{
	Addr:     "localhost:6379",
	Password: "",
	DB:       0,
}

// SetDefaultRedisOptions sets the default options for Redis connections
func SetDefaultRedisOptions(options *RedisOptions) {
	defaultOptions = options
}

// GetRedisClient creates a new Redis client using the default options
func GetRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     defaultOptions.Addr,
		Password: defaultOptions.Password,
		DB:       defaultOptions.DB,
	})
}

// RedisCache serves snapshots from Redis so top-of-book reads never touch
// the matching path. Entries expire so a stopped publisher cannot serve
// arbitrarily old quotes forever.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache creates a snapshot cache on an existing client.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisCache) key(symbol string) string {
	return fmt.Sprintf("%s:topofbook:%s", c.prefix, symbol)
}

// Publish stores a snapshot, replacing any previous one for the symbol.
func (c *RedisCache) Publish(ctx context.Context, snapshot *Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.key(snapshot.Symbol), data, c.ttl).Err(); err != nil {
		c.logger.Error("failed to publish snapshot",
			zap.String("symbol", snapshot.Symbol),
			zap.Error(err))
		return err
	}
	return nil
}

// Get returns the latest published snapshot for a symbol.
func (c *RedisCache) Get(ctx context.Context, symbol string) (*Snapshot, error) {
	data, err := c.client.Get(ctx, c.key(symbol)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoSnapshot
		}
		c.logger.Error("failed to get snapshot",
			zap.String("symbol", symbol),
			zap.Error(err))
		return nil, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		c.logger.Error("failed to unmarshal snapshot",
			zap.String("symbol", symbol),
			zap.Error(err))
		return nil, err
	}
	return &snapshot, nil
}

// Close releases the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// MemoryCache is the in-process Cache used in tests and single-node runs.
type MemoryCache struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{snapshots: make(map[string]*Snapshot)}
}

// Publish stores a snapshot.
func (c *MemoryCache) Publish(_ context.Context, snapshot *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[snapshot.Symbol] = snapshot
	return nil
}

// Get returns the latest snapshot for a symbol.
func (c *MemoryCache) Get(_ context.Context, symbol string) (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot, exists := c.snapshots[symbol]
	if !exists {
		return nil, ErrNoSnapshot
	}
	return snapshot, nil
}

// Close is a no-op for the memory cache.
func (c *MemoryCache) Close() error {
	return nil
}
