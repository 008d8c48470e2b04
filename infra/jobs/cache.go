package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/afetops/coordcore/core/jobqueue"
)

// resultTTL bounds how long a published aggregation stays readable. Each
// job type is recomputed on a shorter cadence, so readers never see a
// result older than one missed cycle plus the slack here.
const resultTTL = time.Hour

// ResultCache stores the latest aggregation result per job type and
// disaster. Writers always overwrite; readers get the newest value or a
// miss.
type ResultCache interface {
	Set(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string, dest any) error
}

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = fmt.Errorf("jobs: cache miss")

// ResultKey builds the cache key for one aggregation result.
func ResultKey(t jobqueue.JobType, disasterID uuid.UUID, window time.Duration) string {
	return fmt.Sprintf("aggregation:%s:%s:%s", t, disasterID, window)
}

// RedisCache persists results in Redis with a TTL.
type RedisCache struct {
	cli *redis.Client
}

// RedisConf configures the Redis connection.
type RedisConf struct {
	Addr     string `json:"addr" koanf:"addr"`
	Password string `json:"password" koanf:"password"`
	DB       int    `json:"db" koanf:"db"`
}

func NewRedisCache(conf RedisConf) *RedisCache {
	return &RedisCache{cli: redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})}
}

func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("jobs: marshal result: %w", err)
	}
	return c.cli.Set(ctx, key, b, resultTTL).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string, dest any) error {
	b, err := c.cli.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

func (c *RedisCache) Close() error { return c.cli.Close() }

// MemoryCache is the in-process fallback when no Redis is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Set(_ context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("jobs: marshal result: %w", err)
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{data: b, expires: time.Now().Add(resultTTL)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string, dest any) error {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		return ErrCacheMiss
	}
	return json.Unmarshal(e.data, dest)
}
