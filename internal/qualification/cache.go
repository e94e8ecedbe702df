package qualification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ridgelineauto/scheduling-api/pkg/logging"
)

const (
	cacheKeyPrefix      = "qual:"
	techsKeyPrefix      = cacheKeyPrefix + "techs:"
	departmentsCacheKey = cacheKeyPrefix + "departments"

	// DefaultCacheTTL bounds how stale qualification data can get. The
	// sheet changes rarely; five minutes keeps edits visible without
	// hammering the Sheets API on every availability request.
	DefaultCacheTTL = 5 * time.Minute
)

// Cache wraps a Source with a redis TTL cache. A cache failure is never
// fatal: reads fall through to the underlying source and write failures
// are logged and dropped.
type Cache struct {
	source Source
	rdb    *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCache wraps source. A non-positive ttl uses DefaultCacheTTL.
func NewCache(source Source, rdb *redis.Client, ttl time.Duration, logger *logging.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Cache{source: source, rdb: rdb, ttl: ttl, logger: logger}
}

// TechsForDepartment serves from redis when fresh, otherwise reads
// through and caches the result.
func (c *Cache) TechsForDepartment(ctx context.Context, department string) ([]QualifiedTech, error) {
	key := techsKeyPrefix + department
	if cached, ok := c.get(ctx, key); ok {
		var techs []QualifiedTech
		if err := json.Unmarshal(cached, &techs); err == nil {
			return techs, nil
		}
		c.logger.Warn("qualification cache entry corrupt", "key", key)
	}

	techs, err := c.source.TechsForDepartment(ctx, department)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, techs)
	return techs, nil
}

// Departments serves the department list with the same read-through policy.
func (c *Cache) Departments(ctx context.Context) ([]string, error) {
	if cached, ok := c.get(ctx, departmentsCacheKey); ok {
		var departments []string
		if err := json.Unmarshal(cached, &departments); err == nil {
			return departments, nil
		}
		c.logger.Warn("qualification cache entry corrupt", "key", departmentsCacheKey)
	}

	departments, err := c.source.Departments(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, departmentsCacheKey, departments)
	return departments, nil
}

// HealthCheck probes the underlying source, not the cache.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.source.HealthCheck(ctx)
}

// Status reports the cache backend state for readiness probes.
func (c *Cache) Status(ctx context.Context) string {
	if c.rdb == nil {
		return "disabled"
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return "unavailable"
	}
	return "ok"
}

// Clear drops every cached qualification entry and returns how many keys
// were removed. Call it after editing the staffing sheet.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	if c.rdb == nil {
		return 0, nil
	}
	var removed int64
	iter := c.rdb.Scan(ctx, 0, cacheKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		n, err := c.rdb.Del(ctx, iter.Val()).Result()
		if err != nil {
			return removed, fmt.Errorf("qualification: clear cache: %w", err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("qualification: scan cache keys: %w", err)
	}
	return removed, nil
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	if c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("qualification cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) set(ctx context.Context, key string, value any) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("qualification cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("qualification cache write failed", "key", key, "error", err)
	}
}
