// Package stratcache implements the strategy-parameter lookup chain: an
// in-memory map, falling back to Redis (L2), falling back to Postgres.
// Redis unavailability never fails a lookup — it is a pure performance
// layer over the source of truth.
package stratcache

import (
	"context"
	"sync"
	"time"

	"backtest-engine/internal/cache"
	"backtest-engine/internal/models"
)

// Loader fetches a strategy's parameters from the system of record when
// neither the in-memory map nor Redis has it.
type Loader interface {
	LoadStrategyParams(ctx context.Context, strategyID int64) (models.StrategyParams, error)
}

// Cache is the lazy-loading strategy parameter cache used by the
// simulator's open path.
type Cache struct {
	mu     sync.RWMutex
	memory map[int64]models.StrategyParams

	redis *cache.CacheService // nil when Redis is disabled
	ttl   time.Duration
	load  Loader
}

// New constructs a Cache. redisSvc may be nil (Redis disabled), in which
// case lookups fall straight through to load after an in-memory miss.
func New(redisSvc *cache.CacheService, ttl time.Duration, load Loader) *Cache {
	return &Cache{
		memory: make(map[int64]models.StrategyParams),
		redis:  redisSvc,
		ttl:    ttl,
		load:   load,
	}
}

// Get returns the parameters for strategyID, checking memory, then
// Redis, then the lazy loader, caching at every tier it falls through.
func (c *Cache) Get(ctx context.Context, strategyID int64) (models.StrategyParams, error) {
	c.mu.RLock()
	if params, ok := c.memory[strategyID]; ok {
		c.mu.RUnlock()
		return params, nil
	}
	c.mu.RUnlock()

	if c.redis != nil {
		var params models.StrategyParams
		key := cache.StrategyParamsKey(strategyID)
		if err := c.redis.GetJSON(ctx, key, &params); err == nil {
			c.store(strategyID, params)
			return params, nil
		}
		// Redis miss or unavailable: fall through to the loader.
	}

	params, err := c.load.LoadStrategyParams(ctx, strategyID)
	if err != nil {
		return models.StrategyParams{}, err
	}

	c.store(strategyID, params)
	if c.redis != nil {
		key := cache.StrategyParamsKey(strategyID)
		_ = c.redis.SetJSON(ctx, key, params, c.ttl)
	}

	return params, nil
}

func (c *Cache) store(strategyID int64, params models.StrategyParams) {
	c.mu.Lock()
	c.memory[strategyID] = params
	c.mu.Unlock()
}
