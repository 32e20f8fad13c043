// Package parsecache caches fallback-parser results in a key-value store,
// keyed by a fingerprint of the listing text. Repeated extraction of the
// same text never re-invokes a model.
package parsecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/urbo-labs/casamatch/internal/db"
	"github.com/urbo-labs/casamatch/internal/domain"
)

const keyPrefix = "casamatch:parse_cache:"

// store is the consumer interface for the parse cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Chain is the upstream fallback parser: returns the feature set and the
// name of the provider that produced it.
type Chain interface {
	Parse(ctx context.Context, req domain.ParseRequest) (domain.FeatureSet, string, error)
}

// UsageRecorder receives hit/miss events for persistent usage reporting.
type UsageRecorder interface {
	RecordCacheHit(ctx context.Context)
	RecordCacheMiss(ctx context.Context)
}

// Cache is a caching decorator around the provider chain. Concurrent misses
// on the same fingerprint collapse into one in-flight provider call.
type Cache struct {
	inner      Chain
	store      store
	ttl        time.Duration // 0 = no expiry
	cacheTotal *prometheus.CounterVec
	usage      UsageRecorder
	group      singleflight.Group
	logger     *zap.Logger
}

// entry is the cached value: features plus the provider that supplied them.
type entry struct {
	Features domain.FeatureSet `json:"features"`
	Provider string            `json:"provider"`
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner Chain,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	return &Cache{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// WithUsageRecorder attaches a persistent usage recorder. nil disables it.
func (c *Cache) WithUsageRecorder(u UsageRecorder) *Cache {
	c.usage = u
	return c
}

// Fingerprint returns the stable cache key component for a listing text.
func Fingerprint(title, description string) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(description))
	return hex.EncodeToString(h.Sum(nil))
}

// Parse returns a cached result or calls the inner chain exactly once per
// fingerprint, whatever the number of concurrent callers.
func (c *Cache) Parse(ctx context.Context, req domain.ParseRequest) (domain.FeatureSet, string, error) {
	key := keyPrefix + Fingerprint(req.Title, req.Description)

	if e, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		if c.usage != nil {
			c.usage.RecordCacheHit(ctx)
		}
		return e.Features, e.Provider, nil
	}

	c.incCache("miss")
	if c.usage != nil {
		c.usage.RecordCacheMiss(ctx)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent caller may have populated the key while this flight
		// was queued.
		if e, ok := c.getFromCache(ctx, key); ok {
			return e, nil
		}

		fs, provider, err := c.inner.Parse(ctx, req)
		if err != nil {
			return entry{}, err
		}

		e := entry{Features: fs, Provider: provider}
		c.putToCache(ctx, key, e)
		return e, nil
	})
	if err != nil {
		return domain.FeatureSet{}, "", fmt.Errorf("fallback parse: %w", err)
	}

	e := v.(entry)
	return e.Features, e.Provider, nil
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *Cache) getFromCache(ctx context.Context, key string) (entry, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached parse result", zap.String("key", key), zap.Error(err))
		}
		return entry{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Failed to decode cached parse result", zap.String("key", key), zap.Error(err))
		return entry{}, false
	}
	return e, true
}

func (c *Cache) putToCache(ctx context.Context, key string, e entry) {
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn("Failed to encode parse result", zap.String("key", key), zap.Error(err))
		return
	}

	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Failed to cache parse result", zap.String("key", key), zap.Error(err))
	}
}
