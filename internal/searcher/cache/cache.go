package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/searchlab/termindex/internal/searcher/executor"
	"github.com/searchlab/termindex/pkg/logger"
	"github.com/searchlab/termindex/pkg/metrics"
	"github.com/searchlab/termindex/pkg/resilience"
)

const (
	keyPrefix             = "search:"
	defaultComputeTimeout = 30 * time.Second
)

// Store is the key/value backend of the cache; *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// QueryCache stores search results keyed by mode, normalised query and
// limit. Concurrent misses for one key compute the result once.
type QueryCache struct {
	store          Store
	ttl            time.Duration
	computeTimeout time.Duration
	group          singleflight.Group
	metrics        *metrics.Metrics
	logger         *slog.Logger
	hits           atomic.Int64
	misses         atomic.Int64
}

type Option func(*QueryCache)

// WithComputeTimeout bounds a shared computation once it no longer follows
// the context of the request that started it.
func WithComputeTimeout(d time.Duration) Option {
	return func(c *QueryCache) {
		if d > 0 {
			c.computeTimeout = d
		}
	}
}

func New(store Store, ttl time.Duration, m *metrics.Metrics, opts ...Option) *QueryCache {
	c := &QueryCache{
		store:          store,
		ttl:            ttl,
		computeTimeout: defaultComputeTimeout,
		metrics:        m,
		logger:         logger.WithComponent("query-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *QueryCache) Get(ctx context.Context, key string) (*executor.SearchResult, bool) {
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logStoreError("cache get failed", key, err)
		c.miss()
		return nil, false
	}
	if !found {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, key string, result *executor.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logStoreError("cache set failed", key, err)
	}
}

func (c *QueryCache) logStoreError(msg, key string, err error) {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Debug(msg, "key", key, "error", err)
		return
	}
	c.logger.Error(msg, "key", key, "error", err)
}

// GetOrCompute returns the cached result for (mode, query, limit) or runs
// computeFn and stores its result. Errors are not cached.
//
// Concurrent misses for one key share a single computation. It runs on a
// context detached from any one caller and bounded by the compute timeout,
// so a caller that goes away does not fail the others; that caller gets
// its own ctx.Err() back.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	mode, query string,
	limit int,
	computeFn func(ctx context.Context) (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	key := BuildKey(mode, query, limit)
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	ch := c.group.DoChan(key, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()
		result, err := computeFn(flightCtx)
		if err != nil {
			return nil, err
		}
		c.Set(flightCtx, key, result)
		return result, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*executor.SearchResult), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey hashes the lower-cased query terms. Term order is kept because
// it fixes the floating-point summation order of ranked scores.
func BuildKey(mode, query string, limit int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	raw := fmt.Sprintf("%s|%s|limit=%d", mode, normalized, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
