package cache

import (
	"context"
	"errors"
	"time"

	"github.com/searchlab/termindex/pkg/resilience"
)

// BreakerStore guards a Store with a circuit breaker. While the breaker is
// open, calls fail with resilience.ErrCircuitOpen without reaching the
// backend, so searches go straight to computing their result.
type BreakerStore struct {
	store   Store
	breaker *resilience.Breaker
}

func NewBreakerStore(store Store, breaker *resilience.Breaker) *BreakerStore {
	return &BreakerStore{store: store, breaker: breaker}
}

func (s *BreakerStore) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.do(func() error {
		var err error
		value, found, err = s.store.Get(ctx, key)
		return err
	})
	return value, found, err
}

func (s *BreakerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.do(func() error {
		return s.store.Set(ctx, key, value, ttl)
	})
}

func (s *BreakerStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	err := s.do(func() error {
		var err error
		deleted, err = s.store.FlushByPattern(ctx, pattern)
		return err
	})
	return deleted, err
}

// do runs fn through the breaker. A caller giving up is not a backend
// failure and does not count towards opening the breaker.
func (s *BreakerStore) do(fn func() error) error {
	var callErr error
	err := s.breaker.Do(func() error {
		callErr = fn()
		if errors.Is(callErr, context.Canceled) {
			return nil
		}
		return callErr
	})
	if err != nil {
		return err
	}
	return callErr
}
