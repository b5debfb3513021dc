package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/searchlab/termindex/internal/searcher/executor"
	"github.com/searchlab/termindex/internal/searcher/ranker"
	"github.com/searchlab/termindex/pkg/metrics"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value)
	return nil
}

func (s *memoryStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func sampleResult() *executor.SearchResult {
	return &executor.SearchResult{
		Query:     "gato",
		Mode:      executor.ModeBM25,
		TotalHits: 1,
		Results:   []ranker.ScoredDoc{{DocID: "doc1", Score: 1.25}},
		TermStats: map[string]int{"gato": 1},
	}
}

func TestGetOrCompute(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := New(newMemoryStore(), time.Minute, m)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (*executor.SearchResult, error) {
		calls++
		return sampleResult(), nil
	}

	res, hit, err := c.GetOrCompute(ctx, executor.ModeBM25, "gato", 10, compute)
	if err != nil || hit {
		t.Fatalf("first call: hit=%v err=%v", hit, err)
	}
	if res.Results[0].DocID != "doc1" {
		t.Errorf("result = %+v", res)
	}
	res, hit, err = c.GetOrCompute(ctx, executor.ModeBM25, "  GATO ", 10, compute)
	if err != nil || !hit {
		t.Fatalf("second call: hit=%v err=%v", hit, err)
	}
	if res.Results[0].Score != 1.25 {
		t.Errorf("cached score = %v", res.Results[0].Score)
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d/%d, want 1/1", hits, misses)
	}
	if got := testutil.ToFloat64(m.CacheHitsTotal); got != 1 {
		t.Errorf("cache_hits_total = %v", got)
	}
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c := New(newMemoryStore(), time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), executor.ModeBoolean, "a AND", 0, func(context.Context) (*executor.SearchResult, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if _, ok := c.Get(context.Background(), BuildKey(executor.ModeBoolean, "a AND", 0)); ok {
		t.Error("failed computation was cached")
	}
}

func TestGetOrComputeSingleflight(t *testing.T) {
	c := New(newMemoryStore(), time.Minute, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return sampleResult(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.GetOrCompute(context.Background(), executor.ModeBM25, "gato", 10, compute); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("compute called %d times, want 1", n)
	}
}

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name string
		a, b [3]any
		same bool
	}{
		{"case and spacing", [3]any{"bm25", "Gato  Cachorro", 10}, [3]any{"bm25", "gato cachorro", 10}, true},
		{"mode", [3]any{"bm25", "gato", 10}, [3]any{"boolean", "gato", 10}, false},
		{"limit", [3]any{"bm25", "gato", 10}, [3]any{"bm25", "gato", 5}, false},
		{"term order", [3]any{"bm25", "gato cachorro", 10}, [3]any{"bm25", "cachorro gato", 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka := BuildKey(tt.a[0].(string), tt.a[1].(string), tt.a[2].(int))
			kb := BuildKey(tt.b[0].(string), tt.b[1].(string), tt.b[2].(int))
			if (ka == kb) != tt.same {
				t.Errorf("keys %s / %s, want same=%v", ka, kb, tt.same)
			}
		})
	}
}

func TestInvalidate(t *testing.T) {
	store := newMemoryStore()
	c := New(store, time.Minute, nil)
	ctx := context.Background()
	c.Set(ctx, BuildKey("bm25", "gato", 10), sampleResult())
	store.data["other:key"] = "x"

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if len(store.data) != 1 {
		t.Errorf("store has %d keys after invalidate, want 1", len(store.data))
	}
}

func TestGetOrComputeCallerCancelDoesNotFailOthers(t *testing.T) {
	c := New(newMemoryStore(), time.Minute, nil)
	started := make(chan struct{})
	var startOnce sync.Once
	release := make(chan struct{})
	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		startOnce.Do(func() { close(started) })
		select {
		case <-release:
			return sampleResult(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(firstCtx, executor.ModeBM25, "gato", 10, compute)
		firstErr <- err
	}()
	<-started

	secondDone := make(chan error, 1)
	go func() {
		res, _, err := c.GetOrCompute(context.Background(), executor.ModeBM25, "gato", 10, compute)
		if err == nil && res.Results[0].DocID != "doc1" {
			t.Errorf("result = %+v", res)
		}
		secondDone <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller: error = %v, want context.Canceled", err)
	}
	close(release)
	if err := <-secondDone; err != nil {
		t.Errorf("second caller: error = %v", err)
	}
	if _, ok := c.Get(context.Background(), BuildKey(executor.ModeBM25, "gato", 10)); !ok {
		t.Error("shared result was not cached")
	}
}

func TestGetOrComputeTimeout(t *testing.T) {
	c := New(newMemoryStore(), time.Minute, nil, WithComputeTimeout(10*time.Millisecond))
	_, _, err := c.GetOrCompute(context.Background(), executor.ModeBM25, "gato", 10,
		func(ctx context.Context) (*executor.SearchResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}
