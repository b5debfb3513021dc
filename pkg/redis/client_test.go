package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/searchlab/termindex/pkg/config"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TI_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := NewClient(ctx, config.RedisConfig{Addr: addr, DB: 15, PoolSize: 2})
	if err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetSetFlush(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	if _, found, err := c.Get(ctx, "termindex-test:missing"); err != nil || found {
		t.Fatalf("Get(missing) = found %v, err %v", found, err)
	}
	for _, k := range []string{"termindex-test:a", "termindex-test:b"} {
		if err := c.Set(ctx, k, []byte("v"), time.Minute); err != nil {
			t.Fatalf("Set(%s) error = %v", k, err)
		}
	}
	v, found, err := c.Get(ctx, "termindex-test:a")
	if err != nil || !found || v != "v" {
		t.Fatalf("Get(a) = %q, %v, %v", v, found, err)
	}
	n, err := c.FlushByPattern(ctx, "termindex-test:*")
	if err != nil {
		t.Fatalf("FlushByPattern() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d keys, want 2", n)
	}
}
