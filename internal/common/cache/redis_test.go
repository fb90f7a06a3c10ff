package cache_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"codejudge/internal/common/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	return c, mr
}

func TestRedisCacheGetMissingKey(t *testing.T) {
	c, _ := newTestCache(t)
	val, err := c.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != "" {
		t.Fatalf("expected empty value, got %q", val)
	}
}

func TestRedisCacheLockOwnership(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	ok, err := c.TryLock(ctx, "lock:1", "owner-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first lock to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = c.TryLock(ctx, "lock:1", "owner-b", time.Minute)
	if err != nil {
		t.Fatalf("second lock failed: %v", err)
	}
	if ok {
		t.Fatalf("expected second lock to be rejected")
	}

	if err := c.Unlock(ctx, "lock:1", "owner-b"); err != nil {
		t.Fatalf("foreign unlock failed: %v", err)
	}
	if !mr.Exists("lock:1") {
		t.Fatalf("expected foreign unlock to keep the lock")
	}
	if err := c.Unlock(ctx, "lock:1", "owner-a"); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if mr.Exists("lock:1") {
		t.Fatalf("expected owner unlock to release the lock")
	}
}

func TestGetWithCachedStoresValueAndEmptyMarker(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	calls := 0
	load := func(value int) func(context.Context) (int, error) {
		return func(context.Context) (int, error) {
			calls++
			return value, nil
		}
	}
	isEmpty := func(v int) bool { return v == 0 }
	marshal := func(v int) string { return strconv.Itoa(v) }
	unmarshal := func(s string) (int, error) { return strconv.Atoi(s) }

	got, err := cache.GetWithCached(ctx, c, "k", time.Minute, time.Second, isEmpty, marshal, unmarshal, load(42))
	if err != nil || got != 42 {
		t.Fatalf("expected 42, got %d err=%v", got, err)
	}
	got, err = cache.GetWithCached(ctx, c, "k", time.Minute, time.Second, isEmpty, marshal, unmarshal, load(7))
	if err != nil || got != 42 {
		t.Fatalf("expected cached 42, got %d err=%v", got, err)
	}
	if calls != 1 {
		t.Fatalf("expected one load, got %d", calls)
	}

	if _, err := cache.GetWithCached(ctx, c, "empty", time.Minute, time.Second, isEmpty, marshal, unmarshal, load(0)); err != nil {
		t.Fatalf("load empty failed: %v", err)
	}
	raw, _ := mr.Get("empty")
	if raw != cache.NullCacheValue {
		t.Fatalf("expected null marker, got %q", raw)
	}
}

func TestGetWithCachedPropagatesLoadError(t *testing.T) {
	c, _ := newTestCache(t)
	boom := errors.New("boom")
	_, err := cache.GetWithCached(context.Background(), c, "k", time.Minute, time.Second,
		func(v int) bool { return v == 0 },
		strconv.Itoa,
		strconv.Atoi,
		func(context.Context) (int, error) { return 0, boom },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestJitterTTLWithinTenPercent(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := cache.JitterTTL(10 * time.Second)
		if got > 10*time.Second || got < 9*time.Second {
			t.Fatalf("jitter out of range: %v", got)
		}
	}
	if cache.JitterTTL(0) != 0 {
		t.Fatalf("expected zero ttl to pass through")
	}
}
