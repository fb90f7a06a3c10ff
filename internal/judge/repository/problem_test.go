package repository

import (
	"context"
	"errors"
	"testing"

	"codejudge/internal/common/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	return c
}

func TestListTestCasesKeepsOrderAndCaches(t *testing.T) {
	fake := &fakeDB{rows: [][]interface{}{
		{int64(1), int64(5), "2 2", "4", 5, false},
		{int64(2), int64(5), "2 3", "5", 5, true},
	}}
	repo := NewProblemRepository(fake, newMiniCache(t))
	ctx := context.Background()

	cases, err := repo.ListTestCases(ctx, 5)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(cases) != 2 || cases[0].ID != 1 || cases[1].ID != 2 || !cases[1].IsSample {
		t.Fatalf("unexpected cases: %+v", cases)
	}
	again, err := repo.ListTestCases(ctx, 5)
	if err != nil {
		t.Fatalf("cached list failed: %v", err)
	}
	if len(again) != 2 || again[1].ExpectedOutput != "5" {
		t.Fatalf("unexpected cached cases: %+v", again)
	}
	if fake.queries != 1 {
		t.Fatalf("expected one query, got %d", fake.queries)
	}
}

func TestGetProblemNotFoundIsCached(t *testing.T) {
	fake := &fakeDB{}
	repo := NewProblemRepository(fake, newMiniCache(t))
	for i := 0; i < 2; i++ {
		if _, err := repo.GetByID(context.Background(), 3); !errors.Is(err, ErrProblemNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if fake.queries != 1 {
		t.Fatalf("expected one query, got %d", fake.queries)
	}
}

func TestGetProblemAppliesDefaults(t *testing.T) {
	fake := &fakeDB{row: []interface{}{int64(3), "A+B", int64(0), int64(0), 10}}
	p, err := NewProblemRepository(fake, nil).GetByID(context.Background(), 3)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if p.TimeLimitMs != 1000 || p.MemoryLimitMB != 256 || p.Points != 10 {
		t.Fatalf("unexpected problem: %+v", p)
	}
}
