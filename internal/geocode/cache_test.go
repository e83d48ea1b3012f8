package geocode

import (
	"context"
	"testing"
	"time"

	"fieldops_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, ttl, logger.New("test")), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	results := []Result{
		{Label: "123 Main St, Boulder CO 80301", City: "Boulder", Lat: 40.01, Lng: -105.27},
	}
	cache.Set(ctx, "123 main st", results)

	got, ok := cache.Get(ctx, "123 main st")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(got) != 1 || got[0].Lat != 40.01 {
		t.Fatalf("unexpected cached payload: %+v", got)
	}
}

func TestCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)

	if _, ok := cache.Get(context.Background(), "never stored"); ok {
		t.Fatalf("expected cache miss")
	}
}

func TestCacheTTLEviction(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "expiring", []Result{{Label: "x"}})
	if _, ok := cache.Get(ctx, "expiring"); !ok {
		t.Fatalf("expected entry before expiry")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok := cache.Get(ctx, "expiring"); ok {
		t.Fatalf("expected entry evicted after TTL")
	}
}

func TestCacheCorruptPayloadDropped(t *testing.T) {
	cache, mr := newTestCache(t, time.Hour)

	if err := mr.Set(cacheKeyPrefix+"bad", "not json"); err != nil {
		t.Fatalf("seeding corrupt entry: %v", err)
	}
	if _, ok := cache.Get(context.Background(), "bad"); ok {
		t.Fatalf("corrupt payload must read as a miss")
	}
}
