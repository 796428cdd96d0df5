package cache

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/CHRISHLOH/tmdb-etl/internal/testutil"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTestCache(t *testing.T, opts ...Option) (*CacheDB, *testClock) {
	t.Helper()

	env := testutil.NewTestEnv(t)
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	cache, err := NewCacheDB(filepath.Join(env.RootDir(), "cache.db"), append([]Option{WithNow(clock.Now)}, opts...)...)
	if err != nil {
		t.Fatalf("Failed to create cache database: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })

	return cache, clock
}

func TestPutAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)

	if err := cache.Put("https://api.test/movie/1", []byte(`{"id":1}`), false); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	payload, notFound, ok := cache.Get("https://api.test/movie/1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if notFound {
		t.Error("expected a payload, got a NotFound marker")
	}
	if string(payload) != `{"id":1}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestGetMiss(t *testing.T) {
	cache, _ := setupTestCache(t)

	if _, _, ok := cache.Get("missing"); ok {
		t.Error("expected cache miss")
	}
}

func TestNotFoundMarker(t *testing.T) {
	cache, _ := setupTestCache(t)

	if err := cache.Put("gone", []byte("ignored"), true); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	payload, notFound, ok := cache.Get("gone")
	if !ok || !notFound {
		t.Fatalf("Get() = ok %v notFound %v, want both true", ok, notFound)
	}
	if payload != nil {
		t.Errorf("NotFound entries carry no payload, got %q", payload)
	}
}

func TestExpiry(t *testing.T) {
	cache, clock := setupTestCache(t)

	if err := cache.Put("hit", []byte(`{}`), false); err != nil {
		t.Fatal(err)
	}
	if err := cache.Put("gone", nil, true); err != nil {
		t.Fatal(err)
	}

	clock.Advance(NegativeCacheTTL + time.Hour)

	if _, _, ok := cache.Get("gone"); ok {
		t.Error("NotFound entry should expire after the negative TTL")
	}
	if _, _, ok := cache.Get("hit"); !ok {
		t.Error("successful entry should outlive the negative TTL")
	}

	clock.Advance(DefaultCacheTTL)
	if _, _, ok := cache.Get("hit"); ok {
		t.Error("successful entry should expire after the TTL")
	}
}

func TestCustomTTL(t *testing.T) {
	cache, clock := setupTestCache(t, WithTTL(time.Hour), WithNegativeTTL(time.Minute))

	if err := cache.Put("k", []byte(`1`), false); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Hour)
	if _, _, ok := cache.Get("k"); ok {
		t.Error("expected entry to expire with custom TTL")
	}
}

func TestPutOverwrites(t *testing.T) {
	cache, _ := setupTestCache(t)

	if err := cache.Put("k", nil, true); err != nil {
		t.Fatal(err)
	}
	if err := cache.Put("k", []byte(`{"v":2}`), false); err != nil {
		t.Fatal(err)
	}

	payload, notFound, ok := cache.Get("k")
	if !ok || notFound || string(payload) != `{"v":2}` {
		t.Errorf("Get() = %q %v %v", payload, notFound, ok)
	}
}

func TestClearExpiredAndAll(t *testing.T) {
	cache, clock := setupTestCache(t)

	for _, key := range []string{"a", "b"} {
		if err := cache.Put(key, []byte(`{}`), false); err != nil {
			t.Fatal(err)
		}
	}
	if err := cache.Put("nf", nil, true); err != nil {
		t.Fatal(err)
	}

	clock.Advance(NegativeCacheTTL + time.Minute)
	removed, err := cache.ClearExpired()
	if err != nil {
		t.Fatalf("ClearExpired() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("ClearExpired() removed %d, want 1", removed)
	}

	n, err := cache.Count()
	if err != nil || n != 2 {
		t.Fatalf("Count() = %d, %v; want 2", n, err)
	}

	removed, err = cache.ClearAll()
	if err != nil || removed != 2 {
		t.Errorf("ClearAll() = %d, %v; want 2", removed, err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	cache, _ := setupTestCache(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := filepath.Join("k", string(rune('a'+i)))
			if err := cache.Put(key, []byte(`{}`), false); err != nil {
				t.Errorf("Put() error = %v", err)
				return
			}
			if _, _, ok := cache.Get(key); !ok {
				t.Errorf("expected hit for %s", key)
			}
		}(i)
	}
	wg.Wait()
}
