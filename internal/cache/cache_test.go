package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data[key] = value
	return nil
}

func newTestCache(kv KV, schema, maxSize int) *Cache[string] {
	return New[string]("test", kv, 24*time.Hour, schema, maxSize, 10, zerolog.Nop())
}

func TestCache_SetGet(t *testing.T) {
	c := newTestCache(nil, 1, 10)
	ctx := context.Background()

	c.Set(ctx, "0xABCdef", "value")
	got, ok := c.Get(ctx, "0xabcdef") // keys are case-normalized
	if !ok || got != "value" {
		t.Fatalf("Get = (%q, %v), want (value, true)", got, ok)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := newTestCache(nil, 1, 10)
	ctx := context.Background()
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set(ctx, "k", "v")
	c.now = func() time.Time { return base.Add(24*time.Hour + time.Second) }
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry past TTL should be a miss")
	}
}

func TestCache_SchemaVersionMismatch(t *testing.T) {
	c := newTestCache(nil, 1, 10)
	ctx := context.Background()
	c.Set(ctx, "k", "v")

	// the code now expects schema N+1: the stored entry must read as absent
	// even though it has not expired by time
	c.schema = 2
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry with stale schema version should be a miss")
	}
}

func TestCache_EvictionBound(t *testing.T) {
	const maxSize = 50
	c := newTestCache(nil, 1, maxSize)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < maxSize*3; i++ {
		tick := base.Add(time.Duration(i) * time.Millisecond)
		c.now = func() time.Time { return tick }
		c.Set(ctx, fmt.Sprintf("key-%d", i), "v")
		if size, _ := c.Stats(); size > maxSize {
			t.Fatalf("cache grew to %d, cap is %d", size, maxSize)
		}
	}

	// newest entries survive, the oldest were evicted
	if _, ok := c.Get(ctx, fmt.Sprintf("key-%d", maxSize*3-1)); !ok {
		t.Fatal("most recent entry missing after eviction")
	}
	if _, ok := c.Get(ctx, "key-0"); ok {
		t.Fatal("oldest entry survived eviction")
	}
}

func TestCache_L2PromotionAndFireAndForget(t *testing.T) {
	kv := newFakeKV()
	ctx := context.Background()

	// seed the durable tier directly, as another process would
	e := entry[string]{Data: "shared", Timestamp: time.Now().UnixMilli(), SchemaVersion: 1}
	raw, _ := json.Marshal(e)
	kv.data["cache:test:k"] = raw

	c := newTestCache(kv, 1, 10)
	got, ok := c.Get(ctx, "k")
	if !ok || got != "shared" {
		t.Fatalf("Get via L2 = (%q, %v), want (shared, true)", got, ok)
	}

	// promoted: a poisoned L2 no longer matters
	kv.mu.Lock()
	kv.err = fmt.Errorf("store down")
	kv.mu.Unlock()
	if got, ok := c.Get(ctx, "k"); !ok || got != "shared" {
		t.Fatalf("Get after promotion = (%q, %v), want (shared, true)", got, ok)
	}

	// and a Set against the broken store must not fail the caller
	c.Set(ctx, "other", "v")
	if got, ok := c.Get(ctx, "other"); !ok || got != "v" {
		t.Fatalf("Get after best-effort Set = (%q, %v), want (v, true)", got, ok)
	}
}

func TestCache_Stats(t *testing.T) {
	c := newTestCache(nil, 1, 10)
	ctx := context.Background()

	c.Set(ctx, "a", "1")
	c.Get(ctx, "a")    // hit
	c.Get(ctx, "gone") // miss

	size, hitRate := c.Stats()
	if size != 1 {
		t.Errorf("size = %d, want 1", size)
	}
	if hitRate != 0.5 {
		t.Errorf("hitRate = %v, want 0.5", hitRate)
	}
}
