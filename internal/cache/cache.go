package cache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// KV is the narrow durable-store surface the L2 tier needs. Any KV-capable
// store qualifies; a nil KV leaves the cache running on L1 alone.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type entry[T any] struct {
	Data          T     `json:"data"`
	Timestamp     int64 `json:"timestamp"` // epoch ms
	SchemaVersion int   `json:"schemaVersion"`
}

// Cache is a two-tier cache: a process-local map in front of a best-effort
// durable store. L1 is authoritative for this process; L2 writes are
// fire-and-forget and L2 failures are swallowed.
type Cache[T any] struct {
	name    string
	kv      KV
	ttl     time.Duration
	schema  int
	maxSize int
	divisor int
	logger  zerolog.Logger

	mu     sync.Mutex
	l1     map[string]entry[T]
	hits   uint64
	misses uint64

	now func() time.Time
}

func New[T any](name string, kv KV, ttl time.Duration, schema, maxSize, evictDivisor int, logger zerolog.Logger) *Cache[T] {
	return &Cache[T]{
		name:    name,
		kv:      kv,
		ttl:     ttl,
		schema:  schema,
		maxSize: maxSize,
		divisor: evictDivisor,
		logger:  logger.With().Str("cache", name).Logger(),
		l1:      make(map[string]entry[T]),
		now:     time.Now,
	}
}

// Get returns the cached value for key, checking L1 then L2. A hit in L2 is
// promoted into L1. Entries past TTL or carrying a stale schema version read
// as misses.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	key = normalizeKey(key)
	now := c.now()

	c.mu.Lock()
	if e, ok := c.l1[key]; ok {
		if c.valid(e, now) {
			c.hits++
			c.mu.Unlock()
			return e.Data, true
		}
		delete(c.l1, key)
	}
	c.mu.Unlock()

	if c.kv != nil {
		if raw, ok, err := c.kv.Get(ctx, c.kvKey(key)); err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("durable cache read failed")
		} else if ok {
			var e entry[T]
			if err := json.Unmarshal(raw, &e); err == nil && c.valid(e, now) {
				c.mu.Lock()
				c.insertLocked(key, e)
				c.hits++
				c.mu.Unlock()
				return e.Data, true
			}
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	var zero T
	return zero, false
}

// Set writes the value into L1 and fires a best-effort write to L2 with the
// same TTL. The caller never waits on, or learns about, the L2 write.
func (c *Cache[T]) Set(ctx context.Context, key string, value T) {
	key = normalizeKey(key)
	e := entry[T]{Data: value, Timestamp: c.now().UnixMilli(), SchemaVersion: c.schema}

	c.mu.Lock()
	c.insertLocked(key, e)
	c.mu.Unlock()

	if c.kv == nil {
		return
	}
	raw, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache payload marshal failed")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := c.kv.SetWithTTL(ctx, c.kvKey(key), raw, c.ttl); err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("durable cache write failed")
		}
	}()
}

// Stats reports process-local size and hit rate since startup.
func (c *Cache[T]) Stats() (size int, hitRate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return len(c.l1), hitRate
}

func (c *Cache[T]) valid(e entry[T], now time.Time) bool {
	if e.SchemaVersion != c.schema {
		return false
	}
	return now.UnixMilli()-e.Timestamp <= c.ttl.Milliseconds()
}

// insertLocked adds an entry, batch-evicting the oldest slice of L1 when the
// cap is reached. Evicting a batch amortizes the cost over many inserts.
func (c *Cache[T]) insertLocked(key string, e entry[T]) {
	if _, exists := c.l1[key]; !exists && len(c.l1) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.l1[key] = e
}

func (c *Cache[T]) evictOldestLocked() {
	batch := c.maxSize / c.divisor
	if batch < 1 {
		batch = 1
	}
	type aged struct {
		key string
		ts  int64
	}
	all := make([]aged, 0, len(c.l1))
	for k, e := range c.l1 {
		all = append(all, aged{k, e.Timestamp})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ts < all[j].ts })
	if batch > len(all) {
		batch = len(all)
	}
	for _, a := range all[:batch] {
		delete(c.l1, a.key)
	}
	c.logger.Debug().Int("evicted", batch).Int("size", len(c.l1)).Msg("evicted oldest cache entries")
}

func (c *Cache[T]) kvKey(key string) string {
	return "cache:" + c.name + ":" + key
}

func normalizeKey(key string) string {
	return strings.ToLower(key)
}
