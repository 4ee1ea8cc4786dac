package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// DefaultCacheTTL matches how long ENS records are trusted before a new lookup.
const DefaultCacheTTL = 24 * time.Hour

// RemoteStore is an optional second cache tier shared between instances.
type RemoteStore interface {
	Get(ctx context.Context, key string) (value string, found bool, hit bool, err error)
	Set(ctx context.Context, key, value string, found bool, ttl time.Duration) error
}

type cacheEntry struct {
	value    string
	found    bool
	storedAt time.Time
}

// Cache memoizes resolution results, including negative ones, for a fixed TTL.
type Cache struct {
	ttl     time.Duration
	clock   clockwork.Clock
	entries *xsync.Map[string, cacheEntry]
	remote  RemoteStore
	log     *zap.Logger
}

type CacheOption func(*Cache)

// WithRemote adds a shared tier consulted on local misses.
func WithRemote(r RemoteStore) CacheOption {
	return func(c *Cache) { c.remote = r }
}

// WithLogger sets the logger used for remote tier failures.
func WithLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) { c.log = l }
}

func NewCache(ttl time.Duration, clock clockwork.Clock, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := &Cache{
		ttl:     ttl,
		clock:   clock,
		entries: xsync.NewMap[string, cacheEntry](),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key. hit is false on a miss or an expired entry;
// found is false for a cached negative result.
func (c *Cache) Get(ctx context.Context, key string) (value string, found bool, hit bool) {
	key = normalizeKey(key)
	if e, ok := c.entries.Load(key); ok {
		if c.clock.Since(e.storedAt) < c.ttl {
			return e.value, e.found, true
		}
		c.entries.Delete(key)
	}
	if c.remote == nil {
		return "", false, false
	}

	value, found, hit, err := c.remote.Get(ctx, key)
	if err != nil {
		c.log.Warn("remote cache read failed", zap.String("key", key), zap.Error(err))
		return "", false, false
	}
	if hit {
		c.entries.Store(key, cacheEntry{value: value, found: found, storedAt: c.clock.Now()})
	}
	return value, found, hit
}

// Set stores a result. A negative result is stored with found=false.
func (c *Cache) Set(ctx context.Context, key, value string, found bool) {
	key = normalizeKey(key)
	c.entries.Store(key, cacheEntry{value: value, found: found, storedAt: c.clock.Now()})
	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, key, value, found, c.ttl); err != nil {
		c.log.Warn("remote cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Sweep drops expired local entries and returns how many were removed.
func (c *Cache) Sweep() int {
	removed := 0
	c.entries.Range(func(key string, e cacheEntry) bool {
		if c.clock.Since(e.storedAt) >= c.ttl {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Clear drops every local entry.
func (c *Cache) Clear() {
	c.entries.Clear()
}

// Len is the number of local entries, expired ones included until the next sweep.
func (c *Cache) Len() int {
	return c.entries.Size()
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
