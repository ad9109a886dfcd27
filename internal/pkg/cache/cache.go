package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/clock"
	"golang.org/x/sync/singleflight"
)

// TTL tiers for cached reads.
const (
	TTLLiveRoster     = 15 * time.Second
	TTLUserToday      = 30 * time.Second
	TTLAttendanceList = 60 * time.Second
	TTLDepartmentStat = 120 * time.Second
	TTLActiveOffices  = 300 * time.Second
	TTLDepartmentTime = 600 * time.Second
)

// Cache is a TTL get-or-compute cache with explicit key/prefix invalidation.
// Expiry is checked on read; there is no background sweep.
type Cache struct {
	store Store
	clock clock.Clock
	group singleflight.Group

	// inflight holds the keys with a compute running. An invalidation that
	// matches one marks it stale so the compute does not store its result.
	mu       sync.Mutex
	inflight map[string]bool
}

func New(store Store, clk clock.Clock) *Cache {
	return &Cache{
		store:    store,
		clock:    clk,
		inflight: make(map[string]bool),
	}
}

// Get returns the live value stored under key, if any.
func (c *Cache) Get(key string) (interface{}, bool) {
	entry, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	if entry.Expired(c.clock.Now()) {
		c.store.Delete(key)
		return nil, false
	}
	return entry.Value, true
}

// Set stores value under key until now+ttl.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.store.Set(Entry{
		Key:       key,
		Value:     value,
		ExpiresAt: c.clock.Now().Add(ttl),
	})
}

// Invalidate removes the given keys.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if _, ok := c.inflight[key]; ok {
			c.inflight[key] = true
		}
		c.store.Delete(key)
	}
}

// InvalidatePrefix removes every key that starts with one of the prefixes.
func (c *Cache) InvalidatePrefix(prefixes ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.inflight {
		for _, prefix := range prefixes {
			if strings.HasPrefix(key, prefix) {
				c.inflight[key] = true
			}
		}
	}

	removed := 0
	for _, prefix := range prefixes {
		removed += c.store.DeletePrefix(prefix)
	}
	return removed
}

func (c *Cache) begin(key string) {
	c.mu.Lock()
	c.inflight[key] = false
	c.mu.Unlock()
}

// finish ends the compute for key and stores value unless the key was
// invalidated while it ran.
func (c *Cache) finish(key string, value interface{}, ttl time.Duration, store bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stale := c.inflight[key]
	delete(c.inflight, key)
	if store && !stale {
		c.Set(key, value, ttl)
	}
}

// GetOrCompute returns the cached value for key, or runs compute, stores the
// result for ttl and returns it. Errors are never cached. Concurrent misses on
// the same key share a single compute call, which is not cancelled when the
// caller that started it goes away.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
		slog.Warn("Cache entry has unexpected type, recomputing", "key", key)
	}

	computeCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (v interface{}, err error) {
		c.begin(key)
		// DoChan re-panics on its own goroutine, out of reach of any recoverer
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("cache: compute for %q panicked: %v", key, r)
			}
			c.finish(key, v, ttl, err == nil)
		}()

		result, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}
		return result, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}

	typed, ok := res.Val.(T)
	if !ok {
		return zero, fmt.Errorf("cache: value for %q has type %T", key, res.Val)
	}
	return typed, nil
}
