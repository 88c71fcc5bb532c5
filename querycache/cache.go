package querycache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohae/deepcopy"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads a resource from the backend on a cache miss.
type FetchFunc func(ctx context.Context) (interface{}, error)

// MutateFunc performs a backend write and returns its result.
type MutateFunc func(ctx context.Context) (interface{}, error)

// Stats represents cache stats.
type Stats struct {
	// Hits is the number of reads served from a fresh entry.
	Hits uint64

	// Misses is the number of reads that required a fetch.
	Misses uint64

	// Entries is the number of cached keys.
	Entries uint64
}

// Cache is a read-through cache for backend query results with time-based
// staleness and mutation-driven invalidation.
//
// Concurrent reads of the same key share a single in-flight fetch; all
// callers observe the same outcome. Fetch errors are never cached, so the
// next read retries. Values handed out are deep copies, callers cannot
// mutate a shared entry.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	// invalidations records when each prefix was last invalidated, so a
	// fetch that was already in flight when a mutation landed stores its
	// result as stale instead of masking the invalidation.
	invalidations map[string]invalidation

	// epoch increments on Clear. In-flight results from a previous epoch
	// are dropped; per-identity data must not leak across a login/logout.
	epoch uint64

	sf singleflight.Group

	now func() time.Time

	hits   uint64
	misses uint64
}

type entry struct {
	key       Key
	value     interface{}
	fetchedAt time.Time
	stale     bool
}

type invalidation struct {
	prefix Key
	at     time.Time
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		entries:       make(map[string]*entry),
		invalidations: make(map[string]invalidation),
		now:           time.Now,
	}
}

// Read returns the cached value for key if it is present and younger than
// staleTime, and otherwise fetches it. staleTime == 0 disables reuse
// entirely: every read refetches, which is what identity-sensitive queries
// (own role, own profile) need to avoid serving a previous session's result.
//
// Concurrent reads of the same key issue exactly one fetch.
func (c *Cache) Read(ctx context.Context, key Key, staleTime time.Duration, fetch FetchFunc) (interface{}, error) {
	ks := key.String()

	c.mu.Lock()
	if e, ok := c.entries[ks]; ok && c.freshLocked(e, staleTime) {
		v := e.value
		c.mu.Unlock()
		atomic.AddUint64(&c.hits, 1)
		return deepcopy.Copy(v), nil
	}
	c.mu.Unlock()
	atomic.AddUint64(&c.misses, 1)

	v, err := c.fetchShared(ctx, key, staleTime, fetch)
	if err != nil {
		return nil, err
	}
	return deepcopy.Copy(v), nil
}

// Refresh forces a refetch of key regardless of freshness, de-duplicated
// with any concurrent read of the same key. Used by background pollers.
func (c *Cache) Refresh(ctx context.Context, key Key, fetch FetchFunc) error {
	_, err := c.fetchShared(ctx, key, -1, fetch)
	return err
}

// fetchShared funnels all fetches for a key through one in-flight call.
// staleTime < 0 skips the freshness re-check and always fetches.
func (c *Cache) fetchShared(ctx context.Context, key Key, staleTime time.Duration, fetch FetchFunc) (interface{}, error) {
	ks := key.String()
	v, err, _ := c.sf.Do(ks, func() (interface{}, error) {
		c.mu.Lock()
		if staleTime >= 0 {
			// Another caller may have completed the fetch between our
			// freshness check and joining the flight group.
			if e, ok := c.entries[ks]; ok && c.freshLocked(e, staleTime) {
				v := e.value
				c.mu.Unlock()
				return v, nil
			}
		}
		epoch := c.epoch
		started := c.now()
		c.mu.Unlock()

		v, err := fetch(ctx)
		if err != nil {
			// Never cached: the entry stays absent or stale and the next
			// read retries.
			return nil, err
		}
		c.store(key, v, started, epoch)
		return v, nil
	})
	return v, err
}

func (c *Cache) freshLocked(e *entry, staleTime time.Duration) bool {
	if e.stale || staleTime <= 0 {
		return false
	}
	return c.now().Sub(e.fetchedAt) < staleTime
}

func (c *Cache) store(key Key, v interface{}, started time.Time, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		// Cleared while the fetch was in flight. Results obtained under a
		// previous identity must not repopulate the cache.
		return
	}

	e := &entry{key: key, value: v, fetchedAt: c.now()}
	for _, inv := range c.invalidations {
		if key.HasPrefix(inv.prefix) && !inv.at.Before(started) {
			// A mutation invalidated this key after the fetch began; keep
			// the value for the caller but force the next read to refetch.
			e.stale = true
			break
		}
	}
	c.entries[key.String()] = e
}

// Mutate runs the backend write and, only on success, invalidates the given
// key prefixes before returning. A caller that reads one of those keys right
// after a successful Mutate is therefore guaranteed a fresh fetch. A failed
// mutation leaves every cache entry untouched.
func (c *Cache) Mutate(ctx context.Context, mutate MutateFunc, invalidates ...Key) (interface{}, error) {
	v, err := mutate(ctx)
	if err != nil {
		return nil, err
	}
	c.Invalidate(invalidates...)
	return v, nil
}

// Invalidate marks every entry matching one of the key prefixes as stale.
// The next read of an affected key refetches.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, k := range keys {
		for _, e := range c.entries {
			if e.key.HasPrefix(k) {
				e.stale = true
			}
		}
		c.invalidations[k.String()] = invalidation{prefix: k, at: now}
	}
}

// Clear drops every entry. Called once per authentication-state transition;
// per-user results must never leak across identity boundaries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.invalidations = make(map[string]invalidation)
	c.epoch++
}

// Stats returns hit/miss counters and the current entry count.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	n := uint64(len(c.entries))
	c.mu.Unlock()

	return Stats{
		Hits:    atomic.LoadUint64(&c.hits),
		Misses:  atomic.LoadUint64(&c.misses),
		Entries: n,
	}
}
