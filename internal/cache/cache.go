// Package cache is a keyed cache of server resources with
// stale-while-revalidate semantics, deduplication of concurrent identical
// reads, and prefix-based invalidation driven by mutations.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Resource kinds cached by the client.
const (
	KindItems    = "items"    // paginated/filtered listings
	KindItem     = "item"     // single item by id
	KindMyItems  = "my-items" // the signed-in user's own items
	KindAllItems = "all-items"
	KindComments = "comments" // comments for one item
	KindProfile  = "profile"
)

// Key identifies one cached query. Username partitions per-identity results
// so one user's cached views never leak into another's session. Filter holds
// the canonical listing parameter string for paginated queries.
type Key struct {
	Kind     string
	ID       int64
	Username string
	Filter   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%s/%s", k.Kind, k.ID, k.Username, k.Filter)
}

// Prefix selects a set of keys for invalidation. A zero ID matches every
// entry of the kind regardless of id, username, or filter.
type Prefix struct {
	Kind string
	ID   int64
}

// Matches reports whether the prefix covers the given key.
func (p Prefix) Matches(k Key) bool {
	if p.Kind != k.Kind {
		return false
	}
	return p.ID == 0 || p.ID == k.ID
}

// FetchFunc loads the value for a key from the backend.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	data      any
	fetchedAt time.Time
	// invalid marks entries hit by an explicit invalidation; they must be
	// refetched on next access rather than served stale.
	invalid bool
	gen     uint64
}

// Cache serves reads per the stale-while-revalidate policy and applies
// mutation-driven invalidation.
type Cache struct {
	mu         sync.Mutex
	entries    map[Key]*entry
	gens       map[Key]uint64
	staleAfter time.Duration
	group      singleflight.Group
	logger     *zap.Logger
}

// New constructs a Cache whose entries stay fresh for staleAfter.
func New(staleAfter time.Duration, logger *zap.Logger) *Cache {
	if staleAfter <= 0 {
		staleAfter = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		entries:    make(map[Key]*entry),
		gens:       make(map[Key]uint64),
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// Get returns the value for key. Fresh entries are served directly. Entries
// past their TTL are served immediately while a background refresh runs.
// Missing or invalidated entries block on a fetch; concurrent callers for
// the same key share a single in-flight fetch.
func (c *Cache) Get(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	now := time.Now()

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !e.invalid {
		if now.Sub(e.fetchedAt) < c.staleAfter {
			data := e.data
			c.mu.Unlock()
			return data, nil
		}
		// TTL-stale: serve what we have, refresh in the background.
		data := e.data
		c.mu.Unlock()
		go func() {
			if _, err := c.refresh(context.WithoutCancel(ctx), key, fetch); err != nil {
				c.logger.Debug("background refresh failed",
					zap.String("key", key.String()), zap.Error(err))
			}
		}()
		return data, nil
	}
	c.mu.Unlock()

	return c.refresh(ctx, key, fetch)
}

// Peek returns the latest known value for key without fetching. Views that
// hold a snapshot of an entity should prefer this live value when present.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.invalid {
		return nil, false
	}
	return e.data, true
}

// refresh fetches the key's value, deduplicated through singleflight, and
// stores it unless an invalidation arrived while the fetch was in flight.
func (c *Cache) refresh(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		c.mu.Lock()
		gen := c.gens[key]
		c.gens[key] = gen // materialize so Invalidate can fence this fetch
		c.mu.Unlock()

		data, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gens[key] == gen {
			c.entries[key] = &entry{data: data, fetchedAt: time.Now(), gen: gen}
		}
		// On a generation mismatch the result is returned to the caller but
		// not stored as fresh: an invalidation meant to clear this key must
		// not be overwritten by data fetched before it.
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Invalidate marks every entry matched by any of the prefixes for refetch
// and bumps generations so in-flight fetches cannot resurrect old data.
func (c *Cache) Invalidate(prefixes ...Prefix) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		for _, p := range prefixes {
			if p.Matches(key) {
				e.invalid = true
				c.gens[key]++
				break
			}
		}
	}
	// Bump generations for keys without a stored entry too; a fetch may be
	// in flight for them.
	for key := range c.gens {
		if _, stored := c.entries[key]; stored {
			continue
		}
		for _, p := range prefixes {
			if p.Matches(key) {
				c.gens[key]++
				break
			}
		}
	}
}

// Clear drops every cached entry. Used when the session identity changes.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		c.gens[key]++
	}
	c.entries = make(map[Key]*entry)
}
