/*
Copyright © 2024 the Plume authors.
This file is part of Plume.

Plume is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Plume is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Plume.  If not, see <http://www.gnu.org/licenses/>.
*/

package grid

import (
	"context"
	"fmt"
	"sync"

	"github.com/ctessum/requestcache"
)

// LRUDayCache holds at most Size day bundles, deduplicating concurrent
// loads for the same day and evicting least-recently-activated days on
// overflow. The day most recently activated (Pin) is never evicted
// while pinned.
//
// requestcache.Deduplicate coalesces in-flight loads for the same key
// the way sr.Reader.sourceCache coalesces concurrent SR-matrix record
// requests; requestcache.Memory bounds the resident set.
type LRUDayCache struct {
	cache *requestcache.Cache

	mu       sync.Mutex
	pinned   string
	order    []string // most-recently-activated last
	resident map[string]bool
	size     int
}

// LoadFunc loads the bundle for the given key (the fields use the
// archive day offset in decimal, such as "0"), returning an error that propagates as
// DataUnavailable on I/O failure.
type LoadFunc func(ctx context.Context, key string) (interface{}, error)

// NewLRUDayCache creates a cache holding at most size resident
// bundles, using load to materialize a bundle on a miss.
func NewLRUDayCache(size int, load LoadFunc) *LRUDayCache {
	c := &LRUDayCache{
		resident: make(map[string]bool),
		size:     size,
	}
	processor := func(ctx context.Context, req interface{}) (interface{}, error) {
		key := req.(string)
		return load(ctx, key)
	}
	c.cache = requestcache.NewCache(processor, 1, requestcache.Deduplicate(), requestcache.Memory(size))
	return c
}

// Get returns the bundle for key, loading it if necessary. The
// returned bundle is pinned as the active day until the next Get
// call, guaranteeing it survives for the duration of the step that
// requested it (see ownership rules, spec.md section 3).
func (c *LRUDayCache) Get(ctx context.Context, key string) (interface{}, error) {
	req := c.cache.NewRequest(ctx, key, key)
	result, err := req.Result()
	if err != nil {
		// No partial cache entry remains on failure; nothing to undo
		// locally since the bundle was never marked resident below.
		return nil, fmt.Errorf("grid: loading day %s: %w", key, err)
	}
	c.pin(key)
	return result, nil
}

// pin marks key as the most-recently-activated day. It does not
// evict anything itself -- eviction is handled by the underlying
// requestcache.Memory LRU, which this bookkeeping mirrors only for
// Resident()/PinnedDay() introspection used by tests and the step
// loop's "day required by the current step is resident" check.
func (c *LRUDayCache) pin(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = key
	if !c.resident[key] {
		c.resident[key] = true
		c.order = append(c.order, key)
		if len(c.order) > c.size {
			// Evict the least-recently-activated day that isn't pinned.
			for i, k := range c.order {
				if k != c.pinned {
					delete(c.resident, k)
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
		}
	}
}

// PinnedDay returns the key of the currently-active (pinned) day.
func (c *LRUDayCache) PinnedDay() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pinned
}

// Resident reports whether key is currently held in the cache's
// bookkeeping of recently-activated days.
func (c *LRUDayCache) Resident(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resident[key]
}

// Requests returns cache-hit/miss counters from the underlying
// requestcache.Cache: Requests()[0] is the number of requests entering
// the deduplication stage, Requests()[len-1] is the number that
// actually reached the loader.
func (c *LRUDayCache) Requests() []int {
	return c.cache.Requests()
}
