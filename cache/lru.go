// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package cache provides the bounded read-through document cache used by the
// durable backend.
//
// Recency is tracked with a logical clock rather than wall time, so every
// entry carries a distinct access stamp and the least recently used entry is
// always unique. The configured maximum is expected to be small; eviction
// scans every entry.
package cache

import (
	"log/slog"
	"sync"

	"github.com/poiesic/gradebook/core"
)

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type entry struct {
	doc        core.Document
	lastAccess uint64
}

// LRU is an id to document cache that evicts the least recently used entry
// once it holds more than its maximum. It is safe for concurrent use.
type LRU struct {
	mu      sync.Mutex
	max     int
	clock   uint64
	entries map[string]*entry
	stats   Stats
	logger  *slog.Logger
}

// Option configures an LRU.
type Option func(*LRU)

// WithLogger sets the logger used for eviction debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *LRU) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a cache holding at most max entries. Values below 1 are
// clamped to 1.
func New(max int, opts ...Option) *LRU {
	if max < 1 {
		max = 1
	}
	c := &LRU{
		max:     max,
		entries: make(map[string]*entry),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tick must be called with the lock held.
func (c *LRU) tick() uint64 {
	c.clock++
	return c.clock
}

// Get returns a copy of the cached document for id and refreshes its
// recency. A hit never evicts.
func (c *LRU) Get(id string) (core.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	e.lastAccess = c.tick()
	return core.Clone(e.doc), true
}

// Contains reports whether id is cached without touching its recency.
func (c *LRU) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// Put stores a copy of doc under id, overwriting any previous entry, then
// evicts down to the maximum. Empty ids and nil documents are ignored.
func (c *LRU) Put(id string, doc core.Document) {
	if id == "" || doc == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = &entry{doc: core.Clone(doc), lastAccess: c.tick()}
	c.evict()
}

// Invalidate removes id from the cache. Missing ids are ignored.
func (c *LRU) Invalidate(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.entries, id)
	}
}

// Evict removes least recently used entries while the cache holds more than
// its maximum.
func (c *LRU) Evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evict()
}

// evict must be called with the lock held.
func (c *LRU) evict() {
	for len(c.entries) > c.max {
		var (
			victim string
			oldest uint64
			found  bool
		)
		for id, e := range c.entries {
			if !found || e.lastAccess < oldest {
				victim, oldest, found = id, e.lastAccess, true
			}
		}
		delete(c.entries, victim)
		c.stats.Evictions++
		c.logger.Debug("cache evicted entry", "id", victim, "size", len(c.entries), "max", c.max)
	}
}

// Clear drops every entry. Counters are kept.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Len returns the number of resident entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Max returns the configured maximum.
func (c *LRU) Max() int {
	return c.max
}

// Stats returns a snapshot of the hit, miss and eviction counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
