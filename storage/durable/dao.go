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


// Package durable implements the storage.DAO contract over a store
// Collection, fronted by a bounded LRU read-through cache.
//
// A DAO is constructed unbound and acquires its collection through Bind,
// called once by the database facade after the store connects. Until then
// every operation returns a neutral value and a nil error; Count returns -1
// so callers can tell "unavailable" from "empty".
//
// The cache is only written after a store operation succeeds. Writes
// invalidate the affected ids; reads repopulate them. A read overlapping an
// invalidating write may put back a value that is about to go stale.
package durable

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/gradebook/cache"
	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/query"
	"github.com/poiesic/gradebook/storage"
)

// DefaultCacheSize is the cache bound used when none is configured.
const DefaultCacheSize = 16

// DAO is a durable-backend DAO.
type DAO struct {
	name        string
	cacheSize   int
	cache       *cache.LRU
	defaultSort core.Sort
	logger      *slog.Logger

	mu   sync.RWMutex
	coll storage.Collection
}

var (
	_ storage.DAO    = (*DAO)(nil)
	_ storage.Binder = (*DAO)(nil)
)

// Option configures a DAO.
type Option func(*DAO)

// WithCacheSize bounds the cache to n entries. Values below 1 are clamped
// to 1.
func WithCacheSize(n int) Option {
	return func(d *DAO) {
		d.cacheSize = n
	}
}

// WithCache uses an existing cache.
func WithCache(c *cache.LRU) Option {
	return func(d *DAO) {
		if c != nil {
			d.cache = c
		}
	}
}

// WithDefaultSort sets the sort Find applies when the caller gives none.
func WithDefaultSort(fields ...core.SortField) Option {
	return func(d *DAO) {
		d.defaultSort = fields
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DAO) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates an unbound DAO and registers it with registry when one is
// given.
func New(name string, registry *storage.Registry, opts ...Option) (*DAO, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", storage.ErrConfiguration)
	}
	d := &DAO{
		name:      name,
		cacheSize: DefaultCacheSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.cache == nil {
		d.cache = cache.New(d.cacheSize, cache.WithLogger(d.logger))
	}
	if registry != nil {
		if err := registry.Register(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Name returns the collection name.
func (d *DAO) Name() string {
	return d.name
}

// Bind attaches the store collection. Binding again replaces the previous
// collection and empties the cache.
func (d *DAO) Bind(coll storage.Collection) {
	d.mu.Lock()
	d.coll = coll
	d.mu.Unlock()
	d.cache.Clear()
	d.logger.Debug("bound collection", "collection", d.name)
}

// Unbind detaches the collection and empties the cache.
func (d *DAO) Unbind() {
	d.mu.Lock()
	d.coll = nil
	d.mu.Unlock()
	d.cache.Clear()
}

// IsBound reports whether a collection is attached.
func (d *DAO) IsBound() bool {
	return d.collection() != nil
}

// Cache returns the DAO's read-through cache.
func (d *DAO) Cache() *cache.LRU {
	return d.cache
}

func (d *DAO) collection() storage.Collection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.coll
}

func (d *DAO) storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", storage.ErrStore, op, d.name, err)
}

// remember caches a full document under its id.
func (d *DAO) remember(doc core.Document) {
	if id := doc.ID(); id != "" {
		d.cache.Put(id, doc)
	}
}

// Insert writes doc, assigning an id when it has none, and caches it in the
// shape a later store read would return.
func (d *DAO) Insert(ctx context.Context, doc core.Document) (string, error) {
	coll := d.collection()
	if coll == nil {
		return "", nil
	}
	if err := core.ValidateDocument(doc); err != nil {
		return "", err
	}

	stored := core.Clone(doc)
	id := stored.ID()
	if id == "" {
		id = core.NewID()
		stored[core.IDField] = id
	}
	if err := coll.InsertOne(ctx, stored); err != nil {
		return "", d.storeErr("insert", err)
	}
	if normalized, err := storage.NormalizeDocument(stored); err == nil {
		d.cache.Put(id, normalized)
	} else {
		d.logger.Warn("document not cached", "collection", d.name, "id", id, "error", err)
	}
	return id, nil
}

// FindByID serves id from the cache, falling back to the store.
func (d *DAO) FindByID(ctx context.Context, id string) (core.Document, error) {
	coll := d.collection()
	if coll == nil || id == "" {
		return nil, nil
	}
	if doc, ok := d.cache.Get(id); ok {
		return doc, nil
	}

	doc, err := coll.FindOne(ctx, core.ByID(id))
	if err != nil {
		return nil, d.storeErr("find by id", err)
	}
	if doc == nil {
		return nil, nil
	}
	doc = core.StripInternal(doc)
	d.remember(doc)
	return doc, nil
}

// FindOne returns the first matching document with proj applied. Only a
// condition that is exactly {id: x} is served from the cache.
func (d *DAO) FindOne(ctx context.Context, cond core.Condition, proj core.Projection) (core.Document, error) {
	if err := core.ValidateCondition(cond); err != nil {
		return nil, err
	}
	coll := d.collection()
	if coll == nil {
		return nil, nil
	}

	if id, ok := cond.IDOnly(); ok {
		doc, err := d.FindByID(ctx, id)
		if err != nil || doc == nil {
			return nil, err
		}
		return query.Project(doc, proj), nil
	}

	doc, err := coll.FindOne(ctx, cond)
	if err != nil {
		return nil, d.storeErr("find one", err)
	}
	if doc == nil {
		return nil, nil
	}
	doc = core.StripInternal(doc)
	d.remember(doc)
	return query.Project(doc, proj), nil
}

// Find queries the store with the requested or default sort and caches each
// full document before projecting it.
func (d *DAO) Find(ctx context.Context, cond core.Condition, opts ...storage.FindOption) ([]core.Document, error) {
	if err := core.ValidateCondition(cond); err != nil {
		return nil, err
	}
	coll := d.collection()
	if coll == nil {
		return []core.Document{}, nil
	}

	o := storage.NewFindOptions(opts...)
	sort := o.Sort
	if len(sort) == 0 {
		sort = d.defaultSort
	}
	docs, err := coll.Find(ctx, cond, storage.Page{Sort: sort, Offset: o.Offset, Limit: o.Limit})
	if err != nil {
		return nil, d.storeErr("find", err)
	}

	out := make([]core.Document, 0, len(docs))
	for _, doc := range docs {
		doc = core.StripInternal(doc)
		d.remember(doc)
		out = append(out, query.Project(doc, o.Projection))
	}
	return out, nil
}

// Count returns the number of matching documents, or -1 when unbound.
func (d *DAO) Count(ctx context.Context, cond core.Condition) (int64, error) {
	if err := core.ValidateCondition(cond); err != nil {
		return 0, err
	}
	coll := d.collection()
	if coll == nil {
		return -1, nil
	}
	n, err := coll.Count(ctx, cond)
	if err != nil {
		return 0, d.storeErr("count", err)
	}
	return n, nil
}

// Update sets the patch fields on every matching document.
func (d *DAO) Update(ctx context.Context, cond core.Condition, patch core.Patch) (int64, error) {
	return d.UpdateMany(ctx, cond, patch, false)
}

// UpdateMany sets the patch fields on every matching document and
// invalidates their cache entries, plus the id the patch carries. With
// insertIfMissing and no match, patch itself is inserted.
func (d *DAO) UpdateMany(ctx context.Context, cond core.Condition, patch core.Patch, insertIfMissing bool) (int64, error) {
	if err := core.ValidateCondition(cond); err != nil {
		return 0, err
	}
	if err := core.ValidatePatch(patch); err != nil {
		return 0, err
	}
	coll := d.collection()
	if coll == nil {
		return 0, nil
	}

	ids, err := coll.IDs(ctx, cond)
	if err != nil {
		return 0, d.storeErr("update", err)
	}
	if len(ids) == 0 {
		if !insertIfMissing {
			return 0, nil
		}
		id, err := d.Insert(ctx, core.Document(patch))
		if err != nil {
			return 0, err
		}
		d.logger.Debug("upserted document", "collection", d.name, "id", id)
		return 1, nil
	}
	if len(patch) == 0 {
		return int64(len(ids)), nil
	}

	if newID := patch.ID(); newID != "" {
		ids = append(ids, newID)
	}
	d.cache.Invalidate(ids...)
	n, err := coll.UpdateMany(ctx, cond, patch)
	// Entries repopulated while the write was in flight are dropped again.
	d.cache.Invalidate(ids...)
	if err != nil {
		return 0, d.storeErr("update", err)
	}
	return n, nil
}

// Delete removes every matching document after invalidating their cache
// entries.
func (d *DAO) Delete(ctx context.Context, cond core.Condition) (int64, error) {
	if err := core.ValidateCondition(cond); err != nil {
		return 0, err
	}
	coll := d.collection()
	if coll == nil {
		return 0, nil
	}

	ids, err := coll.IDs(ctx, cond)
	if err != nil {
		return 0, d.storeErr("delete", err)
	}
	d.cache.Invalidate(ids...)
	n, err := coll.DeleteMany(ctx, cond)
	if err != nil {
		return 0, d.storeErr("delete", err)
	}
	return n, nil
}

// DeleteByID removes the document with the given id and reports whether it
// existed.
func (d *DAO) DeleteByID(ctx context.Context, id string) (bool, error) {
	coll := d.collection()
	if coll == nil || id == "" {
		return false, nil
	}
	d.cache.Invalidate(id)
	n, err := coll.DeleteMany(ctx, core.ByID(id))
	if err != nil {
		return false, d.storeErr("delete by id", err)
	}
	return n > 0, nil
}

// DeleteAll empties the cache and the collection.
func (d *DAO) DeleteAll(ctx context.Context) error {
	d.cache.Clear()
	coll := d.collection()
	if coll == nil {
		return nil
	}
	if err := coll.Drop(ctx); err != nil {
		return d.storeErr("drop", err)
	}
	return nil
}

// Clear empties the cache and the collection.
func (d *DAO) Clear(ctx context.Context) error {
	return d.DeleteAll(ctx)
}
