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


// Package memory implements the storage.DAO contract over a process-resident
// slice of documents. It needs no connection and is the drop-in substitute
// for the durable backend in tests and offline mode.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/query"
	"github.com/poiesic/gradebook/storage"
)

// DAO holds a collection in memory, in insertion order.
type DAO struct {
	mu          sync.RWMutex
	name        string
	docs        []core.Document
	defaultSort core.Sort
	sortedFind  bool
	logger      *slog.Logger
}

var (
	_ storage.DAO = (*DAO)(nil)
)

// Option configures a DAO.
type Option func(*DAO)

// WithDefaultSort sets the sort used by Find when none is given. It only
// takes effect together with WithSortedFind.
func WithDefaultSort(fields ...core.SortField) Option {
	return func(d *DAO) {
		d.defaultSort = fields
	}
}

// WithSortedFind makes Find sort its results the way the durable backend
// does. By default Find returns matches in insertion order and ignores any
// sort.
func WithSortedFind() Option {
	return func(d *DAO) {
		d.sortedFind = true
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

// New creates an empty DAO and registers it with registry when one is given.
func New(name string, registry *storage.Registry, opts ...Option) (*DAO, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", storage.ErrConfiguration)
	}
	d := &DAO{
		name:   name,
		docs:   []core.Document{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
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

// Insert appends a copy of doc, assigning an id when it has none.
func (d *DAO) Insert(ctx context.Context, doc core.Document) (string, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.insertLocked(doc)
}

// insertLocked must be called with the write lock held.
func (d *DAO) insertLocked(doc core.Document) (string, error) {
	stored := core.Clone(doc)
	id := stored.ID()
	if id == "" {
		id = core.NewID()
		stored[core.IDField] = id
	} else if d.indexOf(id) >= 0 {
		return "", fmt.Errorf("%w: %s %q", storage.ErrDuplicateKey, d.name, id)
	}
	d.docs = append(d.docs, stored)
	return id, nil
}

// indexOf must be called with the lock held.
func (d *DAO) indexOf(id string) int {
	for i, doc := range d.docs {
		if doc.ID() == id {
			return i
		}
	}
	return -1
}

// Find returns copies of the matching documents. Unless WithSortedFind was
// given, results keep insertion order and any sort is ignored.
func (d *DAO) Find(ctx context.Context, cond core.Condition, opts ...storage.FindOption) ([]core.Document, error) {
	if err := core.ValidateCondition(cond); err != nil {
		return nil, err
	}
	o := storage.NewFindOptions(opts...)

	d.mu.RLock()
	defer d.mu.RUnlock()

	var page []core.Document
	if d.sortedFind {
		sort := o.Sort
		if len(sort) == 0 {
			sort = d.defaultSort
		}
		// FilterAndPaginate returns a fresh slice, safe to reorder.
		matched := query.FilterAndPaginate(d.docs, cond, 0, 0)
		query.SortDocuments(matched, sort)
		page = query.Paginate(matched, o.Offset, o.Limit)
	} else {
		page = query.FilterAndPaginate(d.docs, cond, o.Offset, o.Limit)
	}

	out := make([]core.Document, 0, len(page))
	for _, doc := range page {
		out = append(out, query.Project(doc, o.Projection))
	}
	return out, nil
}

// FindOne returns a copy of the first matching document with proj applied,
// or nil.
func (d *DAO) FindOne(ctx context.Context, cond core.Condition, proj core.Projection) (core.Document, error) {
	if err := core.ValidateCondition(cond); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, doc := range d.docs {
		if query.Matches(doc, cond) {
			return query.Project(doc, proj), nil
		}
	}
	return nil, nil
}

// FindByID returns a copy of the document with the given id, or nil.
func (d *DAO) FindByID(ctx context.Context, id string) (core.Document, error) {
	if id == "" {
		return nil, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i := d.indexOf(id); i >= 0 {
		return core.Clone(d.docs[i]), nil
	}
	return nil, nil
}

// Count returns the number of matching documents.
func (d *DAO) Count(ctx context.Context, cond core.Condition) (int64, error) {
	if err := core.ValidateCondition(cond); err != nil {
		return 0, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	var n int64
	for _, doc := range d.docs {
		if query.Matches(doc, cond) {
			n++
		}
	}
	return n, nil
}

// Update sets the patch fields on every matching document.
func (d *DAO) Update(ctx context.Context, cond core.Condition, patch core.Patch) (int64, error) {
	return d.UpdateMany(ctx, cond, patch, false)
}

// UpdateMany sets the patch fields on every matching document. With
// insertIfMissing and no match, patch itself is inserted.
func (d *DAO) UpdateMany(ctx context.Context, cond core.Condition, patch core.Patch, insertIfMissing bool) (int64, error) {
	if err := core.ValidateCondition(cond); err != nil {
		return 0, err
	}
	if err := core.ValidatePatch(patch); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var matched []int
	for i, doc := range d.docs {
		if query.Matches(doc, cond) {
			matched = append(matched, i)
		}
	}

	if len(matched) == 0 {
		if !insertIfMissing {
			return 0, nil
		}
		id, err := d.insertLocked(core.Document(patch))
		if err != nil {
			return 0, err
		}
		d.logger.Debug("upserted document", "collection", d.name, "id", id)
		return 1, nil
	}

	if newID := patch.ID(); newID != "" {
		if err := d.checkRelabel(newID, matched); err != nil {
			return 0, err
		}
	}

	for _, i := range matched {
		for field, value := range patch {
			d.docs[i][field] = core.CloneValue(value)
		}
	}
	return int64(len(matched)), nil
}

// checkRelabel rejects a patch that would give several documents the same
// id, or reuse the id of a document outside the match set.
func (d *DAO) checkRelabel(newID string, matched []int) error {
	if len(matched) > 1 {
		return fmt.Errorf("%w: %s: cannot set id %q on %d documents", storage.ErrDuplicateKey, d.name, newID, len(matched))
	}
	if i := d.indexOf(newID); i >= 0 && i != matched[0] {
		return fmt.Errorf("%w: %s %q", storage.ErrDuplicateKey, d.name, newID)
	}
	return nil
}

// Delete removes every matching document.
func (d *DAO) Delete(ctx context.Context, cond core.Condition) (int64, error) {
	if err := core.ValidateCondition(cond); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	kept := make([]core.Document, 0, len(d.docs))
	for _, doc := range d.docs {
		if !query.Matches(doc, cond) {
			kept = append(kept, doc)
		}
	}
	removed := int64(len(d.docs) - len(kept))
	d.docs = kept
	return removed, nil
}

// DeleteByID removes the document with the given id.
func (d *DAO) DeleteByID(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexOf(id)
	if i < 0 {
		return false, nil
	}
	d.docs = append(d.docs[:i], d.docs[i+1:]...)
	return true, nil
}

// DeleteAll removes every document.
func (d *DAO) DeleteAll(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs = []core.Document{}
	return nil
}

// Clear removes every document.
func (d *DAO) Clear(ctx context.Context) error {
	return d.DeleteAll(ctx)
}
