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


package storage

import (
	"context"

	"github.com/poiesic/gradebook/core"
)

// DAO is the data access contract shared by every backend.
//
// A durable DAO without a bound collection returns neutral values ("" ids,
// nil documents, zero counts, false, empty slices, -1 from Count) and a nil
// error. Callers that need to tell "empty" from "offline" check the
// facade's IsConnected.
type DAO interface {
	// Name returns the collection name the DAO serves.
	Name() string

	// Insert stores doc and returns its id. An id is assigned when doc
	// carries none. Returns ErrDuplicateKey if the id already exists.
	Insert(ctx context.Context, doc core.Document) (string, error)

	// Find returns the documents matching cond.
	Find(ctx context.Context, cond core.Condition, opts ...FindOption) ([]core.Document, error)

	// FindOne returns the first document matching cond with proj applied,
	// or nil when nothing matches.
	FindOne(ctx context.Context, cond core.Condition, proj core.Projection) (core.Document, error)

	// FindByID returns the document with the given id, or nil when absent.
	FindByID(ctx context.Context, id string) (core.Document, error)

	// Count returns the number of documents matching cond.
	Count(ctx context.Context, cond core.Condition) (int64, error)

	// Update sets the patch fields on every document matching cond and
	// returns the number of matched documents.
	Update(ctx context.Context, cond core.Condition, patch core.Patch) (int64, error)

	// UpdateMany behaves like Update. When nothing matches and
	// insertIfMissing is set, patch is inserted as a new document and 1 is
	// returned.
	UpdateMany(ctx context.Context, cond core.Condition, patch core.Patch, insertIfMissing bool) (int64, error)

	// Delete removes every document matching cond and returns how many.
	Delete(ctx context.Context, cond core.Condition) (int64, error)

	// DeleteByID removes the document with the given id and reports whether
	// it existed.
	DeleteByID(ctx context.Context, id string) (bool, error)

	// DeleteAll removes every document.
	DeleteAll(ctx context.Context) error

	// Clear removes every document and drops any cached state.
	Clear(ctx context.Context) error
}

// Binder is implemented by DAOs that acquire their collection after
// construction.
type Binder interface {
	Bind(coll Collection)
	Unbind()
	IsBound() bool
}

// FindOptions holds the optional arguments of DAO.Find.
type FindOptions struct {
	Projection core.Projection
	Sort       core.Sort
	Offset     int
	Limit      int
}

// FindOption configures a Find call.
type FindOption func(*FindOptions)

// WithProjection restricts the returned fields.
func WithProjection(proj core.Projection) FindOption {
	return func(o *FindOptions) {
		o.Projection = proj
	}
}

// WithSort orders the results. Without it the entity default applies.
func WithSort(fields ...core.SortField) FindOption {
	return func(o *FindOptions) {
		o.Sort = fields
	}
}

// WithOffset skips the first n matches.
func WithOffset(n int) FindOption {
	return func(o *FindOptions) {
		o.Offset = n
	}
}

// WithLimit caps the number of results. Zero or less means no limit.
func WithLimit(n int) FindOption {
	return func(o *FindOptions) {
		o.Limit = n
	}
}

// NewFindOptions applies opts to a zero FindOptions. Negative offsets are
// treated as zero.
func NewFindOptions(opts ...FindOption) FindOptions {
	var o FindOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Page carries sort and pagination down to a store driver.
type Page struct {
	Sort   core.Sort
	Offset int
	Limit  int
}

// Collection is a named document collection inside a Store.
//
// Drivers return documents with storage-internal fields already removed.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// InsertOne writes a document that already carries an id.
	// Returns ErrDuplicateKey if the id exists.
	InsertOne(ctx context.Context, doc core.Document) error

	// FindOne returns the first matching document, or nil, nil when absent.
	FindOne(ctx context.Context, cond core.Condition) (core.Document, error)

	// Find returns the matching documents sorted and paginated by page.
	Find(ctx context.Context, cond core.Condition, page Page) ([]core.Document, error)

	// Count returns the number of matching documents.
	Count(ctx context.Context, cond core.Condition) (int64, error)

	// IDs returns the ids of the matching documents.
	IDs(ctx context.Context, cond core.Condition) ([]string, error)

	// UpdateMany sets the patch fields on every matching document and
	// returns the number matched.
	UpdateMany(ctx context.Context, cond core.Condition, patch core.Patch) (int64, error)

	// DeleteMany removes every matching document and returns how many.
	DeleteMany(ctx context.Context, cond core.Condition) (int64, error)

	// Drop removes every document from the collection.
	Drop(ctx context.Context) error
}

// Store is an open connection to a durable document store.
type Store interface {
	// Collection returns a handle on the named collection.
	Collection(name string) Collection

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store. Further calls fail with ErrStorageClosed.
	Close(ctx context.Context) error
}
