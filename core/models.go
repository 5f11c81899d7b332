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


package core

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// IDField is the name of the identity field every committed document carries.
	IDField = "id"

	// InOperator is the condition operator for set membership.
	InOperator = "$in"

	// internalPrefix marks fields owned by a storage driver (e.g. MongoDB "_id").
	internalPrefix = "_"
)

// Document is a record identified by its string "id" field plus arbitrary
// entity-specific fields.
type Document map[string]any

// ID returns the document id, or "" when absent or not a string.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Condition is a query filter. Each field maps to a scalar (equality),
// a {"$in": [...]} operand (set membership) or an array (exact match,
// order-independent).
type Condition map[string]any

// ByID returns the condition that selects a single document by id.
func ByID(id string) Condition {
	return Condition{IDField: id}
}

// IDOnly reports whether the condition is exactly {id: <string>}.
func (c Condition) IDOnly() (string, bool) {
	if len(c) != 1 {
		return "", false
	}
	id, ok := c[IDField].(string)
	return id, ok
}

// Patch is a set of field replacements applied as a shallow set, never merged.
type Patch map[string]any

// ID returns the id carried by the patch, or "" when it carries none.
func (p Patch) ID() string {
	id, _ := p[IDField].(string)
	return id
}

// Projection maps field names to an inclusion flag. Empty means all fields.
type Projection map[string]bool

// Direction is a sort direction.
type Direction int

const (
	// Ascending sorts smallest first.
	Ascending Direction = 1
	// Descending sorts largest first.
	Descending Direction = -1
)

// SortField is one key of a multi-key sort.
type SortField struct {
	Field     string
	Direction Direction
}

// Sort is an ordered list of sort keys; earlier keys take precedence.
type Sort []SortField

// Asc returns an ascending sort key.
func Asc(field string) SortField {
	return SortField{Field: field, Direction: Ascending}
}

// Desc returns a descending sort key.
func Desc(field string) SortField {
	return SortField{Field: field, Direction: Descending}
}

// NewID returns a fresh unique document id.
func NewID() string {
	return uuid.NewString()
}

// IsInternalField reports whether a field name is reserved for storage drivers.
func IsInternalField(name string) bool {
	return strings.HasPrefix(name, internalPrefix)
}

// StripInternal removes storage-only fields from doc in place and returns it.
func StripInternal(doc Document) Document {
	for k := range doc {
		if IsInternalField(k) {
			delete(doc, k)
		}
	}
	return doc
}

// Clone returns a deep copy of doc. Nested maps and slices are copied;
// other values are shared.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies maps and slices nested in v.
func CloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return Clone(t)
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = CloneValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = CloneValue(inner)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
