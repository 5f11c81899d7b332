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
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/gradebook/core"
)

// Relationship defines a parent-child link between two registered DAOs.
type Relationship struct {
	// Parent is the parent collection name (e.g., "courses").
	Parent string

	// Child is the child collection name (e.g., "enrollments").
	Child string

	// ForeignKey is the child field holding the parent id (e.g., "courseId").
	ForeignKey string
}

// Registry maps collection names to DAOs and records the relationships
// between them. It is constructed explicitly and passed to DAO constructors.
type Registry struct {
	mu       sync.RWMutex
	daos     map[string]DAO
	order    []string
	byParent map[string][]Relationship
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		daos:     make(map[string]DAO),
		byParent: make(map[string][]Relationship),
	}
}

// Register adds dao under its name. Registering an empty or already used
// name returns ErrConfiguration.
func (r *Registry) Register(dao DAO) error {
	if dao == nil {
		return fmt.Errorf("%w: nil DAO", ErrConfiguration)
	}
	name := dao.Name()
	if name == "" {
		return fmt.Errorf("%w: DAO name is empty", ErrConfiguration)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.daos[name]; exists {
		return fmt.Errorf("%w: DAO %q already registered", ErrConfiguration, name)
	}
	r.daos[name] = dao
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the DAO registered under name.
func (r *Registry) Lookup(name string) (DAO, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dao, ok := r.daos[name]
	return dao, ok
}

// MustLookup returns the DAO registered under name and panics with
// ErrConfiguration when there is none.
func (r *Registry) MustLookup(name string) DAO {
	dao, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Errorf("%w: no DAO registered as %q", ErrConfiguration, name))
	}
	return dao
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Clone(r.order)
	slices.Sort(names)
	return names
}

// DAOs returns the registered DAOs in registration order.
func (r *Registry) DAOs() []DAO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]DAO, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.daos[name])
	}
	return out
}

// Relate records a parent-child relationship. Both sides must already be
// registered.
func (r *Registry) Relate(rel Relationship) error {
	if rel.ForeignKey == "" {
		return fmt.Errorf("%w: relationship %s -> %s has no foreign key", ErrConfiguration, rel.Parent, rel.Child)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range []string{rel.Parent, rel.Child} {
		if _, ok := r.daos[name]; !ok {
			return fmt.Errorf("%w: relationship references unregistered DAO %q", ErrConfiguration, name)
		}
	}
	r.byParent[rel.Parent] = append(r.byParent[rel.Parent], rel)
	return nil
}

// ChildrenOf returns the relationships whose parent is the named collection.
func (r *Registry) ChildrenOf(parent string) []Relationship {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.byParent[parent])
}

// FindChildren returns, per child collection, the documents referencing
// parentID through each relationship of parent. Child DAOs that return
// nothing (including unbound durable DAOs) yield empty slices.
func (r *Registry) FindChildren(ctx context.Context, parent, parentID string) (map[string][]core.Document, error) {
	if _, ok := r.Lookup(parent); !ok {
		return nil, fmt.Errorf("%w: parent %q", ErrNotFound, parent)
	}

	children := make(map[string][]core.Document)
	for _, rel := range r.ChildrenOf(parent) {
		dao := r.MustLookup(rel.Child)
		docs, err := dao.Find(ctx, core.Condition{rel.ForeignKey: parentID})
		if err != nil {
			return nil, fmt.Errorf("find %s children of %s %s: %w", rel.Child, parent, parentID, err)
		}
		children[rel.Child] = append(children[rel.Child], docs...)
	}
	return children, nil
}
