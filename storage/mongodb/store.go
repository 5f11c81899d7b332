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


// Package mongodb is a storage.Store driver for a remote MongoDB deployment.
//
// Documents keep their string "id" in a field of that name, protected by a
// unique index created on first write. MongoDB's own _id is never returned.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/poiesic/gradebook/storage"
)

const (
	defaultConnectTimeout = 10 * time.Second
)

// Store is a connection to one MongoDB database.
type Store struct {
	client         *mongo.Client
	db             *mongo.Database
	logger         *slog.Logger
	connectTimeout time.Duration

	mu          sync.Mutex
	closed      bool
	collections map[string]*Collection
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConnectTimeout bounds connection establishment and server selection.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// Connect opens a client for uri, verifies it against the primary and
// selects database.
func Connect(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: mongo URI is empty", storage.ErrConfiguration)
	}
	if database == "" {
		return nil, fmt.Errorf("%w: mongo database is empty", storage.ErrConfiguration)
	}

	s := &Store{
		logger:         slog.Default(),
		connectTimeout: defaultConnectTimeout,
		collections:    make(map[string]*Collection),
	}
	for _, opt := range opts {
		opt(s)
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(s.connectTimeout).
		SetServerSelectionTimeout(s.connectTimeout)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		if derr := client.Disconnect(ctx); derr != nil {
			s.logger.Warn("disconnect after failed ping", "error", derr)
		}
		return nil, err
	}

	s.client = client
	s.db = client.Database(database)
	s.logger.Info("connected to mongodb", "database", database)
	return s, nil
}

// Collection returns the named collection. Handles are cached.
func (s *Store) Collection(name string) storage.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c
	}
	c := &Collection{name: name, coll: s.db.Collection(name), logger: s.logger}
	s.collections[name] = c
	return c
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.isClosed() {
		return storage.ErrStorageClosed
	}
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	s.closed = true
	return s.client.Disconnect(ctx)
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
