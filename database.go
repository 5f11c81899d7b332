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


package gradebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/gradebook/storage"
	"github.com/poiesic/gradebook/storage/badger"
	"github.com/poiesic/gradebook/storage/durable"
	"github.com/poiesic/gradebook/storage/memory"
	"github.com/poiesic/gradebook/storage/mongodb"
)

// Database owns the DAOs for every managed collection and, for the durable
// backends, the store they are bound to.
type Database struct {
	cfg      Config
	registry *storage.Registry
	logger   *slog.Logger

	mu        sync.RWMutex
	store     storage.Store
	ownsStore bool
	preset    storage.Store
	connected bool
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	logger *slog.Logger
	store  storage.Store
}

// WithLogger sets the logger handed to the database and its DAOs.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStore makes Connect bind the DAOs to store instead of opening one
// from the configuration. The caller keeps ownership of store.
func WithStore(store storage.Store) DatabaseOption {
	return func(o *databaseOptions) {
		o.store = store
	}
}

// NewDatabase validates cfg and builds one DAO per managed collection.
// A nil cfg selects DefaultConfig. Durable DAOs stay unbound until Connect.
func NewDatabase(cfg *Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &databaseOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	db := &Database{
		cfg:      *cfg,
		registry: storage.NewRegistry(),
		logger:   options.logger.With("component", "database"),
		preset:   options.store,
	}

	for _, entity := range Entities() {
		if err := db.newDAO(entity); err != nil {
			return nil, err
		}
	}
	for _, rel := range Relationships() {
		if err := db.registry.Relate(rel); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func (db *Database) newDAO(entity Entity) error {
	if db.cfg.Backend == BackendMemory {
		opts := []memory.Option{
			memory.WithLogger(db.logger),
			memory.WithDefaultSort(entity.DefaultSort...),
		}
		if db.cfg.SortedMemoryFind {
			opts = append(opts, memory.WithSortedFind())
		}
		_, err := memory.New(entity.Name, db.registry, opts...)
		return err
	}
	_, err := durable.New(entity.Name, db.registry,
		durable.WithLogger(db.logger),
		durable.WithCacheSize(db.cfg.CacheSize),
		durable.WithDefaultSort(entity.DefaultSort...),
	)
	return err
}

// Config returns a copy of the validated configuration.
func (db *Database) Config() Config {
	return db.cfg
}

// Connect opens the configured store and binds every durable DAO to its
// collection. It is a no-op for the memory backend and when already connected.
func (db *Database) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.connected {
		return nil
	}
	if db.cfg.Backend == BackendMemory {
		db.connected = true
		return nil
	}

	store, owned := db.preset, false
	if store == nil {
		var err error
		store, err = db.openStore(ctx)
		if err != nil {
			return err
		}
		owned = true
	}

	for _, dao := range db.registry.DAOs() {
		if binder, ok := dao.(storage.Binder); ok {
			binder.Bind(store.Collection(dao.Name()))
		}
	}

	db.store = store
	db.ownsStore = owned
	db.connected = true
	db.logger.Info("connected", "backend", db.cfg.Backend)
	return nil
}

func (db *Database) openStore(ctx context.Context) (storage.Store, error) {
	switch db.cfg.Backend {
	case BackendBadger:
		store, err := badger.OpenStore(db.cfg.Path, db.cfg.InMemory, badger.WithLogger(db.logger))
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendMongo:
		store, err := mongodb.Connect(ctx, db.cfg.MongoURI, db.cfg.MongoDatabase,
			mongodb.WithLogger(db.logger),
			mongodb.WithConnectTimeout(db.cfg.ConnectTimeout),
		)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("%w: no store for backend %q", storage.ErrConfiguration, db.cfg.Backend)
}

// IsConnected reports whether the DAOs can reach their data. The memory
// backend is always connected.
func (db *Database) IsConnected() bool {
	if db.cfg.Backend == BackendMemory {
		return true
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.connected
}

// Close unbinds the durable DAOs and closes the store opened by Connect.
// A store supplied through WithStore is left open.
func (db *Database) Close(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.connected {
		return nil
	}
	for _, dao := range db.registry.DAOs() {
		if binder, ok := dao.(storage.Binder); ok {
			binder.Unbind()
		}
	}

	var err error
	if db.store != nil && db.ownsStore {
		if cerr := db.store.Close(ctx); cerr != nil && !errors.Is(cerr, storage.ErrStorageClosed) {
			db.logger.Error("error closing store", "err", cerr)
			err = cerr
		}
	}
	db.store = nil
	db.ownsStore = false
	db.connected = false
	return err
}

// Ping checks the store behind the durable DAOs.
func (db *Database) Ping(ctx context.Context) error {
	db.mu.RLock()
	store := db.store
	db.mu.RUnlock()
	if store == nil {
		if db.cfg.Backend == BackendMemory {
			return nil
		}
		return storage.ErrStorageClosed
	}
	return store.Ping(ctx)
}

// Registry returns the registry holding every DAO.
func (db *Database) Registry() *storage.Registry {
	return db.registry
}

// DAO looks up a collection's DAO by name.
func (db *Database) DAO(name string) (storage.DAO, bool) {
	return db.registry.Lookup(name)
}

// Users returns the users DAO.
func (db *Database) Users() storage.DAO {
	return db.registry.MustLookup(UsersCollection)
}

// Courses returns the courses DAO.
func (db *Database) Courses() storage.DAO {
	return db.registry.MustLookup(CoursesCollection)
}

// Enrollments returns the enrollments DAO.
func (db *Database) Enrollments() storage.DAO {
	return db.registry.MustLookup(EnrollmentsCollection)
}

// Grades returns the grades DAO.
func (db *Database) Grades() storage.DAO {
	return db.registry.MustLookup(GradesCollection)
}
