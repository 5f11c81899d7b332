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
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/poiesic/gradebook/storage"
)

// Backend names a storage backend.
type Backend string

const (
	// BackendMemory keeps every collection in process memory.
	BackendMemory Backend = "memory"
	// BackendBadger stores collections in an embedded BadgerDB database.
	BackendBadger Backend = "badger"
	// BackendMongo stores collections in a MongoDB database.
	BackendMongo Backend = "mongo"
)

// Config holds database configuration. Every field can be set from a
// GRADEBOOK_* environment variable through LoadConfig.
type Config struct {
	// Backend selects the storage backend: memory, badger or mongo.
	// Default: memory
	Backend Backend `env:"GRADEBOOK_BACKEND" envDefault:"memory"`

	// Path is the BadgerDB directory. Required for badger unless InMemory.
	Path string `env:"GRADEBOOK_PATH"`

	// InMemory runs BadgerDB without touching the disk.
	InMemory bool `env:"GRADEBOOK_BADGER_IN_MEMORY"`

	// MongoURI is the MongoDB connection string. Required for mongo.
	// Example: "mongodb://localhost:27017"
	MongoURI string `env:"GRADEBOOK_MONGO_URI"`

	// MongoDatabase is the MongoDB database name.
	// Default: gradebook
	MongoDatabase string `env:"GRADEBOOK_MONGO_DATABASE" envDefault:"gradebook"`

	// CacheSize bounds each durable DAO's read-through cache. Values below
	// 1 are clamped to 1.
	// Default: 16
	CacheSize int `env:"GRADEBOOK_CACHE_SIZE" envDefault:"16"`

	// SortedMemoryFind makes the memory backend sort Find results like the
	// durable backend does. Off by default: memory Find keeps insertion order.
	SortedMemoryFind bool `env:"GRADEBOOK_SORTED_MEMORY_FIND"`

	// ConnectTimeout bounds connection establishment to remote stores.
	// Default: 10s
	ConnectTimeout time.Duration `env:"GRADEBOOK_CONNECT_TIMEOUT" envDefault:"10s"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend selects the storage backend.
func WithBackend(backend Backend) ConfigOption {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithPath sets the BadgerDB directory.
func WithPath(path string) ConfigOption {
	return func(c *Config) {
		c.Path = path
	}
}

// WithInMemoryBadger runs BadgerDB in memory.
func WithInMemoryBadger(inMemory bool) ConfigOption {
	return func(c *Config) {
		c.InMemory = inMemory
	}
}

// WithMongoURI sets the MongoDB connection string.
func WithMongoURI(uri string) ConfigOption {
	return func(c *Config) {
		c.MongoURI = uri
	}
}

// WithMongoDatabase sets the MongoDB database name.
func WithMongoDatabase(name string) ConfigOption {
	return func(c *Config) {
		c.MongoDatabase = name
	}
}

// WithCacheSize sets the per-DAO cache bound.
func WithCacheSize(n int) ConfigOption {
	return func(c *Config) {
		c.CacheSize = n
	}
}

// WithSortedMemoryFind makes the memory backend sort Find results.
func WithSortedMemoryFind(sorted bool) ConfigOption {
	return func(c *Config) {
		c.SortedMemoryFind = sorted
	}
}

// WithConnectTimeout sets the remote connection timeout.
func WithConnectTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.ConnectTimeout = d
	}
}

// DefaultConfig returns a Config for the in-memory backend.
func DefaultConfig() *Config {
	return &Config{
		Backend:        BackendMemory,
		MongoDatabase:  "gradebook",
		CacheSize:      16,
		ConnectTimeout: 10 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// LoadConfig reads GRADEBOOK_* environment variables over the defaults,
// applies opts and validates the result.
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize puts the configuration in canonical form: backend names are
// lower-cased ("mongodb" is accepted for mongo) and bounds are clamped.
func (c *Config) Normalize() {
	c.Backend = Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.Backend == "mongodb" {
		c.Backend = BackendMongo
	}
	if c.CacheSize < 1 {
		c.CacheSize = 1
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Backend {
	case BackendMemory:
	case BackendBadger:
		if c.Path == "" && !c.InMemory {
			return fmt.Errorf("%w: badger backend requires a path", storage.ErrConfiguration)
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("%w: mongo backend requires a URI", storage.ErrConfiguration)
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("%w: mongo backend requires a database name", storage.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", storage.ErrConfiguration, c.Backend)
	}
	return nil
}
