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


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/gradebook/storage"
)

const (
	defaultSequenceBandwidth = 100
)

// Store wraps a BadgerDB instance and hands out document collections.
type Store struct {
	db           *badger.DB
	logger       *slog.Logger
	memTableSize int64

	mu          sync.Mutex
	sequences   map[string]*badger.Sequence
	collections map[string]*Collection
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store and by BadgerDB itself.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMemTableSize sets the BadgerDB memtable size in bytes, which also
// bounds how many writes fit in one transaction. The value threshold is
// lowered to fit when needed.
func WithMemTableSize(size int64) Option {
	return func(s *Store) {
		s.memTableSize = size
	}
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenStore opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist. With inMemory set the path is
// ignored and nothing touches the disk.
func OpenStore(filePath string, inMemory bool, opts ...Option) (*Store, error) {
	s := &Store{
		logger:      slog.Default(),
		sequences:   make(map[string]*badger.Sequence),
		collections: make(map[string]*Collection),
	}
	for _, opt := range opts {
		opt(s)
	}

	var dbOpts badger.Options
	if inMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if filePath == "" {
			return nil, fmt.Errorf("%w: badger path is empty", storage.ErrConfiguration)
		}
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			if info, err = os.Stat(filePath); err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", storage.ErrConfiguration, filePath)
		}
		dbOpts = badger.DefaultOptions(filePath)
	}

	dbOpts.Logger = &badgerLoggerAdapter{logger: s.logger}
	dbOpts.Compression = options.None
	if s.memTableSize > 0 {
		dbOpts = dbOpts.WithMemTableSize(s.memTableSize).
			WithValueThreshold(min(dbOpts.ValueThreshold, s.memTableSize/10))
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	s.db = db
	s.logger.Debug("opened badger store", "path", filePath, "inMemory", inMemory)
	return s, nil
}

// OpenMemoryStore opens a store that lives only in memory. It is meant for
// tests and offline use.
func OpenMemoryStore(opts ...Option) (*Store, error) {
	return OpenStore("", true, opts...)
}

// Collection returns the named collection. Handles are cached, so repeated
// calls return the same value.
func (s *Store) Collection(name string) storage.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c
	}
	c := &Collection{name: name, store: s}
	s.collections[name] = c
	return c
}

// Ping verifies the database is open and readable.
func (s *Store) Ping(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *badger.Txn) error {
		return nil
	}, false)
}

// Close releases every sequence and closes the BadgerDB database.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.IsClosed() {
		return storage.ErrStorageClosed
	}

	var errs []error
	for name, seq := range s.sequences {
		if err := seq.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release sequence %s: %w", name, err))
		}
	}
	s.sequences = make(map[string]*badger.Sequence)
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// IsClosed returns true if the database is closed.
func (s *Store) IsClosed() bool {
	return s.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction that fn must commit.
// The transaction is automatically discarded when fn returns.
func (s *Store) WithTx(ctx context.Context, fn func(tx *badger.Txn) error, isWrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := s.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// writeBatch is a write transaction that commits what it holds and starts
// a fresh one whenever BadgerDB reports the pending writes no longer fit.
type writeBatch struct {
	db *badger.DB
	tx *badger.Txn
}

// apply runs ops against the current transaction. When ops hits
// badger.ErrTxnTooBig the transaction is committed and ops runs again on a
// new one, so ops must be safe to repeat.
func (b *writeBatch) apply(ops func(tx *badger.Txn) error) error {
	err := ops(b.tx)
	if !errors.Is(err, badger.ErrTxnTooBig) {
		return err
	}
	if err := b.tx.Commit(); err != nil {
		return err
	}
	b.tx = b.db.NewTransaction(true)
	return ops(b.tx)
}

// withWriteBatch runs fn with a write batch and commits the final chunk when
// fn succeeds. Reads and checks done through the batch before the first
// chunk commits see a single consistent snapshot.
func (s *Store) withWriteBatch(ctx context.Context, fn func(b *writeBatch) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	b := &writeBatch{db: s.db, tx: s.db.NewTransaction(true)}
	defer func() {
		b.tx.Discard()
	}()
	if err := fn(b); err != nil {
		return err
	}
	return b.tx.Commit()
}

// sequence returns the id sequence of a collection, leasing it on first use.
func (s *Store) sequence(collection string) (*badger.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq, ok := s.sequences[collection]; ok {
		return seq, nil
	}
	seq, err := s.db.GetSequence(makeSequenceKey(collection), defaultSequenceBandwidth)
	if err != nil {
		return nil, err
	}
	s.sequences[collection] = seq
	return seq, nil
}
