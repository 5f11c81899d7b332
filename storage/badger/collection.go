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

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/query"
	"github.com/poiesic/gradebook/storage"
)

// Collection stores the documents of one collection under a shared key
// prefix, in insertion order, with an id index for direct lookups.
// Conditions are evaluated with the query engine during scans.
type Collection struct {
	name  string
	store *Store
}

var _ storage.Collection = (*Collection)(nil)

// storedDocument is a decoded document together with its key.
type storedDocument struct {
	key []byte
	doc core.Document
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// InsertOne writes doc under a fresh sequence number.
func (c *Collection) InsertOne(ctx context.Context, doc core.Document) error {
	id := doc.ID()
	if id == "" {
		return fmt.Errorf("%w: document has no id", core.ErrInvalidDocument)
	}
	value, err := encodeRecord(doc)
	if err != nil {
		return err
	}
	seq, err := c.store.sequence(c.name)
	if err != nil {
		return err
	}

	return c.store.WithTx(ctx, func(tx *badger.Txn) error {
		idxKey := makeIDIndexKey(c.name, id)
		exists, err := keyExists(tx, idxKey)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s %q", storage.ErrDuplicateKey, c.name, id)
		}

		next, err := seq.Next()
		if err != nil {
			return err
		}
		if err := tx.Set(makeDocumentKey(c.name, next), value); err != nil {
			return err
		}
		if err := tx.Set(idxKey, encodeSequence(next)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindOne returns the first matching document in insertion order, or nil.
func (c *Collection) FindOne(ctx context.Context, cond core.Condition) (core.Document, error) {
	var result core.Document
	err := c.store.WithTx(ctx, func(tx *badger.Txn) error {
		if id, ok := cond.IDOnly(); ok {
			found, err := c.readByID(tx, id)
			if err != nil || found == nil {
				return err
			}
			result = found.doc
			return nil
		}
		return c.scan(ctx, tx, func(sd storedDocument) (bool, error) {
			if query.Matches(sd.doc, cond) {
				result = sd.doc
				return false, nil
			}
			return true, nil
		})
	}, false)
	return result, err
}

// Find returns the matching documents. With a sort the full match set is
// sorted before pagination; without one, matches keep insertion order and
// the scan stops once the page is filled.
func (c *Collection) Find(ctx context.Context, cond core.Condition, page storage.Page) ([]core.Document, error) {
	var matched []core.Document
	sorted := len(page.Sort) > 0
	offset := max(page.Offset, 0)

	err := c.store.WithTx(ctx, func(tx *badger.Txn) error {
		skipped := 0
		return c.scan(ctx, tx, func(sd storedDocument) (bool, error) {
			if !query.Matches(sd.doc, cond) {
				return true, nil
			}
			if !sorted && skipped < offset {
				skipped++
				return true, nil
			}
			matched = append(matched, sd.doc)
			full := !sorted && page.Limit > 0 && len(matched) >= page.Limit
			return !full, nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	if !sorted {
		if matched == nil {
			matched = []core.Document{}
		}
		return matched, nil
	}
	query.SortDocuments(matched, page.Sort)
	return query.Paginate(matched, offset, page.Limit), nil
}

// Count returns the number of matching documents.
func (c *Collection) Count(ctx context.Context, cond core.Condition) (int64, error) {
	var n int64
	err := c.store.WithTx(ctx, func(tx *badger.Txn) error {
		return c.scan(ctx, tx, func(sd storedDocument) (bool, error) {
			if query.Matches(sd.doc, cond) {
				n++
			}
			return true, nil
		})
	}, false)
	return n, err
}

// IDs returns the ids of the matching documents in insertion order.
func (c *Collection) IDs(ctx context.Context, cond core.Condition) ([]string, error) {
	ids := []string{}
	err := c.store.WithTx(ctx, func(tx *badger.Txn) error {
		if len(cond) == 0 {
			return c.scanIDs(ctx, tx, func(id string) {
				ids = append(ids, id)
			})
		}
		return c.scan(ctx, tx, func(sd storedDocument) (bool, error) {
			if query.Matches(sd.doc, cond) {
				ids = append(ids, sd.doc.ID())
			}
			return true, nil
		})
	}, false)
	return ids, err
}

// UpdateMany sets the patch fields on every matching document. A patch
// carrying an id moves the id index entry; it may match at most one
// document and must not collide with another document's id. Large match
// sets are written in several commits.
func (c *Collection) UpdateMany(ctx context.Context, cond core.Condition, patch core.Patch) (int64, error) {
	var n int64
	err := c.store.withWriteBatch(ctx, func(b *writeBatch) error {
		matched, err := c.collect(ctx, b.tx, cond)
		if err != nil {
			return err
		}
		n = int64(len(matched))
		if n == 0 || len(patch) == 0 {
			return nil
		}

		newID := patch.ID()
		if newID != "" && n > 1 {
			return fmt.Errorf("%w: %s: cannot set id %q on %d documents", storage.ErrDuplicateKey, c.name, newID, n)
		}
		if newID != "" && newID != matched[0].doc.ID() {
			// A single document: the relabel and its write share the first commit.
			if err := c.moveIndex(b.tx, matched[0].key, matched[0].doc.ID(), newID); err != nil {
				return err
			}
		}

		for _, sd := range matched {
			for field, value := range patch {
				sd.doc[field] = core.CloneValue(value)
			}
			value, err := encodeRecord(sd.doc)
			if err != nil {
				return err
			}
			err = b.apply(func(tx *badger.Txn) error {
				return tx.Set(sd.key, value)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return n, err
}

// moveIndex repoints the id index from oldID to newID.
func (c *Collection) moveIndex(tx *badger.Txn, docKey []byte, oldID, newID string) error {
	newKey := makeIDIndexKey(c.name, newID)
	exists, err := keyExists(tx, newKey)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s %q", storage.ErrDuplicateKey, c.name, newID)
	}
	oldKey := makeIDIndexKey(c.name, oldID)
	item, err := tx.Get(oldKey)
	if err != nil {
		return err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	if err := tx.Delete(oldKey); err != nil {
		return err
	}
	return tx.Set(newKey, value)
}

// DeleteMany removes every matching document and its index entry. Large
// match sets are removed in several commits.
func (c *Collection) DeleteMany(ctx context.Context, cond core.Condition) (int64, error) {
	var n int64
	err := c.store.withWriteBatch(ctx, func(b *writeBatch) error {
		var matched []storedDocument
		if id, ok := cond.IDOnly(); ok {
			found, err := c.readByID(b.tx, id)
			if err != nil {
				return err
			}
			if found != nil {
				matched = append(matched, *found)
			}
		} else {
			var err error
			if matched, err = c.collect(ctx, b.tx, cond); err != nil {
				return err
			}
		}
		n = int64(len(matched))

		for _, sd := range matched {
			idxKey := makeIDIndexKey(c.name, sd.doc.ID())
			err := b.apply(func(tx *badger.Txn) error {
				if err := tx.Delete(sd.key); err != nil {
					return err
				}
				return tx.Delete(idxKey)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return n, err
}

// Drop removes every document and index entry of the collection. The id
// sequence keeps counting.
func (c *Collection) Drop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.store.IsClosed() {
		return storage.ErrStorageClosed
	}
	return c.store.db.DropPrefix(makeDocumentPrefix(c.name), makeIDIndexPrefix(c.name))
}

// readByID resolves id through the index. Returns nil when absent.
func (c *Collection) readByID(tx *badger.Txn, id string) (*storedDocument, error) {
	item, err := tx.Get(makeIDIndexKey(c.name, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var seq uint64
	err = item.Value(func(val []byte) error {
		seq, err = decodeSequence(val)
		return err
	})
	if err != nil {
		return nil, err
	}

	key := makeDocumentKey(c.name, seq)
	item, err = tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc core.Document
	err = item.Value(func(val []byte) error {
		doc, err = decodeRecord(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &storedDocument{key: key, doc: doc}, nil
}

// collect gathers the matching documents before any write, so the iterator
// is closed when the caller mutates the transaction.
func (c *Collection) collect(ctx context.Context, tx *badger.Txn, cond core.Condition) ([]storedDocument, error) {
	var matched []storedDocument
	err := c.scan(ctx, tx, func(sd storedDocument) (bool, error) {
		if query.Matches(sd.doc, cond) {
			matched = append(matched, sd)
		}
		return true, nil
	})
	return matched, err
}

// scan decodes every document of the collection in insertion order and
// hands it to fn until fn returns false. The context is checked between
// documents.
func (c *Collection) scan(ctx context.Context, tx *badger.Txn, fn func(sd storedDocument) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeDocumentPrefix(c.name)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := iter.Item()
		var doc core.Document
		err := item.Value(func(val []byte) error {
			var err error
			doc, err = decodeRecord(val)
			return err
		})
		if err != nil {
			return fmt.Errorf("decode %s: %w", item.Key(), err)
		}
		more, err := fn(storedDocument{key: item.KeyCopy(nil), doc: doc})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// scanIDs walks the collection reading only record ids.
func (c *Collection) scanIDs(ctx context.Context, tx *badger.Txn, fn func(id string)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeDocumentPrefix(c.name)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var id string
		err := iter.Item().Value(func(val []byte) error {
			var err error
			id, _, err = decodeRecordID(val)
			return err
		})
		if err != nil {
			return err
		}
		fn(id)
	}
	return nil
}

func keyExists(tx *badger.Txn, key []byte) (bool, error) {
	_, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
