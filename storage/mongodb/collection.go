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


package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/storage"
)

const idIndexName = "id_unique"

// hideInternalID is the projection applied to every read.
var hideInternalID = bson.D{{Key: internalIDField, Value: 0}}

// Collection is a MongoDB collection holding gradebook documents.
type Collection struct {
	name   string
	coll   *mongo.Collection
	logger *slog.Logger

	indexMu sync.Mutex
	indexed bool
}

var _ storage.Collection = (*Collection)(nil)

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// ensureIndex creates the unique index on id once. A failed attempt is
// retried on the next write.
func (c *Collection) ensureIndex(ctx context.Context) error {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	if c.indexed {
		return nil
	}
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: core.IDField, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(idIndexName),
	}
	if _, err := c.coll.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create index %s on %s: %w", idIndexName, c.name, err)
	}
	c.indexed = true
	c.logger.Debug("ensured unique id index", "collection", c.name)
	return nil
}

// InsertOne writes doc. A duplicate id maps to storage.ErrDuplicateKey.
func (c *Collection) InsertOne(ctx context.Context, doc core.Document) error {
	if doc.ID() == "" {
		return fmt.Errorf("%w: document has no id", core.ErrInvalidDocument)
	}
	if err := c.ensureIndex(ctx); err != nil {
		return err
	}
	_, err := c.coll.InsertOne(ctx, map[string]any(doc))
	return mapError(err)
}

// FindOne returns the first matching document in insertion order, or nil.
func (c *Collection) FindOne(ctx context.Context, cond core.Condition) (core.Document, error) {
	opts := options.FindOne().
		SetProjection(hideInternalID).
		SetSort(SortFromKeys(nil))
	var raw bson.M
	err := c.coll.FindOne(ctx, FilterFromCondition(cond), opts).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return core.StripInternal(storage.DocumentFromBSON(raw)), nil
}

// Find returns the matching documents sorted and paginated server side.
func (c *Collection) Find(ctx context.Context, cond core.Condition, page storage.Page) ([]core.Document, error) {
	opts := options.Find().
		SetProjection(hideInternalID).
		SetSort(SortFromKeys(page.Sort))
	if page.Offset > 0 {
		opts.SetSkip(int64(page.Offset))
	}
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}

	cursor, err := c.coll.Find(ctx, FilterFromCondition(cond), opts)
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}

	docs := make([]core.Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, core.StripInternal(storage.DocumentFromBSON(m)))
	}
	return docs, nil
}

// Count returns the number of matching documents.
func (c *Collection) Count(ctx context.Context, cond core.Condition) (int64, error) {
	return c.coll.CountDocuments(ctx, FilterFromCondition(cond))
}

// IDs returns the ids of the matching documents in insertion order.
func (c *Collection) IDs(ctx context.Context, cond core.Condition) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.D{{Key: core.IDField, Value: 1}, {Key: internalIDField, Value: 0}}).
		SetSort(SortFromKeys(nil))
	cursor, err := c.coll.Find(ctx, FilterFromCondition(cond), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ids := []string{}
	for cursor.Next(ctx) {
		var row struct {
			ID string `bson:"id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cursor.Err()
}

// UpdateMany applies patch with $set and returns the matched count. A patch
// carrying an id is refused up front when it would match several documents,
// so the unique index never leaves a partial update behind.
func (c *Collection) UpdateMany(ctx context.Context, cond core.Condition, patch core.Patch) (int64, error) {
	filter := FilterFromCondition(cond)
	if len(patch) == 0 {
		return c.coll.CountDocuments(ctx, filter)
	}
	if err := c.ensureIndex(ctx); err != nil {
		return 0, err
	}
	if newID := patch.ID(); newID != "" {
		n, err := c.coll.CountDocuments(ctx, filter)
		if err != nil {
			return 0, err
		}
		if n > 1 {
			return 0, fmt.Errorf("%w: %s: cannot set id %q on %d documents", storage.ErrDuplicateKey, c.name, newID, n)
		}
	}

	res, err := c.coll.UpdateMany(ctx, filter, SetFromPatch(patch))
	if err != nil {
		return 0, mapError(err)
	}
	return res.MatchedCount, nil
}

// DeleteMany removes every matching document.
func (c *Collection) DeleteMany(ctx context.Context, cond core.Condition) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, FilterFromCondition(cond))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Drop removes every document. The collection and its indexes stay.
func (c *Collection) Drop(ctx context.Context) error {
	_, err := c.coll.DeleteMany(ctx, bson.D{})
	return err
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", storage.ErrDuplicateKey, err)
	}
	return err
}
