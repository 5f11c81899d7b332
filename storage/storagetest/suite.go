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


// Package storagetest holds the behavioural test suite every storage.DAO
// implementation must pass.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/query"
	"github.com/poiesic/gradebook/storage"
)

// Factory returns a fresh, empty DAO. It is called once per subtest.
type Factory func(t *testing.T) storage.DAO

// RunDAOTests runs the shared contract suite against the DAOs newDAO
// produces.
func RunDAOTests(t *testing.T, newDAO Factory) {
	t.Helper()

	t.Run("InsertAssignsID", func(t *testing.T) { testInsertAssignsID(t, newDAO(t)) })
	t.Run("InsertKeepsID", func(t *testing.T) { testInsertKeepsID(t, newDAO(t)) })
	t.Run("InsertDuplicate", func(t *testing.T) { testInsertDuplicate(t, newDAO(t)) })
	t.Run("InsertInvalid", func(t *testing.T) { testInsertInvalid(t, newDAO(t)) })
	t.Run("Scenario", func(t *testing.T) { testScenario(t, newDAO(t)) })
	t.Run("FindOperators", func(t *testing.T) { testFindOperators(t, newDAO(t)) })
	t.Run("FindProjection", func(t *testing.T) { testFindProjection(t, newDAO(t)) })
	t.Run("FindOne", func(t *testing.T) { testFindOne(t, newDAO(t)) })
	t.Run("FindByIDMissing", func(t *testing.T) { testFindByIDMissing(t, newDAO(t)) })
	t.Run("PaginationBoundary", func(t *testing.T) { testPaginationBoundary(t, newDAO(t)) })
	t.Run("Count", func(t *testing.T) { testCount(t, newDAO(t)) })
	t.Run("UpdateSetsOnlyNamedFields", func(t *testing.T) { testUpdateSetsOnlyNamedFields(t, newDAO(t)) })
	t.Run("UpdateVisibleThroughFindByID", func(t *testing.T) { testUpdateVisibleThroughFindByID(t, newDAO(t)) })
	t.Run("UpdateRelabelsID", func(t *testing.T) { testUpdateRelabelsID(t, newDAO(t)) })
	t.Run("UpdateEmptyPatch", func(t *testing.T) { testUpdateEmptyPatch(t, newDAO(t)) })
	t.Run("UpsertLite", func(t *testing.T) { testUpsertLite(t, newDAO(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newDAO(t)) })
	t.Run("DeleteByID", func(t *testing.T) { testDeleteByID(t, newDAO(t)) })
	t.Run("ClearIdempotent", func(t *testing.T) { testClearIdempotent(t, newDAO(t)) })
	t.Run("DeleteAll", func(t *testing.T) { testDeleteAll(t, newDAO(t)) })
	t.Run("InvalidCondition", func(t *testing.T) { testInvalidCondition(t, newDAO(t)) })
	t.Run("ReturnedDocumentsAreCopies", func(t *testing.T) { testReturnedDocumentsAreCopies(t, newDAO(t)) })
}

// Seed inserts docs and fails the test on error.
func Seed(t *testing.T, dao storage.DAO, docs ...core.Document) {
	t.Helper()
	ctx := context.Background()
	for _, doc := range docs {
		_, err := dao.Insert(ctx, doc)
		require.NoError(t, err)
	}
}

// IDs returns the ids of docs in order.
func IDs(docs []core.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID())
	}
	return ids
}

// ScenarioDocs returns the three-document seed used across the suite.
func ScenarioDocs() []core.Document {
	return []core.Document{
		{"id": "a", "tag": "x"},
		{"id": "b", "tag": "y"},
		{"id": "c", "tag": "x"},
	}
}

// EquivalenceDocs returns a seed set exercising every condition rule.
func EquivalenceDocs() []core.Document {
	return []core.Document{
		{"id": "s1", "name": "Ada", "level": 3, "tags": []any{"math", "logic"}, "status": "active"},
		{"id": "s2", "name": "Brian", "level": 2, "tags": []any{"art"}, "status": "active"},
		{"id": "s3", "name": "Cleo", "level": 3, "tags": []any{"logic", "math"}, "status": "inactive"},
		{"id": "s4", "name": "Dov", "level": 1, "tags": []any{}, "status": "active"},
		{"id": "s5", "name": "Eun", "level": 3, "tags": []any{"math", "logic", "art"}},
	}
}

// EquivalenceConditions returns conditions mixing equality, $in and
// array-exact-match against EquivalenceDocs.
func EquivalenceConditions() map[string]core.Condition {
	return map[string]core.Condition{
		"empty":                 {},
		"equality":              {"level": 3},
		"in":                    {"status": query.In("active", "pending")},
		"in with missing":       {"status": query.In("inactive", nil)},
		"array exact":           {"tags": []any{"logic", "math"}},
		"array exact empty":     {"tags": []any{}},
		"scalar in array field": {"tags": "art"},
		"in over array field":   {"tags": query.In("art")},
		"mixed": {
			"level":  query.In(2, 3),
			"status": "active",
			"tags":   []any{"math", "logic"},
		},
	}
}

func testInsertAssignsID(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	doc := core.Document{"name": "Ada", "level": 3, "tags": []any{"x"}, "meta": map[string]any{"k": "v"}}

	id, err := dao.Insert(ctx, doc)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.NotContains(t, doc, core.IDField, "caller's document must not be mutated")

	got, err := dao.FindByID(ctx, id)
	require.NoError(t, err)
	want := core.Clone(doc)
	want[core.IDField] = id
	assert.Equal(t, want, got)
}

func testInsertKeepsID(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	id, err := dao.Insert(ctx, core.Document{"id": "fixed", "name": "n"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)
}

func testInsertDuplicate(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, core.Document{"id": "dup"})
	_, err := dao.Insert(ctx, core.Document{"id": "dup", "other": true})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	n, err := dao.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testInsertInvalid(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	_, err := dao.Insert(ctx, nil)
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
	_, err = dao.Insert(ctx, core.Document{"id": 42})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
	_, err = dao.Insert(ctx, core.Document{"_secret": 1})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func testScenario(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, ScenarioDocs()...)

	got, err := dao.Find(ctx, core.Condition{"tag": "x"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, IDs(got))

	got, err = dao.Find(ctx, core.Condition{"tag": query.In("x", "y")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, IDs(got))

	found, err := dao.DeleteByID(ctx, "b")
	require.NoError(t, err)
	assert.True(t, found)

	got, err = dao.Find(ctx, core.Condition{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, IDs(got))

	n, err := dao.UpdateMany(ctx, core.Condition{"tag": "x"}, core.Patch{"tag": "z"}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err = dao.Find(ctx, core.Condition{"tag": "z"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, IDs(got))

	got, err = dao.Find(ctx, core.Condition{"tag": "x"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testFindOperators(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, EquivalenceDocs()...)

	want := map[string][]string{
		"empty":                 {"s1", "s2", "s3", "s4", "s5"},
		"equality":              {"s1", "s3", "s5"},
		"in":                    {"s1", "s2", "s4"},
		"in with missing":       {"s3", "s5"},
		"array exact":           {"s1", "s3"},
		"array exact empty":     {"s4"},
		"scalar in array field": {"s2", "s5"},
		"in over array field":   {"s2", "s5"},
		"mixed":                 {"s1"},
	}
	for name, cond := range EquivalenceConditions() {
		t.Run(name, func(t *testing.T) {
			got, err := dao.Find(ctx, cond)
			require.NoError(t, err)
			assert.ElementsMatch(t, want[name], IDs(got))
		})
	}
}

func testFindProjection(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, core.Document{"id": "p", "name": "n", "level": 1, "secret": "s"})

	got, err := dao.Find(ctx, core.ByID("p"), storage.WithProjection(core.Projection{"name": true}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.Document{"id": "p", "name": "n"}, got[0])

	got, err = dao.Find(ctx, core.ByID("p"), storage.WithProjection(core.Projection{"secret": false}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.Document{"id": "p", "name": "n", "level": 1}, got[0])

	// Projection never leaks into later full reads.
	full, err := dao.FindByID(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "s", full["secret"])
}

func testFindOne(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, ScenarioDocs()...)

	got, err := dao.FindOne(ctx, core.Condition{"tag": "y"}, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Document{"id": "b", "tag": "y"}, got)

	got, err = dao.FindOne(ctx, core.ByID("a"), core.Projection{"tag": true, "id": false})
	require.NoError(t, err)
	assert.Equal(t, core.Document{"tag": "x"}, got)

	got, err = dao.FindOne(ctx, core.Condition{"tag": "none"}, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testFindByIDMissing(t *testing.T, dao storage.DAO) {
	got, err := dao.FindByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testPaginationBoundary(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, ScenarioDocs()...)
	cond := core.Condition{"tag": "x"}

	got, err := dao.Find(ctx, cond, storage.WithOffset(2))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = dao.Find(ctx, cond, storage.WithOffset(10))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = dao.Find(ctx, cond, storage.WithLimit(1))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	first, err := dao.Find(ctx, cond, storage.WithLimit(1))
	require.NoError(t, err)
	second, err := dao.Find(ctx, cond, storage.WithOffset(1), storage.WithLimit(1))
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.ElementsMatch(t, []string{"a", "c"}, append(IDs(first), IDs(second)...))
}

func testCount(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	n, err := dao.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	Seed(t, dao, ScenarioDocs()...)
	n, err = dao.Count(ctx, core.Condition{"tag": "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func testUpdateSetsOnlyNamedFields(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, core.Document{"id": "u", "name": "n", "meta": map[string]any{"a": 1, "b": 2}})

	n, err := dao.Update(ctx, core.ByID("u"), core.Patch{"meta": map[string]any{"a": 9}, "extra": true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := dao.FindByID(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, core.Document{
		"id":    "u",
		"name":  "n",
		"meta":  map[string]any{"a": 9},
		"extra": true,
	}, got)
}

func testUpdateVisibleThroughFindByID(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, core.Document{"id": "v", "grade": "B"})

	before, err := dao.FindByID(ctx, "v")
	require.NoError(t, err)
	require.Equal(t, "B", before["grade"])

	_, err = dao.Update(ctx, core.Condition{"grade": "B"}, core.Patch{"grade": "A"})
	require.NoError(t, err)

	after, err := dao.FindByID(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, "A", after["grade"])
}

func testUpdateRelabelsID(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, core.Document{"id": "old", "v": 1}, core.Document{"id": "taken", "v": 2})

	_, err := dao.FindByID(ctx, "old")
	require.NoError(t, err)

	_, err = dao.Update(ctx, core.ByID("old"), core.Patch{"id": "taken"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	n, err := dao.Update(ctx, core.ByID("old"), core.Patch{"id": "new"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := dao.FindByID(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = dao.FindByID(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, core.Document{"id": "new", "v": 1}, got)
}

func testUpdateEmptyPatch(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, ScenarioDocs()...)

	n, err := dao.Update(ctx, core.Condition{"tag": "x"}, core.Patch{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := dao.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, core.Document{"id": "a", "tag": "x"}, got)
}

func testUpsertLite(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, ScenarioDocs()...)

	before, err := dao.Count(ctx, nil)
	require.NoError(t, err)

	n, err := dao.UpdateMany(ctx, core.Condition{"tag": "nope"}, core.Patch{"tag": "w", "score": 1}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	after, err := dao.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	// The patch is inserted verbatim; fields of the condition are not merged in.
	got, err := dao.FindOne(ctx, core.Condition{"tag": "w"}, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotEmpty(t, got.ID())
	assert.Equal(t, 1, got["score"])

	// Without insertIfMissing nothing is written.
	n, err = dao.UpdateMany(ctx, core.Condition{"tag": "nope"}, core.Patch{"tag": "w"}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	final, err := dao.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, after, final)
}

func testDelete(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, ScenarioDocs()...)

	_, err := dao.FindByID(ctx, "a")
	require.NoError(t, err)

	n, err := dao.Delete(ctx, core.Condition{"tag": "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := dao.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err = dao.Delete(ctx, core.Condition{"tag": "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func testDeleteByID(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, ScenarioDocs()...)

	found, err := dao.DeleteByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = dao.DeleteByID(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)
}

func testClearIdempotent(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, ScenarioDocs()...)

	for i := 0; i < 2; i++ {
		require.NoError(t, dao.Clear(ctx))
		n, err := dao.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	}

	got, err := dao.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testDeleteAll(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, ScenarioDocs()...)
	require.NoError(t, dao.DeleteAll(ctx))

	got, err := dao.Find(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testInvalidCondition(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	bad := core.Condition{"tag": map[string]any{"$gt": 1}}

	_, err := dao.Find(ctx, bad)
	assert.ErrorIs(t, err, core.ErrInvalidCondition)
	_, err = dao.Count(ctx, bad)
	assert.ErrorIs(t, err, core.ErrInvalidCondition)
	_, err = dao.Delete(ctx, bad)
	assert.ErrorIs(t, err, core.ErrInvalidCondition)
}

func testReturnedDocumentsAreCopies(t *testing.T, dao storage.DAO) {
	ctx := context.Background()
	Seed(t, dao, core.Document{"id": "m", "tags": []any{"x"}})

	got, err := dao.FindByID(ctx, "m")
	require.NoError(t, err)
	got["tags"].([]any)[0] = "mutated"
	got["extra"] = 1

	again, err := dao.FindByID(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, core.Document{"id": "m", "tags": []any{"x"}}, again)
}
