package query

import (
	"testing"
	"time"

	"github.com/poiesic/gradebook/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed() []core.Document {
	return []core.Document{
		{"id": "a", "tag": "x", "n": 3},
		{"id": "b", "tag": "y", "n": 1},
		{"id": "c", "tag": "x", "n": 2},
		{"id": "d", "tag": "x"},
	}
}

func ids(docs []core.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID())
	}
	return out
}

func TestFilterAndPaginate(t *testing.T) {
	docs := seed()

	tests := []struct {
		name   string
		cond   core.Condition
		offset int
		limit  int
		want   []string
	}{
		{"all", nil, 0, 0, []string{"a", "b", "c", "d"}},
		{"equality keeps encounter order", core.Condition{"tag": "x"}, 0, 0, []string{"a", "c", "d"}},
		{"limit", core.Condition{"tag": "x"}, 0, 2, []string{"a", "c"}},
		{"offset counts matches", core.Condition{"tag": "x"}, 1, 0, []string{"c", "d"}},
		{"offset and limit", core.Condition{"tag": "x"}, 1, 1, []string{"c"}},
		{"offset equal to match count", core.Condition{"tag": "x"}, 3, 0, []string{}},
		{"offset beyond candidates", nil, 10, 0, []string{}},
		{"negative offset", nil, -1, 1, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterAndPaginate(docs, tt.cond, tt.offset, tt.limit)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilterAndPaginate_DoesNotSort(t *testing.T) {
	docs := []core.Document{{"id": "z"}, {"id": "a"}}
	assert.Equal(t, []string{"z", "a"}, ids(FilterAndPaginate(docs, nil, 0, 0)))
}

func TestPaginate(t *testing.T) {
	docs := seed()
	assert.Equal(t, []string{"b", "c"}, ids(Paginate(docs, 1, 2)))
	assert.Empty(t, Paginate(docs, 4, 0))
	assert.Len(t, Paginate(docs, 0, 0), 4)
}

func TestSortDocuments(t *testing.T) {
	t.Run("ascending with missing first", func(t *testing.T) {
		docs := seed()
		SortDocuments(docs, core.Sort{core.Asc("n")})
		assert.Equal(t, []string{"d", "b", "c", "a"}, ids(docs))
	})

	t.Run("descending", func(t *testing.T) {
		docs := seed()
		SortDocuments(docs, core.Sort{core.Desc("n")})
		assert.Equal(t, []string{"a", "c", "b", "d"}, ids(docs))
	})

	t.Run("multi key stable", func(t *testing.T) {
		docs := seed()
		SortDocuments(docs, core.Sort{core.Desc("tag")})
		// all "x" precede "y" descending; ties keep encounter order
		assert.Equal(t, []string{"b", "a", "c", "d"}, ids(docs))
	})

	t.Run("empty sort is a no-op", func(t *testing.T) {
		docs := seed()
		SortDocuments(docs, nil)
		assert.Equal(t, []string{"a", "b", "c", "d"}, ids(docs))
	})
}

func TestCompare(t *testing.T) {
	now := time.Now()
	assert.Equal(t, -1, Compare(nil, 1))
	assert.Equal(t, -1, Compare(1, "a"))
	assert.Equal(t, 0, Compare(int32(2), 2.0))
	assert.Equal(t, 1, Compare("b", "a"))
	assert.Equal(t, -1, Compare(false, true))
	assert.Equal(t, -1, Compare(now, now.Add(time.Second)))
	assert.Equal(t, -1, Compare([]any{1, 2}, []any{1, 3}))
	assert.Equal(t, -1, Compare([]any{1}, []any{1, 0}))
}

func TestProject(t *testing.T) {
	doc := core.Document{"id": "a", "name": "n", "score": 3, "tags": []any{"x"}}

	t.Run("empty keeps all", func(t *testing.T) {
		got := Project(doc, nil)
		assert.Equal(t, doc, got)
		got["name"] = "changed"
		assert.Equal(t, "n", doc["name"])
	})

	t.Run("inclusive keeps id", func(t *testing.T) {
		got := Project(doc, core.Projection{"name": true})
		assert.Equal(t, core.Document{"id": "a", "name": "n"}, got)
	})

	t.Run("inclusive drops id when asked", func(t *testing.T) {
		got := Project(doc, core.Projection{"name": true, "id": false})
		assert.Equal(t, core.Document{"name": "n"}, got)
	})

	t.Run("exclusive", func(t *testing.T) {
		got := Project(doc, core.Projection{"tags": false, "score": false})
		assert.Equal(t, core.Document{"id": "a", "name": "n"}, got)
	})

	t.Run("nil document", func(t *testing.T) {
		assert.Nil(t, Project(nil, core.Projection{"a": true}))
	})
}
