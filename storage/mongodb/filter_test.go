package mongodb

import (
	"testing"

	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/query"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFilterFromCondition(t *testing.T) {
	tests := []struct {
		name string
		cond core.Condition
		want bson.D
	}{
		{
			name: "empty",
			cond: nil,
			want: bson.D{},
		},
		{
			name: "equality",
			cond: core.Condition{"tag": "x"},
			want: bson.D{{Key: "tag", Value: "x"}},
		},
		{
			name: "in",
			cond: core.Condition{"tag": query.In("x", "y")},
			want: bson.D{{Key: "tag", Value: bson.D{{Key: "$in", Value: []any{"x", "y"}}}}},
		},
		{
			name: "in typed slice",
			cond: core.Condition{"tag": map[string]any{"$in": []string{"x"}}},
			want: bson.D{{Key: "tag", Value: bson.D{{Key: "$in", Value: []any{"x"}}}}},
		},
		{
			name: "array exact",
			cond: core.Condition{"tags": []any{"a", "b"}},
			want: bson.D{{Key: "tags", Value: bson.D{
				{Key: "$size", Value: 2},
				{Key: "$all", Value: []any{"a", "b"}},
			}}},
		},
		{
			name: "empty array",
			cond: core.Condition{"tags": []string{}},
			want: bson.D{{Key: "tags", Value: bson.D{{Key: "$size", Value: 0}}}},
		},
		{
			name: "keys sorted",
			cond: core.Condition{"z": 1, "a": nil, "m": true},
			want: bson.D{{Key: "a", Value: nil}, {Key: "m", Value: true}, {Key: "z", Value: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterFromCondition(tt.cond))
		})
	}
}

func TestSortFromKeys(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, SortFromKeys(nil))
	assert.Equal(t,
		bson.D{{Key: "level", Value: -1}, {Key: "name", Value: 1}, {Key: "_id", Value: 1}},
		SortFromKeys(core.Sort{core.Desc("level"), core.Asc("name")}),
	)
}

func TestSetFromPatch(t *testing.T) {
	assert.Equal(t,
		bson.D{{Key: "$set", Value: map[string]any{"grade": "A"}}},
		SetFromPatch(core.Patch{"grade": "A"}),
	)
}
