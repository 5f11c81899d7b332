package query

import (
	"testing"

	"github.com/poiesic/gradebook/core"
	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	doc := core.Document{
		"id":     "a",
		"tag":    "x",
		"score":  int64(90),
		"tags":   []any{"red", "blue"},
		"nested": map[string]any{"k": "v"},
	}

	tests := []struct {
		name string
		cond core.Condition
		want bool
	}{
		{"empty condition", core.Condition{}, true},
		{"nil condition", nil, true},
		{"equality hit", core.Condition{"tag": "x"}, true},
		{"equality miss", core.Condition{"tag": "y"}, false},
		{"numeric across types", core.Condition{"score": 90}, true},
		{"numeric float", core.Condition{"score": 90.0}, true},
		{"missing field equals nil", core.Condition{"absent": nil}, true},
		{"missing field vs value", core.Condition{"absent": "x"}, false},
		{"scalar in array field", core.Condition{"tags": "red"}, true},
		{"in hit", core.Condition{"tag": In("x", "y")}, true},
		{"in miss", core.Condition{"tag": In("y", "z")}, false},
		{"in typed slice", core.Condition{"tag": map[string]any{"$in": []string{"x"}}}, true},
		{"in against array field", core.Condition{"tags": In("blue")}, true},
		{"in with nil matches missing", core.Condition{"absent": In(nil)}, true},
		{"in empty set", core.Condition{"tag": In()}, false},
		{"array exact same order", core.Condition{"tags": []any{"red", "blue"}}, true},
		{"array exact other order", core.Condition{"tags": []string{"blue", "red"}}, true},
		{"array shorter", core.Condition{"tags": []any{"red"}}, false},
		{"array longer", core.Condition{"tags": []any{"red", "blue", "green"}}, false},
		{"array against scalar field", core.Condition{"tag": []any{"x"}}, false},
		{"embedded document equality", core.Condition{"nested": map[string]any{"k": "v"}}, true},
		{"conjunction all hold", core.Condition{"tag": "x", "score": In(80, 90)}, true},
		{"conjunction one fails", core.Condition{"tag": "x", "score": 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(doc, tt.cond))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(int32(3), 3.0))
	assert.True(t, Equal(uint8(3), int64(3)))
	assert.False(t, Equal(3, "3"))
	assert.True(t, Equal([]any{"a", 1}, []any{"a", int64(1)}))
	assert.False(t, Equal([]any{"a", "b"}, []any{"b", "a"}))
	assert.True(t, Equal(core.Document{"a": 1}, map[string]any{"a": 1.0}))
	assert.False(t, Equal(map[string]any{"a": 1}, map[string]any{"a": 1, "b": 2}))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, "x"))
}

func TestInOperand(t *testing.T) {
	set, ok := InOperand(In("a", "b"))
	assert.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, set)

	_, ok = InOperand(map[string]any{"$in": "a"})
	assert.False(t, ok)

	_, ok = InOperand("a")
	assert.False(t, ok)
}
