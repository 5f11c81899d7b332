package storage

import (
	"testing"
	"time"

	"github.com/poiesic/gradebook/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMarshalUnmarshalDocument(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	tests := []struct {
		name string
		doc  core.Document
	}{
		{
			name: "minimal document",
			doc:  core.Document{"id": "u1"},
		},
		{
			name: "scalars",
			doc: core.Document{
				"id":     "u2",
				"name":   "Ada",
				"age":    36,
				"score":  91.5,
				"active": true,
				"joined": now,
				"nick":   nil,
			},
		},
		{
			name: "nested values",
			doc: core.Document{
				"id":      "u3",
				"tags":    []any{"x", "y"},
				"address": map[string]any{"city": "Paris", "zip": 75001},
				"history": []any{map[string]any{"term": 1}, []any{1, 2}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalDocument(tt.doc)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalDocument(data)
			require.NoError(t, err)
			assert.Equal(t, tt.doc, decoded)
		})
	}
}

func TestMarshalDocument_Nil(t *testing.T) {
	_, err := MarshalDocument(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestUnmarshalDocument_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty data", []byte{}, ErrTruncatedData},
		{"garbage", []byte{0x01, 0x02, 0x03}, ErrSerializationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalDocument(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFromBSON(t *testing.T) {
	ts := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	oid := primitive.NewObjectID()

	assert.Equal(t, 7, FromBSON(int32(7)))
	assert.Equal(t, 7, FromBSON(int64(7)))
	assert.Equal(t, ts, FromBSON(primitive.NewDateTimeFromTime(ts)))
	assert.Equal(t, oid.Hex(), FromBSON(oid))
	assert.Nil(t, FromBSON(primitive.Null{}))
	assert.Equal(t,
		map[string]any{"a": []any{1, "b"}},
		FromBSON(primitive.D{{Key: "a", Value: primitive.A{int32(1), "b"}}}),
	)
	assert.Equal(t,
		map[string]any{"n": map[string]any{"k": 2}},
		FromBSON(primitive.M{"n": bson.M{"k": int64(2)}}),
	)
}
