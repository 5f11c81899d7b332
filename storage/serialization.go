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


package storage

import (
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/poiesic/gradebook/core"
)

// MarshalDocument serializes a Document to BSON.
func MarshalDocument(doc core.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrSerializationFailed)
	}
	data, err := bson.Marshal(map[string]any(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalDocument deserializes a BSON document and normalizes its values
// with FromBSON.
func UnmarshalDocument(data []byte) (core.Document, error) {
	if len(data) == 0 {
		return nil, ErrTruncatedData
	}
	var raw bson.M
	if err := bson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return DocumentFromBSON(raw), nil
}

// NormalizeDocument returns doc in the shape a store read hands back, by
// passing it through the BSON encoding.
func NormalizeDocument(doc core.Document) (core.Document, error) {
	data, err := MarshalDocument(doc)
	if err != nil {
		return nil, err
	}
	return UnmarshalDocument(data)
}

// DocumentFromBSON converts a decoded BSON document into a core.Document
// with plain Go values.
func DocumentFromBSON(m bson.M) core.Document {
	if m == nil {
		return nil
	}
	doc := make(core.Document, len(m))
	for k, v := range m {
		doc[k] = FromBSON(v)
	}
	return doc
}

// FromBSON converts driver-specific shapes into the plain values the
// in-memory backend uses: embedded documents become map[string]any, arrays
// []any, 32 and 64 bit integers int, and datetimes time.Time in UTC.
func FromBSON(v any) any {
	switch t := v.(type) {
	case primitive.M:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = FromBSON(inner)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = FromBSON(inner)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = FromBSON(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = FromBSON(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = FromBSON(inner)
		}
		return out
	case int32:
		return int(t)
	case int64:
		if t >= math.MinInt && t <= math.MaxInt {
			return int(t)
		}
		return t
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return v
	}
}
