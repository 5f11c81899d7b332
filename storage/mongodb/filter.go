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
	"slices"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/query"
)

// internalIDField is MongoDB's own primary key. It is hidden from callers
// and used only as the final sort key so results follow insertion order.
const internalIDField = "_id"

// FilterFromCondition translates a condition into a MongoDB filter with the
// same meaning as the query engine:
//
//	scalar          -> {field: v}           (also matches arrays containing v)
//	{"$in": [...]}  -> {field: {$in: [...]}}
//	[]              -> {field: {$size: 0}}
//	[a, b]          -> {field: {$size: 2, $all: [a, b]}}
//
// Keys are emitted in sorted order so the filter is deterministic.
func FilterFromCondition(cond core.Condition) bson.D {
	fields := make([]string, 0, len(cond))
	for field := range cond {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	filter := bson.D{}
	for _, field := range fields {
		filter = append(filter, bson.E{Key: field, Value: fieldFilter(cond[field])})
	}
	return filter
}

func fieldFilter(want any) any {
	if set, ok := query.InOperand(want); ok {
		return bson.D{{Key: "$in", Value: set}}
	}
	if arr, ok := query.AsArray(want); ok {
		if len(arr) == 0 {
			return bson.D{{Key: "$size", Value: 0}}
		}
		return bson.D{
			{Key: "$size", Value: len(arr)},
			{Key: "$all", Value: arr},
		}
	}
	if doc, ok := want.(core.Document); ok {
		return map[string]any(doc)
	}
	return want
}

// SortFromKeys translates a sort into a MongoDB sort document, with _id as
// the final tie-breaker.
func SortFromKeys(sort core.Sort) bson.D {
	out := make(bson.D, 0, len(sort)+1)
	for _, key := range sort {
		dir := 1
		if key.Direction == core.Descending {
			dir = -1
		}
		out = append(out, bson.E{Key: key.Field, Value: dir})
	}
	return append(out, bson.E{Key: internalIDField, Value: 1})
}

// SetFromPatch builds the $set update for a patch.
func SetFromPatch(patch core.Patch) bson.D {
	return bson.D{{Key: "$set", Value: map[string]any(patch)}}
}
