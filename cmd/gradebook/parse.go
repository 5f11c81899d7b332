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


package main

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/storage"
)

// parseCondition reads a condition written as (extended) JSON.
func parseCondition(s string) (core.Condition, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Condition{}, nil
	}
	var raw bson.M
	if err := bson.UnmarshalExtJSON([]byte(s), false, &raw); err != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", s, err)
	}
	cond := core.Condition(storage.DocumentFromBSON(raw))
	if err := core.ValidateCondition(cond); err != nil {
		return nil, err
	}
	return cond, nil
}

// parseSort reads "name,-code" as name ascending then code descending.
func parseSort(s string) (core.Sort, error) {
	var sort core.Sort
	for _, part := range splitList(s) {
		field, desc := strings.CutPrefix(part, "-")
		field = strings.TrimPrefix(field, "+")
		if field == "" {
			return nil, fmt.Errorf("invalid sort key %q", part)
		}
		if desc {
			sort = append(sort, core.Desc(field))
		} else {
			sort = append(sort, core.Asc(field))
		}
	}
	return sort, nil
}

// parseFields reads "name,code" as an inclusive projection and "-tags,-notes"
// as an exclusive one. Mixing the two is only allowed for "-id".
func parseFields(s string) (core.Projection, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, nil
	}
	proj := core.Projection{}
	inclusive, exclusive := false, false
	for _, part := range parts {
		field, drop := strings.CutPrefix(part, "-")
		if field == "" {
			return nil, fmt.Errorf("invalid field %q", part)
		}
		proj[field] = !drop
		switch {
		case !drop:
			inclusive = true
		case field != core.IDField:
			exclusive = true
		}
	}
	if inclusive && exclusive {
		return nil, fmt.Errorf("fields %q mix kept and dropped fields", s)
	}
	return proj, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// encodeDocument renders doc as relaxed extended JSON with the id first and
// the remaining top-level fields in name order.
func encodeDocument(doc core.Document) ([]byte, error) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		switch {
		case a == core.IDField:
			return -1
		case b == core.IDField:
			return 1
		}
		return cmp.Compare(a, b)
	})

	ordered := make(bson.D, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, bson.E{Key: k, Value: doc[k]})
	}
	out, err := bson.MarshalExtJSON(ordered, false, false)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", doc.ID(), err)
	}
	return out, nil
}
