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


package query

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/gradebook/core"
)

// FilterAndPaginate returns the documents matching cond, skipping the first
// offset matches and emitting at most limit results (limit <= 0 means no
// limit), in encounter order. It never sorts.
// An offset at or beyond the number of candidates yields an empty result.
func FilterAndPaginate(docs []core.Document, cond core.Condition, offset, limit int) []core.Document {
	result := []core.Document{}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return result
	}
	skipped := 0
	for _, doc := range docs {
		if limit > 0 && len(result) >= limit {
			break
		}
		if !Matches(doc, cond) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, doc)
	}
	return result
}

// Paginate applies offset and limit to an already filtered sequence.
func Paginate(docs []core.Document, offset, limit int) []core.Document {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return []core.Document{}
	}
	docs = docs[offset:]
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}

// SortDocuments sorts docs in place by the given keys. The sort is stable so
// documents with equal keys keep their encounter order.
func SortDocuments(docs []core.Document, sort core.Sort) {
	if len(sort) == 0 {
		return
	}
	slices.SortStableFunc(docs, func(a, b core.Document) int {
		for _, key := range sort {
			c := Compare(a[key.Field], b[key.Field])
			if c == 0 {
				continue
			}
			if key.Direction == core.Descending {
				return -c
			}
			return c
		}
		return 0
	})
}

// Type ranks follow MongoDB's comparison order so both stores sort alike.
const (
	rankNull = iota
	rankNumber
	rankString
	rankObject
	rankArray
	rankBool
	rankTime
	rankOther
)

func rank(v any) int {
	if v == nil {
		return rankNull
	}
	if _, ok := toFloat(v); ok {
		return rankNumber
	}
	switch v.(type) {
	case string:
		return rankString
	case bool:
		return rankBool
	case time.Time:
		return rankTime
	}
	if _, ok := asMap(v); ok {
		return rankObject
	}
	if _, ok := AsArray(v); ok {
		return rankArray
	}
	return rankOther
}

// Compare orders two field values: null < numbers < strings < objects <
// arrays < booleans < times. Missing fields compare as null.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case rankNumber:
		an, _ := toFloat(a)
		bn, _ := toFloat(b)
		return cmp.Compare(an, bn)
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time))
	case rankArray:
		aArr, _ := AsArray(a)
		bArr, _ := AsArray(b)
		for i := 0; i < len(aArr) && i < len(bArr); i++ {
			if c := Compare(aArr[i], bArr[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(aArr), len(bArr))
	}
	return 0
}

// Project returns a copy of doc restricted by proj.
//
// An empty projection keeps every field. When any field is true the
// projection is inclusive and the id is kept unless explicitly false.
// Otherwise the fields marked false are removed.
func Project(doc core.Document, proj core.Projection) core.Document {
	if doc == nil {
		return nil
	}
	if len(proj) == 0 {
		return core.Clone(doc)
	}

	inclusive := false
	for _, include := range proj {
		if include {
			inclusive = true
			break
		}
	}

	out := core.Document{}
	if inclusive {
		for field, include := range proj {
			if v, ok := doc[field]; ok && include {
				out[field] = v
			}
		}
		if keepID, set := proj[core.IDField]; !set || keepID {
			if id, ok := doc[core.IDField]; ok {
				out[core.IDField] = id
			}
		}
		return core.Clone(out)
	}

	for field, v := range doc {
		if _, excluded := proj[field]; !excluded {
			out[field] = v
		}
	}
	return core.Clone(out)
}
