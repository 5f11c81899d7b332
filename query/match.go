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
	"reflect"

	"github.com/poiesic/gradebook/core"
)

// In builds a set-membership operand: {"$in": values}.
func In(values ...any) map[string]any {
	return map[string]any{core.InOperator: values}
}

// Matches reports whether doc satisfies every field rule of cond.
// An empty condition matches every document.
func Matches(doc core.Document, cond core.Condition) bool {
	for field, want := range cond {
		got, present := doc[field]
		if !matchField(got, present, want) {
			return false
		}
	}
	return true
}

func matchField(got any, present bool, want any) bool {
	if set, ok := InOperand(want); ok {
		return matchIn(got, present, set)
	}
	if wantArr, ok := AsArray(want); ok {
		gotArr, ok := AsArray(got)
		return ok && matchArrayExact(gotArr, wantArr)
	}
	if !present {
		return want == nil
	}
	if Equal(got, want) {
		return true
	}
	// A scalar matches an array field containing it.
	if gotArr, ok := AsArray(got); ok {
		return contains(gotArr, want)
	}
	return false
}

func matchIn(got any, present bool, set []any) bool {
	if !present {
		return contains(set, nil)
	}
	if gotArr, ok := AsArray(got); ok {
		for _, elem := range gotArr {
			if contains(set, elem) {
				return true
			}
		}
	}
	return contains(set, got)
}

// matchArrayExact requires equal length and every wanted element present,
// independent of order.
func matchArrayExact(got, want []any) bool {
	if len(got) != len(want) {
		return false
	}
	for _, w := range want {
		if !contains(got, w) {
			return false
		}
	}
	return true
}

func contains(haystack []any, needle any) bool {
	for _, v := range haystack {
		if Equal(v, needle) {
			return true
		}
	}
	return false
}

// InOperand returns the membership set when v is exactly {"$in": <array>}.
func InOperand(v any) ([]any, bool) {
	m, ok := asMap(v)
	if !ok || len(m) != 1 {
		return nil, false
	}
	operand, ok := m[core.InOperator]
	if !ok {
		return nil, false
	}
	return AsArray(operand)
}

// AsArray converts any slice or array value (except []byte) to []any.
func AsArray(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	if !core.IsArray(v) {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case core.Document:
		return t, true
	case core.Condition:
		return t, true
	case core.Patch:
		return t, true
	}
	return nil, false
}

// Equal is a deep equality that compares numbers by value, arrays
// element-wise in order and maps key by key.
func Equal(a, b any) bool {
	if an, ok := toFloat(a); ok {
		bn, ok := toFloat(b)
		return ok && an == bn
	}
	if aArr, ok := AsArray(a); ok {
		bArr, ok := AsArray(b)
		if !ok || len(aArr) != len(bArr) {
			return false
		}
		for i := range aArr {
			if !Equal(aArr[i], bArr[i]) {
				return false
			}
		}
		return true
	}
	if aMap, ok := asMap(a); ok {
		bMap, ok := asMap(b)
		if !ok || len(aMap) != len(bMap) {
			return false
		}
		for k, av := range aMap {
			bv, ok := bMap[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
