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


package core

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidateDocument validates a Document before it is written.
//
// Validation rules:
//   - Document must not be nil
//   - "id", when present, must be a non-empty string
//   - Field names must not use the storage-internal "_" prefix
//
// NOT validated:
//   - Missing id (backends assign one on insert)
//   - Field values (no schema)
func ValidateDocument(doc Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if err := validateID(doc[IDField], hasKey(doc, IDField)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	for name := range doc {
		if IsInternalField(name) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidDocument, ErrReservedField, name)
		}
	}
	return nil
}

// ValidatePatch validates a Patch. A nil or empty patch is valid and sets nothing.
func ValidatePatch(patch Patch) error {
	if err := validateID(patch[IDField], hasKey(patch, IDField)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	for name := range patch {
		if IsInternalField(name) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidPatch, ErrReservedField, name)
		}
	}
	return nil
}

// ValidateCondition validates a Condition. A nil or empty condition matches
// every document and is valid.
//
// Validation rules:
//   - Field names must not start with "$"
//   - Map values must be exactly {"$in": <array>}
func ValidateCondition(cond Condition) error {
	for field, want := range cond {
		if strings.HasPrefix(field, "$") {
			return fmt.Errorf("%w: %w: top-level %q", ErrInvalidCondition, ErrInvalidOperator, field)
		}
		m, ok := asStringMap(want)
		if !ok {
			continue
		}
		operand, ok := m[InOperator]
		if len(m) != 1 || !ok {
			return fmt.Errorf("%w: %w: field %q only supports %s", ErrInvalidCondition, ErrInvalidOperator, field, InOperator)
		}
		if !IsArray(operand) {
			return fmt.Errorf("%w: %w: %s operand for %q must be an array", ErrInvalidCondition, ErrInvalidOperator, InOperator, field)
		}
	}
	return nil
}

// IsArray reports whether v is a slice or array value, excluding []byte.
func IsArray(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	kind := reflect.TypeOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func validateID(v any, present bool) error {
	if !present {
		return nil
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return ErrInvalidID
	}
	return nil
}

func hasKey[M ~map[string]V, V any](m M, key string) bool {
	_, ok := m[key]
	return ok
}

func asStringMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Document:
		return t, true
	case Condition:
		return t, true
	case Patch:
		return t, true
	}
	return nil, false
}
