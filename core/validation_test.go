package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr error
	}{
		{name: "valid with id", doc: Document{"id": "a", "tag": "x"}},
		{name: "valid without id", doc: Document{"tag": "x"}},
		{name: "valid empty", doc: Document{}},
		{name: "nil document", doc: nil, wantErr: ErrInvalidDocument},
		{name: "empty id", doc: Document{"id": ""}, wantErr: ErrInvalidID},
		{name: "numeric id", doc: Document{"id": 12}, wantErr: ErrInvalidID},
		{name: "reserved field", doc: Document{"_id": "x"}, wantErr: ErrReservedField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("ValidateDocument() error = %v, should wrap ErrInvalidDocument", err)
			}
		})
	}
}

func TestValidatePatch(t *testing.T) {
	tests := []struct {
		name    string
		patch   Patch
		wantErr error
	}{
		{name: "nil patch", patch: nil},
		{name: "field set", patch: Patch{"tag": "z"}},
		{name: "relabel id", patch: Patch{"id": "new"}},
		{name: "empty id", patch: Patch{"id": ""}, wantErr: ErrInvalidID},
		{name: "reserved field", patch: Patch{"_seq": 1}, wantErr: ErrReservedField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePatch(tt.patch)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePatch() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrInvalidPatch) {
				t.Errorf("ValidatePatch() error = %v, want %v wrapped in ErrInvalidPatch", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCondition(t *testing.T) {
	tests := []struct {
		name    string
		cond    Condition
		wantErr bool
	}{
		{name: "nil", cond: nil},
		{name: "equality", cond: Condition{"tag": "x"}},
		{name: "in", cond: Condition{"tag": map[string]any{"$in": []any{"x", "y"}}}},
		{name: "in with typed slice", cond: Condition{"tag": map[string]any{"$in": []string{"x"}}}},
		{name: "array exact", cond: Condition{"tags": []any{"x", "y"}}},
		{name: "top-level operator", cond: Condition{"$or": []any{}}, wantErr: true},
		{name: "unknown operator", cond: Condition{"n": map[string]any{"$gt": 3}}, wantErr: true},
		{name: "in with scalar operand", cond: Condition{"tag": map[string]any{"$in": "x"}}, wantErr: true},
		{name: "in with extra key", cond: Condition{"tag": map[string]any{"$in": []any{"x"}, "$nin": []any{}}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCondition(tt.cond)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCondition) {
					t.Errorf("ValidateCondition() error = %v, want ErrInvalidCondition", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateCondition() error = %v, want nil", err)
			}
		})
	}
}

func TestIsArray(t *testing.T) {
	if !IsArray([]any{1}) || !IsArray([]string{}) || !IsArray([2]int{}) {
		t.Error("IsArray() should accept slices and arrays")
	}
	if IsArray("x") || IsArray(nil) || IsArray([]byte("x")) || IsArray(map[string]any{}) {
		t.Error("IsArray() should reject scalars, nil, []byte and maps")
	}
}
