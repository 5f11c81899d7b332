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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidCondition indicates a Condition failed validation.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrInvalidPatch indicates a Patch failed validation.
	ErrInvalidPatch = errors.New("invalid patch")

	// ErrInvalidID indicates an id that is not a non-empty string.
	ErrInvalidID = errors.New("id must be a non-empty string")

	// ErrReservedField indicates a field name using the storage-internal prefix.
	ErrReservedField = errors.New("field name is reserved")

	// ErrInvalidOperator indicates an unsupported or malformed condition operator.
	ErrInvalidOperator = errors.New("invalid operator")
)
