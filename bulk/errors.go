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


package bulk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")

	// ErrDAORequired is returned when a loader is created without a DAO.
	ErrDAORequired = errors.New("DAO required")

	// ErrInvalidLine is returned for input lines that are not a JSON object.
	ErrInvalidLine = errors.New("invalid input line")

	// ErrNotConnected is returned when the target DAO has no store attached.
	ErrNotConnected = errors.New("collection not connected")

	// ErrNotStored is reported for a record the DAO accepted without
	// returning an id.
	ErrNotStored = errors.New("document not stored")
)

// LineError ties a failure to the 1-based input line that caused it.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
