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


// Package bulk loads many documents into a DAO concurrently.
//
// Input is read as JSON lines in MongoDB Extended JSON (relaxed or
// canonical), so {"$date": ...} and {"$numberLong": ...} values survive the
// import. Each document is inserted on an ants worker pool, retried with
// exponential backoff on transient store failures.
//
// Basic usage:
//
//	loader, err := bulk.NewLoader(db.Users(), bulk.WithPoolSize(8))
//	if err != nil {
//	    return err
//	}
//	defer loader.Release()
//
//	result, err := loader.LoadReader(ctx, file)
package bulk
