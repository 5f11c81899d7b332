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


// Package query evaluates conditions against documents.
//
// The engine understands three field rules, combined by conjunction:
//
//	{"tag": "x"}                          equality (or membership when the document value is an array)
//	{"tag": query.In("x", "y")}           set membership
//	{"tags": []any{"x", "y"}}             exact array match: same length, every element present, any order
//
// Numbers compare by value regardless of Go type, so an int stored by the
// in-memory backend equals the int64 a store driver hands back.
//
// The same rules are evaluated by the in-memory backend directly and by the
// Badger store during scans; the MongoDB store translates them to native
// operators with identical meaning.
package query
