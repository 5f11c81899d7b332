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


package gradebook

import (
	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/storage"
)

// Collection names.
const (
	UsersCollection       = "users"
	CoursesCollection     = "courses"
	EnrollmentsCollection = "enrollments"
	GradesCollection      = "grades"
)

// Entity describes one collection the database manages.
type Entity struct {
	Name        string
	DefaultSort core.Sort
}

// Entities returns the managed collections in registration order.
func Entities() []Entity {
	return []Entity{
		{Name: UsersCollection, DefaultSort: core.Sort{core.Asc("name")}},
		{Name: CoursesCollection, DefaultSort: core.Sort{core.Asc("code")}},
		{Name: EnrollmentsCollection, DefaultSort: core.Sort{core.Asc("courseId"), core.Asc("userId")}},
		{Name: GradesCollection, DefaultSort: core.Sort{core.Asc("enrollmentId")}},
	}
}

// Relationships returns the parent-child links between the collections.
func Relationships() []storage.Relationship {
	return []storage.Relationship{
		{Parent: CoursesCollection, Child: EnrollmentsCollection, ForeignKey: "courseId"},
		{Parent: UsersCollection, Child: EnrollmentsCollection, ForeignKey: "userId"},
		{Parent: EnrollmentsCollection, Child: GradesCollection, ForeignKey: "enrollmentId"},
	}
}
