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
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/poiesic/gradebook"
	"github.com/poiesic/gradebook/bulk"
	"github.com/poiesic/gradebook/core"
)

var firstNames = []string{
	"Ada", "Alan", "Barbara", "Claude", "Dennis", "Donald", "Edsger", "Frances",
	"Grace", "Hedy", "John", "Ken", "Leslie", "Margaret", "Niklaus", "Radia",
	"Shafi", "Tim", "Tony", "Whitfield",
}

var lastNames = []string{
	"Allen", "Backus", "Codd", "Dijkstra", "Engelbart", "Floyd", "Goldwasser",
	"Hamilton", "Hoare", "Kay", "Knuth", "Lamport", "Liskov", "Perlman",
	"Ritchie", "Thompson", "Wirth",
}

var subjects = []string{
	"Algorithms", "Compilers", "Databases", "Distributed Systems", "Graphics",
	"Networks", "Operating Systems", "Programming Languages", "Security",
	"Theory of Computation",
}

var (
	users   = flag.Int("users", 50, "number of users to create")
	courses = flag.Int("courses", 8, "number of courses to create")
	seedVal = flag.Uint64("seed", 1, "random seed")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// dataset holds generated records per collection.
type dataset map[string][]bulk.Record

// buildDataset generates linked sample data: every user takes one to three
// courses and every enrollment receives one to four grades.
func buildDataset(nUsers, nCourses int, r *rand.Rand) dataset {
	data := dataset{}
	add := func(collection string, doc core.Document) {
		recs := data[collection]
		data[collection] = append(recs, bulk.Record{Line: len(recs) + 1, Doc: doc})
	}

	for i := range nCourses {
		add(gradebook.CoursesCollection, core.Document{
			"id":      fmt.Sprintf("c%03d", i+1),
			"code":    fmt.Sprintf("CS%d", 101+i*10),
			"title":   subjects[i%len(subjects)],
			"credits": 3 + r.IntN(2),
		})
	}
	addUsers(add, nUsers, r)
	if nCourses == 0 {
		return data
	}

	enrollment, grade := 0, 0
	for u := range nUsers {
		taken := r.Perm(nCourses)[:min(1+r.IntN(3), nCourses)]
		for _, c := range taken {
			enrollment++
			enrollmentID := fmt.Sprintf("e%04d", enrollment)
			add(gradebook.EnrollmentsCollection, core.Document{
				"id":       enrollmentID,
				"userId":   fmt.Sprintf("u%03d", u+1),
				"courseId": fmt.Sprintf("c%03d", c+1),
				"term":     []string{"fall", "spring"}[r.IntN(2)],
			})
			for range 1 + r.IntN(4) {
				grade++
				add(gradebook.GradesCollection, core.Document{
					"id":           fmt.Sprintf("g%05d", grade),
					"enrollmentId": enrollmentID,
					"score":        50 + r.IntN(51),
				})
			}
		}
	}
	return data
}

func addUsers(add func(string, core.Document), n int, r *rand.Rand) {
	for i := range n {
		first := firstNames[r.IntN(len(firstNames))]
		last := lastNames[r.IntN(len(lastNames))]
		add(gradebook.UsersCollection, core.Document{
			"id":    fmt.Sprintf("u%03d", i+1),
			"name":  first + " " + last,
			"email": fmt.Sprintf("user%03d@example.edu", i+1),
		})
	}
}

// seed loads data in dependency order: parents before children.
func seed(ctx context.Context, db *gradebook.Database, data dataset) error {
	for _, entity := range []string{
		gradebook.UsersCollection,
		gradebook.CoursesCollection,
		gradebook.EnrollmentsCollection,
		gradebook.GradesCollection,
	} {
		dao, _ := db.DAO(entity)
		loader, err := bulk.NewLoader(dao)
		if err != nil {
			return err
		}
		result, err := loader.Load(ctx, data[entity])
		loader.Release()
		if err != nil {
			return err
		}
		slog.Info("seeded collection", "collection", entity, "inserted", result.Inserted, "failed", result.Failed())
	}
	return nil
}

func main() {
	flag.Parse()

	cfg, err := gradebook.LoadConfig()
	if err != nil {
		panic(err)
	}
	db, err := gradebook.NewDatabase(cfg)
	if err != nil {
		panic(err)
	}
	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		panic(err)
	}
	defer db.Close(ctx)

	r := rand.New(rand.NewPCG(*seedVal, *seedVal))
	if err := seed(ctx, db, buildDataset(*users, *courses, r)); err != nil {
		panic(err)
	}
}
