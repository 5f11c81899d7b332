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
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func collectionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "collection",
		Aliases:  []string{"c"},
		Usage:    "Collection name (users, courses, enrollments, grades)",
		Required: true,
	}
}

func whereFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "where",
		Aliases: []string{"w"},
		Usage:   `Condition as JSON, e.g. '{"courseId": "c1", "tag": {"$in": ["a", "b"]}}'`,
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "gradebook",
		Usage: "Document store for users, courses, enrollments and grades",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Storage backend (memory, badger, mongo); overrides GRADEBOOK_BACKEND",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory; overrides GRADEBOOK_PATH",
			},
			&cli.StringFlag{
				Name:  "mongo-uri",
				Usage: "MongoDB connection string; overrides GRADEBOOK_MONGO_URI",
			},
			&cli.StringFlag{
				Name:  "mongo-database",
				Usage: "MongoDB database name; overrides GRADEBOOK_MONGO_DATABASE",
			},
			&cli.IntFlag{
				Name:  "cache-size",
				Usage: "Per-collection read cache size; overrides GRADEBOOK_CACHE_SIZE",
			},
			&cli.IntFlag{
				Name:  "connect-attempts",
				Usage: "Maximum attempts to connect to the store",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff between connect attempts",
				Value: 500 * time.Millisecond,
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "import",
				Usage:  "Import JSON-lines documents into a collection",
				Action: importCommand,
				Flags: []cli.Flag{
					collectionFlag(),
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Input file, - for stdin",
						Value:   "-",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of concurrent inserts",
						Value: 8,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per document on transient failures",
						Value: 3,
					},
				},
			},
			{
				Name:   "find",
				Usage:  "Print matching documents as JSON lines",
				Action: findCommand,
				Flags: []cli.Flag{
					collectionFlag(),
					whereFlag(),
					&cli.StringFlag{
						Name:  "sort",
						Usage: "Comma separated sort keys, prefix - for descending, e.g. 'name,-code'",
					},
					&cli.StringFlag{
						Name:  "fields",
						Usage: "Comma separated fields to keep, or to drop when prefixed with -",
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of matches to skip",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of documents, 0 for all",
					},
				},
			},
			{
				Name:   "count",
				Usage:  "Count matching documents",
				Action: countCommand,
				Flags: []cli.Flag{
					collectionFlag(),
					whereFlag(),
				},
			},
			{
				Name:   "children",
				Usage:  "Print the documents related to a parent document",
				Action: childrenCommand,
				Flags: []cli.Flag{
					collectionFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Parent document id",
						Required: true,
					},
				},
			},
			{
				Name:   "clear",
				Usage:  "Remove every document from a collection",
				Action: clearCommand,
				Flags: []cli.Flag{
					collectionFlag(),
				},
			},
		},
	}
}
