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
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/gradebook"
	"github.com/poiesic/gradebook/bulk"
	"github.com/poiesic/gradebook/storage"
)

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	errWriter := c.App.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(errWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

// configFromFlags loads the environment configuration and lets explicitly
// set flags override it.
func configFromFlags(c *cli.Context) (*gradebook.Config, error) {
	var opts []gradebook.ConfigOption
	if c.IsSet("backend") {
		opts = append(opts, gradebook.WithBackend(gradebook.Backend(c.String("backend"))))
	}
	if c.IsSet("db") {
		opts = append(opts, gradebook.WithPath(c.String("db")))
	}
	if c.IsSet("mongo-uri") {
		opts = append(opts, gradebook.WithMongoURI(c.String("mongo-uri")))
	}
	if c.IsSet("mongo-database") {
		opts = append(opts, gradebook.WithMongoDatabase(c.String("mongo-database")))
	}
	if c.IsSet("cache-size") {
		opts = append(opts, gradebook.WithCacheSize(c.Int("cache-size")))
	}

	cfg, err := gradebook.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openDatabase builds the database and connects it, retrying transient
// connection failures with exponential backoff.
func openDatabase(c *cli.Context) (*gradebook.Database, error) {
	cfg, err := configFromFlags(c)
	if err != nil {
		return nil, err
	}
	db, err := gradebook.NewDatabase(cfg, gradebook.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	policy := bulk.DefaultRetryPolicy()
	policy.MaxAttempts = c.Int("connect-attempts")
	policy.BaseDelay = c.Duration("retry-delay")
	if err := bulk.RetryWithBackoff(c.Context, policy, db.Connect); err != nil {
		return nil, fmt.Errorf("failed to connect to %s store: %w", cfg.Backend, err)
	}
	return db, nil
}

// withCollection opens the database, resolves --collection and runs fn.
func withCollection(c *cli.Context, fn func(ctx context.Context, db *gradebook.Database, dao storage.DAO) error) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			slog.Error("error closing database", "err", err)
		}
	}()

	name := c.String("collection")
	dao, ok := db.DAO(name)
	if !ok {
		return fmt.Errorf("unknown collection %q: must be one of %s", name, strings.Join(db.Registry().Names(), ", "))
	}
	return fn(c.Context, db, dao)
}

func importCommand(c *cli.Context) error {
	if c.Int("report-interval") <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	var in io.Reader = os.Stdin
	if path := c.String("file"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	} else if c.App.Reader != nil {
		in = c.App.Reader
	}

	return withCollection(c, func(ctx context.Context, _ *gradebook.Database, dao storage.DAO) error {
		policy := bulk.DefaultRetryPolicy()
		policy.MaxAttempts = c.Int("max-retries")

		loader, err := bulk.NewLoader(dao,
			bulk.WithPoolSize(c.Int("pool-size")),
			bulk.WithRetryPolicy(policy),
			bulk.WithProgress(c.App.ErrWriter, c.Int("report-interval")),
			bulk.WithLogger(slog.Default()),
		)
		if err != nil {
			return fmt.Errorf("failed to create loader: %w", err)
		}
		defer loader.Release()

		result, err := loader.LoadReader(ctx, in)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		for _, lineErr := range result.Errors {
			fmt.Fprintln(c.App.ErrWriter, lineErr)
		}
		fmt.Fprintf(c.App.Writer, "imported %d, failed %d\n", result.Inserted, result.Failed())
		return nil
	})
}

func findCommand(c *cli.Context) error {
	cond, err := parseCondition(c.String("where"))
	if err != nil {
		return err
	}
	sort, err := parseSort(c.String("sort"))
	if err != nil {
		return err
	}
	proj, err := parseFields(c.String("fields"))
	if err != nil {
		return err
	}

	return withCollection(c, func(ctx context.Context, _ *gradebook.Database, dao storage.DAO) error {
		opts := []storage.FindOption{
			storage.WithProjection(proj),
			storage.WithOffset(c.Int("offset")),
			storage.WithLimit(c.Int("limit")),
		}
		if len(sort) > 0 {
			opts = append(opts, storage.WithSort(sort...))
		}
		docs, err := dao.Find(ctx, cond, opts...)
		if err != nil {
			return fmt.Errorf("find failed: %w", err)
		}
		for _, doc := range docs {
			line, err := encodeDocument(doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, string(line))
		}
		return nil
	})
}

func countCommand(c *cli.Context) error {
	cond, err := parseCondition(c.String("where"))
	if err != nil {
		return err
	}
	return withCollection(c, func(ctx context.Context, _ *gradebook.Database, dao storage.DAO) error {
		n, err := dao.Count(ctx, cond)
		if err != nil {
			return fmt.Errorf("count failed: %w", err)
		}
		fmt.Fprintln(c.App.Writer, n)
		return nil
	})
}

func childrenCommand(c *cli.Context) error {
	return withCollection(c, func(ctx context.Context, db *gradebook.Database, dao storage.DAO) error {
		children, err := db.Registry().FindChildren(ctx, dao.Name(), c.String("id"))
		if err != nil {
			return fmt.Errorf("children failed: %w", err)
		}
		names := make([]string, 0, len(children))
		for name := range children {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			for _, doc := range children[name] {
				line, err := encodeDocument(doc)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%s\t%s\n", name, line)
			}
		}
		return nil
	})
}

func clearCommand(c *cli.Context) error {
	return withCollection(c, func(ctx context.Context, _ *gradebook.Database, dao storage.DAO) error {
		if err := dao.Clear(ctx); err != nil {
			return fmt.Errorf("clear failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "cleared %s\n", dao.Name())
		return nil
	})
}
