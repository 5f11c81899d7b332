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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/storage"
)

const maxLineSize = 4 * 1024 * 1024

// Record is one parsed input line.
type Record struct {
	Line int
	Doc  core.Document
}

// Result summarizes a load.
type Result struct {
	// Inserted counts documents stored.
	Inserted int
	// IDs holds the stored ids in input order.
	IDs []string
	// Errors holds per-line failures sorted by line.
	Errors []*LineError
}

// Failed counts lines that were not stored.
func (r *Result) Failed() int {
	return len(r.Errors)
}

// Loader inserts documents into one DAO on a bounded worker pool.
type Loader struct {
	dao            storage.DAO
	pool           *ants.Pool
	retry          RetryPolicy
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithPoolSize sets the number of concurrent inserts.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(l *Loader) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if l.pool != nil {
			l.pool.Release()
		}
		l.pool = pool
		return nil
	}
}

// WithRetryPolicy sets how failed inserts are retried.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(l *Loader) error {
		if policy.MaxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		l.retry = policy
		return nil
	}
}

// WithProgress prints progress to w every interval documents.
func WithProgress(w io.Writer, interval int) Option {
	return func(l *Loader) error {
		l.progress = w
		l.reportInterval = interval
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// NewLoader creates a loader for dao. Call Release when done.
func NewLoader(dao storage.DAO, opts ...Option) (*Loader, error) {
	if dao == nil {
		return nil, ErrDAORequired
	}

	l := &Loader{
		dao:    dao,
		retry:  DefaultRetryPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			l.Release()
			return nil, err
		}
	}

	if l.pool == nil {
		pool, err := ants.NewPool(max(runtime.NumCPU(), 1))
		if err != nil {
			return nil, err
		}
		l.pool = pool
	}
	l.logger = l.logger.With("component", "bulk", "collection", dao.Name())
	return l, nil
}

// Release stops the worker pool.
func (l *Loader) Release() {
	if l.pool != nil {
		l.pool.Release()
		l.pool = nil
	}
}

// ReadRecords parses JSON lines from r. Blank lines are skipped. Lines that
// do not hold a JSON object are reported as LineErrors and do not stop the
// read; only I/O failures return an error.
func ReadRecords(r io.Reader) ([]Record, []*LineError, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []Record
	var lineErrs []*LineError
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var raw bson.M
		if err := bson.UnmarshalExtJSON(text, false, &raw); err != nil {
			lineErrs = append(lineErrs, &LineError{Line: line, Err: fmt.Errorf("%w: %w", ErrInvalidLine, err)})
			continue
		}
		records = append(records, Record{Line: line, Doc: storage.DocumentFromBSON(raw)})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read input: %w", err)
	}
	return records, lineErrs, nil
}

// LoadReader reads JSON lines from r and inserts them.
func (l *Loader) LoadReader(ctx context.Context, r io.Reader) (*Result, error) {
	records, lineErrs, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}
	result, err := l.Load(ctx, records)
	if err != nil {
		return nil, err
	}
	result.Errors = append(result.Errors, lineErrs...)
	slices.SortFunc(result.Errors, func(a, b *LineError) int { return a.Line - b.Line })
	return result, nil
}

// Load inserts records concurrently. Insert failures are collected in the
// result; the returned error is only set when ctx ends first or the DAO has
// no store attached.
func (l *Loader) Load(ctx context.Context, records []Record) (*Result, error) {
	if l.pool == nil {
		return nil, ants.ErrPoolClosed
	}
	if b, ok := l.dao.(storage.Binder); ok && !b.IsBound() {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, l.dao.Name())
	}

	var tracker *ProgressTracker
	if l.progress != nil {
		tracker = NewProgressTracker(l.progress, len(records), l.reportInterval)
		tracker.Start()
	}

	ids := make([]string, len(records))
	var (
		mu   sync.Mutex
		errs []*LineError
		wg   sync.WaitGroup
	)
	fail := func(line int, err error) {
		mu.Lock()
		errs = append(errs, &LineError{Line: line, Err: err})
		mu.Unlock()
		if tracker != nil {
			tracker.Record(true)
		}
	}

	for i, rec := range records {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := l.pool.Submit(func() {
			defer wg.Done()
			var id string
			err := RetryWithBackoff(ctx, l.retry, func(ctx context.Context) error {
				var insertErr error
				id, insertErr = l.dao.Insert(ctx, rec.Doc)
				return insertErr
			})
			if err == nil && id == "" {
				err = ErrNotStored
			}
			if err != nil {
				l.logger.Debug("insert failed", "line", rec.Line, "err", err)
				fail(rec.Line, err)
				return
			}
			ids[i] = id
			if tracker != nil {
				tracker.Record(false)
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(rec.Line, submitErr)
		}
	}
	wg.Wait()
	if tracker != nil {
		tracker.Finish()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Errors: errs}
	for _, id := range ids {
		if id != "" {
			result.IDs = append(result.IDs, id)
		}
	}
	result.Inserted = len(result.IDs)
	slices.SortFunc(result.Errors, func(a, b *LineError) int { return a.Line - b.Line })
	l.logger.Info("load finished", "inserted", result.Inserted, "failed", result.Failed())
	return result, nil
}
