package bulk

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/storage"
	"github.com/poiesic/gradebook/storage/durable"
	"github.com/poiesic/gradebook/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyDAO fails the first failures inserts with a store error.
type flakyDAO struct {
	storage.DAO
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyDAO) Insert(ctx context.Context, doc core.Document) (string, error) {
	f.mu.Lock()
	f.calls++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return "", fmt.Errorf("%w: insert %s: timeout", storage.ErrStore, f.Name())
	}
	return f.DAO.Insert(ctx, doc)
}

// silentDAO accepts every insert without storing anything.
type silentDAO struct {
	storage.DAO
}

func (silentDAO) Insert(ctx context.Context, doc core.Document) (string, error) {
	return "", nil
}

func newDAO(t *testing.T) *memory.DAO {
	t.Helper()
	dao, err := memory.New("grades", nil)
	require.NoError(t, err)
	return dao
}

func TestReadRecords(t *testing.T) {
	input := strings.Join([]string{
		`{"id": "g1", "score": 90, "weight": 0.5}`,
		``,
		`{"id": "g2", "at": {"$date": "2025-01-02T03:04:05Z"}, "tags": ["a", "b"]}`,
		`not json`,
		`{"id": "g3", "nested": {"k": "v"}}`,
	}, "\n")

	records, lineErrs, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Len(t, lineErrs, 1)

	assert.Equal(t, 4, lineErrs[0].Line)
	assert.ErrorIs(t, lineErrs[0], ErrInvalidLine)

	assert.Equal(t, 1, records[0].Line)
	assert.Equal(t, 90, records[0].Doc["score"])
	assert.Equal(t, 0.5, records[0].Doc["weight"])

	assert.Equal(t, 3, records[1].Line)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), records[1].Doc["at"])
	assert.Equal(t, []any{"a", "b"}, records[1].Doc["tags"])

	assert.Equal(t, map[string]any{"k": "v"}, records[2].Doc["nested"])
}

func TestNewLoader(t *testing.T) {
	t.Run("requires a DAO", func(t *testing.T) {
		_, err := NewLoader(nil)
		assert.ErrorIs(t, err, ErrDAORequired)
	})

	t.Run("rejects empty retry policy", func(t *testing.T) {
		_, err := NewLoader(newDAO(t), WithRetryPolicy(RetryPolicy{}))
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})

	t.Run("pool size clamps", func(t *testing.T) {
		l, err := NewLoader(newDAO(t), WithPoolSize(0), WithLogger(nil))
		require.NoError(t, err)
		defer l.Release()
		assert.Equal(t, 1, l.pool.Cap())
	})
}

func TestLoader_LoadReader(t *testing.T) {
	ctx := context.Background()
	dao := newDAO(t)
	_, err := dao.Insert(ctx, core.Document{"id": "existing"})
	require.NoError(t, err)
	var progress bytes.Buffer

	l, err := NewLoader(dao, WithPoolSize(4), WithProgress(&progress, 1))
	require.NoError(t, err)
	defer l.Release()

	var lines []string
	for i := range 20 {
		lines = append(lines, fmt.Sprintf(`{"id": "g%02d", "score": %d}`, i, i))
	}
	lines = append(lines, `{"id": "existing"}`, `[1, 2]`, `{"_secret": 1}`)

	result, err := l.LoadReader(ctx, strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)

	assert.Equal(t, 20, result.Inserted)
	assert.Len(t, result.IDs, 20)
	assert.Equal(t, "g00", result.IDs[0])
	assert.Equal(t, "g19", result.IDs[19])

	require.Equal(t, 3, result.Failed())
	assert.Equal(t, 21, result.Errors[0].Line)
	assert.ErrorIs(t, result.Errors[0], storage.ErrDuplicateKey)
	assert.Equal(t, 22, result.Errors[1].Line)
	assert.ErrorIs(t, result.Errors[1], ErrInvalidLine)
	assert.Equal(t, 23, result.Errors[2].Line)
	assert.ErrorIs(t, result.Errors[2], core.ErrReservedField)

	n, err := dao.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(21), n)
	assert.Contains(t, progress.String(), "22/22")
}

func TestLoader_RetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	dao := &flakyDAO{DAO: newDAO(t), failures: 2}

	l, err := NewLoader(dao,
		WithPoolSize(1),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}),
	)
	require.NoError(t, err)
	defer l.Release()

	result, err := l.Load(ctx, []Record{{Line: 1, Doc: core.Document{"id": "g1"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Zero(t, result.Failed())
	assert.Equal(t, 3, dao.calls)
}

func TestLoader_GivesUpAfterMaxAttempts(t *testing.T) {
	dao := &flakyDAO{DAO: newDAO(t), failures: 10}

	l, err := NewLoader(dao,
		WithPoolSize(1),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}),
	)
	require.NoError(t, err)
	defer l.Release()

	result, err := l.Load(context.Background(), []Record{{Line: 7, Doc: core.Document{"id": "g1"}}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed())
	assert.Equal(t, 7, result.Errors[0].Line)
	assert.ErrorIs(t, result.Errors[0], storage.ErrStore)
	assert.Equal(t, 2, dao.calls)
}

func TestLoader_CanceledContext(t *testing.T) {
	l, err := NewLoader(newDAO(t))
	require.NoError(t, err)
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, []Record{{Line: 1, Doc: core.Document{"id": "g1"}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_Released(t *testing.T) {
	l, err := NewLoader(newDAO(t))
	require.NoError(t, err)
	l.Release()
	l.Release()

	_, err = l.Load(context.Background(), nil)
	assert.Error(t, err)
}

func TestLoad_UnconnectedDAO(t *testing.T) {
	dao, err := durable.New("grades", nil)
	require.NoError(t, err)
	loader, err := NewLoader(dao, WithPoolSize(2))
	require.NoError(t, err)
	defer loader.Release()

	_, err = loader.Load(context.Background(), []Record{{Line: 1, Doc: core.Document{"score": 1}}})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestLoad_MissingIDReported(t *testing.T) {
	loader, err := NewLoader(silentDAO{DAO: newDAO(t)}, WithPoolSize(2))
	require.NoError(t, err)
	defer loader.Release()

	records := []Record{
		{Line: 1, Doc: core.Document{"score": 1}},
		{Line: 2, Doc: core.Document{"score": 2}},
	}
	result, err := loader.Load(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 1, result.Errors[0].Line)
	assert.ErrorIs(t, result.Errors[0], ErrNotStored)
}
