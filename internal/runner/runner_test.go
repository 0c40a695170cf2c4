package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crud-benchmark/internal/database"
	"crud-benchmark/internal/generator"
	"crud-benchmark/internal/vocab"
)

type fakeClock struct {
	current time.Time
}

func (f *fakeClock) Now() time.Time                  { return f.current }
func (f *fakeClock) Since(t time.Time) time.Duration { return f.current.Sub(t) }
func (f *fakeClock) Advance(d time.Duration)         { f.current = f.current.Add(d) }

// fakeDB records calls and advances the clock by a fixed cost per call.
type fakeDB struct {
	clock  *fakeClock
	calls  []string
	costs  map[string]time.Duration
	failOn string
	failAt int
	seen   map[string]int
}

func newFakeDB(clock *fakeClock) *fakeDB {
	return &fakeDB{
		clock: clock,
		costs: map[string]time.Duration{
			"clear":  100 * time.Millisecond,
			"insert": 200 * time.Millisecond,
			"delete": 5 * time.Millisecond,
			"update": 7 * time.Millisecond,
			"select": 3 * time.Millisecond,
		},
		seen: map[string]int{},
	}
}

func (f *fakeDB) call(op string, arg int) error {
	f.calls = append(f.calls, fmt.Sprintf("%s(%d)", op, arg))
	f.clock.Advance(f.costs[op])
	f.seen[op]++
	if op == f.failOn && f.seen[op] == f.failAt {
		return &database.StoreError{Op: op, Err: fmt.Errorf("%w: injected", database.ErrStorage)}
	}
	return nil
}

func (f *fakeDB) Setup(context.Context, vocab.Set) error { return nil }
func (f *fakeDB) Teardown(context.Context) error         { return nil }
func (f *fakeDB) Close() error                           { return nil }

func (f *fakeDB) BulkInsert(_ context.Context, events []database.Event) error {
	return f.call("insert", len(events))
}

func (f *fakeDB) DeleteRange(_ context.Context, count int) error {
	return f.call("delete", count)
}

func (f *fakeDB) ClearAll(context.Context) error {
	return f.call("clear", 0)
}

func (f *fakeDB) Select(context.Context, database.Predicate) ([]database.Event, error) {
	return nil, f.call("select", 0)
}

func (f *fakeDB) Update(context.Context, database.Predicate, database.Change) (int64, error) {
	return 0, f.call("update", 0)
}

func newFakeRunner(t *testing.T) (*Runner, *fakeDB) {
	t.Helper()
	clock := &fakeClock{current: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)}
	db := newFakeDB(clock)
	logger, _ := logtest.NewNullLogger()
	r := New(db, generator.NewSeeded(vocab.Default(), 1), WithClock(clock), WithLogger(logger))
	return r, db
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("upsert")
	assert.Error(t, err)
}

func TestRun_TimedWindowExcludesPreparation(t *testing.T) {
	tests := []struct {
		kind  Kind
		want  time.Duration
		calls []string
	}{
		{KindInsert, 200 * time.Millisecond, []string{"insert(1)", "insert(10)"}},
		{KindDelete, 5 * time.Millisecond, []string{"clear(0)", "insert(1)", "delete(1)", "insert(10)", "delete(10)"}},
		{KindUpdate, 7 * time.Millisecond, []string{"clear(0)", "insert(1)", "update(0)", "clear(0)", "insert(10)", "update(0)"}},
		{KindQuery, 3 * time.Millisecond, []string{"clear(0)", "insert(1)", "select(0)", "clear(0)", "insert(10)", "select(0)"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			r, db := newFakeRunner(t)
			query := func(ctx context.Context) ([]database.Event, error) {
				return db.Select(ctx, database.Predicate{})
			}

			samples, err := r.Run(context.Background(), tt.kind, []int{1, 10}, query)
			require.NoError(t, err)
			require.Len(t, samples, 2)
			assert.Equal(t, 1, samples[0].Span)
			assert.Equal(t, 10, samples[1].Span)
			for _, s := range samples {
				assert.Equal(t, tt.want, s.Duration)
			}
			assert.Equal(t, tt.calls, db.calls)
		})
	}
}

func TestRun_FailureAbortsAndDiscardsSamples(t *testing.T) {
	r, db := newFakeRunner(t)
	db.failOn, db.failAt = "delete", 2

	samples, err := r.Run(context.Background(), KindDelete, []int{1, 10, 50}, nil)
	require.Error(t, err)
	assert.Nil(t, samples)
	assert.ErrorIs(t, err, database.ErrStorage)
	assert.Contains(t, err.Error(), "delete span 10")
	assert.NotContains(t, db.calls, "insert(50)", "no further spans after a failure")
}

func TestRun_SeedFailureIsReported(t *testing.T) {
	r, db := newFakeRunner(t)
	db.failOn, db.failAt = "insert", 1

	_, err := r.Run(context.Background(), KindUpdate, []int{1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update span 1: seed")
}

func TestRun_QueryFailure(t *testing.T) {
	r, _ := newFakeRunner(t)
	boom := errors.New("connection reset")

	_, err := r.Run(context.Background(), KindQuery, []int{1, 10}, func(context.Context) ([]database.Event, error) {
		return nil, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "query span 1: query")
}

func TestRun_EmptyQueryResultIsLoggedNotFailed(t *testing.T) {
	clock := &fakeClock{current: time.Now()}
	logger, hook := logtest.NewNullLogger()
	r := New(newFakeDB(clock), generator.NewSeeded(vocab.Default(), 1), WithClock(clock), WithLogger(logger))

	samples, err := r.Run(context.Background(), KindQuery, []int{1, 10}, func(context.Context) ([]database.Event, error) {
		return []database.Event{}, nil
	})
	require.NoError(t, err)
	assert.Len(t, samples, 2)

	var empty int
	for _, e := range hook.AllEntries() {
		if e.Message == "query returned no rows" {
			empty++
			assert.Equal(t, logrus.InfoLevel, e.Level)
		}
	}
	assert.Equal(t, 2, empty)
}

func TestRun_RejectsBadInput(t *testing.T) {
	r, db := newFakeRunner(t)
	ctx := context.Background()

	_, err := r.Run(ctx, KindQuery, []int{1}, nil)
	assert.Error(t, err)

	_, err = r.Run(ctx, KindInsert, nil, nil)
	assert.Error(t, err)

	_, err = r.Run(ctx, KindInsert, []int{10, 1}, nil)
	assert.Error(t, err)

	_, err = r.Run(ctx, Kind("upsert"), []int{1}, nil)
	assert.Error(t, err)

	assert.Empty(t, db.calls)
}

func openSQLite(t *testing.T) database.DatabaseDriver {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "runner.db"), database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Setup(ctx, vocab.Default()))
	return db
}

func newSQLiteRunner(t *testing.T) (*Runner, database.DatabaseDriver) {
	db := openSQLite(t)
	logger, _ := logtest.NewNullLogger()
	return New(db, generator.NewSeeded(vocab.Default(), 11), WithLogger(logger)), db
}

func TestRun_DeleteLeavesSeededRangeEmpty(t *testing.T) {
	r, db := newSQLiteRunner(t)
	ctx := context.Background()

	samples, err := r.Run(ctx, KindDelete, []int{1, 10}, nil)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	remaining, err := db.Select(ctx, database.Predicate{})
	require.NoError(t, err)
	for _, e := range remaining {
		assert.Greater(t, e.ID, int64(10), "row %d lies in the deleted range", e.ID)
	}
}

func TestRun_QueryWithEmptyResultCompletes(t *testing.T) {
	r, _ := newSQLiteRunner(t)

	samples, err := r.Run(context.Background(), KindQuery, []int{1, 10, 50}, func(context.Context) ([]database.Event, error) {
		return []database.Event{}, nil
	})
	require.NoError(t, err)
	require.Len(t, samples, 3)
	for i, span := range []int{1, 10, 50} {
		assert.Equal(t, span, samples[i].Span)
		assert.GreaterOrEqual(t, samples[i].Duration, time.Duration(0))
	}
}

func TestRun_InsertAccumulates(t *testing.T) {
	r, db := newSQLiteRunner(t)
	ctx := context.Background()

	_, err := r.Run(ctx, KindInsert, []int{1, 5, 20}, nil)
	require.NoError(t, err)

	rows, err := db.Select(ctx, database.Predicate{})
	require.NoError(t, err)
	assert.Len(t, rows, 26)
}

func TestRun_UpdateRewritesSeededRows(t *testing.T) {
	r, db := newSQLiteRunner(t)
	ctx := context.Background()

	_, err := r.Run(ctx, KindUpdate, []int{3, 7}, nil)
	require.NoError(t, err)

	rows, err := db.Select(ctx, database.Predicate{})
	require.NoError(t, err)
	require.Len(t, rows, 7, "update clears before seeding each span")
	for _, e := range rows {
		assert.Equal(t, DefaultUpdate.Change.SeverityID, e.SeverityID)
	}
}

func TestRun_NamedQueries(t *testing.T) {
	r, db := newSQLiteRunner(t)
	queries := Queries(db, vocab.Default())
	assert.Equal(t, []string{"all", "join", "simple"}, QueryNames(queries))

	for _, name := range QueryNames(queries) {
		samples, err := r.Run(context.Background(), KindQuery, []int{1, 25}, queries[name])
		require.NoError(t, err, name)
		assert.Len(t, samples, 2, name)
	}
}

func TestQueryPredicates(t *testing.T) {
	preds := QueryPredicates(vocab.Default())
	assert.Equal(t, database.Predicate{}, preds["all"])
	assert.Equal(t, database.Predicate{SeverityID: 4}, preds["simple"])
	assert.Equal(t, database.Predicate{Country: "Germany"}, preds["join"])
}
