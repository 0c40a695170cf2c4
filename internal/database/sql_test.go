package database

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crud-benchmark/internal/config"
	"crud-benchmark/internal/vocab"
)

func openTestSQLite(t *testing.T, opts Options) *SQLDriver {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "bench.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Setup(ctx, vocab.Default()))
	return db
}

func makeEvents(n int, sourceID int) []Event {
	base := time.Date(2024, 10, 5, 12, 0, 0, 0, time.UTC)
	events := make([]Event, n)
	for i := range events {
		events[i] = Event{
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Message:     "event message",
			SeverityID:  1 + i%5,
			EventTypeID: 1,
			SourceID:    sourceID,
		}
	}
	return events
}

func ids(events []Event) []int64 {
	out := make([]int64, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestSQLite_BulkInsertAndSelect(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{})

	in := makeEvents(3, 1)
	require.NoError(t, db.BulkInsert(ctx, in))

	got, err := db.Select(ctx, Predicate{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, ids(got))
	for i, e := range got {
		assert.True(t, e.Timestamp.Equal(in[i].Timestamp), "timestamp %d: %v != %v", i, e.Timestamp, in[i].Timestamp)
		assert.Equal(t, in[i].Message, e.Message)
		assert.Equal(t, in[i].SeverityID, e.SeverityID)
		assert.Equal(t, in[i].SourceID, e.SourceID)
	}
}

func TestSQLite_BulkInsertEmpty(t *testing.T) {
	db := openTestSQLite(t, Options{})
	require.NoError(t, db.BulkInsert(context.Background(), nil))
}

func TestSQLite_BulkInsertRejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{ChunkSize: 1})

	events := makeEvents(4, 1)
	events[3].Message = strings.Repeat("x", 300)

	err := db.BulkInsert(ctx, events)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "bulk insert", se.Op)

	got, err := db.Select(ctx, Predicate{})
	require.NoError(t, err)
	assert.Empty(t, got, "no chunk may be submitted when any record is invalid")
}

func TestSQLite_LaterChunkFailureKeepsEarlierChunks(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{ChunkSize: 2})

	_, err := db.db.ExecContext(ctx, `
		CREATE TRIGGER reject_marker BEFORE INSERT ON events
		WHEN NEW.message = 'reject me'
		BEGIN
			SELECT RAISE(ABORT, 'rejected by trigger');
		END`)
	require.NoError(t, err)

	events := makeEvents(4, 1)
	events[3].Message = "reject me"

	err = db.BulkInsert(ctx, events)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorage), "got %v", err)

	got, err := db.Select(ctx, Predicate{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(got), "the first chunk stays committed")
}

func TestSQLite_SingleOversizedMessage(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{})

	events := makeEvents(1, 1)
	events[0].Message = strings.Repeat("m", 300)
	events[0].SeverityID = 3

	assert.ErrorIs(t, db.BulkInsert(ctx, events), ErrValidation)

	got, err := db.Select(ctx, Predicate{SeverityID: 3})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_MessageLimitCountsCharacters(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{})

	events := makeEvents(1, 1)
	events[0].Message = strings.Repeat("ü", MaxMessageLength)
	require.NoError(t, db.BulkInsert(ctx, events))
}

func TestSQLite_BulkInsertChunks(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{ChunkSize: 3})

	require.NoError(t, db.BulkInsert(ctx, makeEvents(10, 2)))

	got, err := db.Select(ctx, Predicate{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, ids(got))
}

func TestSQLite_StatementSplitWithinChunk(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{})
	n := sqliteDialect.maxParams/insertColumns + 7

	require.NoError(t, db.BulkInsert(ctx, makeEvents(n, 1)))

	got, err := db.Select(ctx, Predicate{})
	require.NoError(t, err)
	assert.Len(t, got, n)
}

func TestSQLite_DeleteRange(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{})
	require.NoError(t, db.BulkInsert(ctx, makeEvents(10, 1)))

	require.NoError(t, db.DeleteRange(ctx, 4))

	got, err := db.Select(ctx, Predicate{})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 7, 8, 9, 10}, ids(got))

	assert.ErrorIs(t, db.DeleteRange(ctx, -1), ErrValidation)
}

// After ClearAll the next batch starts at identity 1 again, which is what
// DeleteRange relies on.
func TestSQLite_ClearAllRestartsIdentity(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{})
	require.NoError(t, db.BulkInsert(ctx, makeEvents(5, 1)))
	require.NoError(t, db.ClearAll(ctx))

	got, err := db.Select(ctx, Predicate{})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, db.BulkInsert(ctx, makeEvents(2, 1)))
	got, err = db.Select(ctx, Predicate{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(got))
}

func TestSQLite_SelectByCountryJoinsSources(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{})

	// Default sources: 1 Berlin, 2 Munich, 3 Vienna, 4 Zurich, 5 Berlin, 6 Paris.
	var events []Event
	for src := 1; src <= 6; src++ {
		events = append(events, makeEvents(1, src)...)
	}
	require.NoError(t, db.BulkInsert(ctx, events))

	got, err := db.Select(ctx, Predicate{Country: "Germany"})
	require.NoError(t, err)
	var sources []int
	for _, e := range got {
		sources = append(sources, e.SourceID)
	}
	assert.Equal(t, []int{1, 2, 5}, sources)

	got, err = db.Select(ctx, Predicate{Country: "Atlantis"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSQLite_SelectCombinedPredicate(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{})
	require.NoError(t, db.BulkInsert(ctx, makeEvents(10, 3)))

	got, err := db.Select(ctx, Predicate{SeverityID: 2, EventTypeID: 1, Country: "Austria"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 7}, ids(got))
}

func TestSQLite_Update(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{})
	require.NoError(t, db.BulkInsert(ctx, makeEvents(4, 1)))
	require.NoError(t, db.BulkInsert(ctx, makeEvents(2, 6)))

	n, err := db.Update(ctx, Predicate{Country: "Germany"}, Change{SeverityID: 5, Message: "patched"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	got, err := db.Select(ctx, Predicate{SeverityID: 5})
	require.NoError(t, err)
	require.Len(t, got, 4)
	for _, e := range got {
		assert.Equal(t, "patched", e.Message)
		assert.Equal(t, 1, e.SourceID)
	}

	n, err = db.Update(ctx, Predicate{Country: "Atlantis"}, Change{SeverityID: 1})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_UpdateValidation(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{})

	_, err := db.Update(ctx, Predicate{}, Change{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = db.Update(ctx, Predicate{}, Change{Message: strings.Repeat("y", 256)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSQLite_SetupIsRepeatable(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t, Options{})
	require.NoError(t, db.Setup(ctx, vocab.Default()))
	require.NoError(t, db.Teardown(ctx))

	_, err := db.Select(ctx, Predicate{})
	assert.ErrorIs(t, err, ErrQuery, "events table is gone after teardown")
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, config.Backend{Driver: "oracle"}, Options{})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = Open(ctx, config.Backend{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "missing", "dir", "x.db")}, Options{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(context.Background(), config.Backend{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "b.db")}, Options{})
	require.NoError(t, err)
	assert.IsType(t, &SQLDriver{}, db)
	require.NoError(t, db.Close())
}
