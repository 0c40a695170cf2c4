package database

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"crud-benchmark/internal/config"
	"crud-benchmark/internal/vocab"
)

// MaxMessageLength is the longest message, in characters, a backend accepts.
const MaxMessageLength = 255

// DefaultChunkSize is the number of events submitted per round-trip.
const DefaultChunkSize = 200000

// Event is one synthetic log record. ID is the identity ordinal assigned by
// the backend and is zero for events that have not been stored.
type Event struct {
	ID          int64
	Timestamp   time.Time
	Message     string
	SeverityID  int
	EventTypeID int
	SourceID    int
}

// Predicate selects events. Zero fields match anything. Country matches
// events whose source is located in that country.
type Predicate struct {
	SeverityID  int
	EventTypeID int
	Country     string
}

// Change describes an update. Zero fields are left untouched.
type Change struct {
	SeverityID int
	Message    string
}

func (c Change) empty() bool {
	return c.SeverityID == 0 && c.Message == ""
}

// DatabaseDriver is the storage boundary the benchmark drives. Every
// backend fault is returned as a *StoreError; an empty Select result is not
// an error.
type DatabaseDriver interface {
	// Setup creates the schema and (re)loads the reference tables.
	Setup(ctx context.Context, set vocab.Set) error
	Teardown(ctx context.Context) error

	// BulkInsert stores all events or, if any event is invalid, none.
	// Events are submitted in chunks; a chunk that fails after earlier
	// chunks were committed leaves those earlier chunks in place.
	BulkInsert(ctx context.Context, events []Event) error

	// DeleteRange deletes the events with identity in [1, count]. It
	// assumes the identity restarted at 1 for the last seeded batch and
	// is contiguous; prior deletions or concurrent writers break that.
	DeleteRange(ctx context.Context, count int) error

	// ClearAll removes every event and restarts the identity at 1.
	ClearAll(ctx context.Context) error

	Select(ctx context.Context, pred Predicate) ([]Event, error)
	Update(ctx context.Context, pred Predicate, change Change) (int64, error)

	Close() error
}

type Options struct {
	ChunkSize int
}

func (o Options) chunkSize() int {
	if o.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return o.ChunkSize
}

// Open connects to the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.Backend, opts Options) (DatabaseDriver, error) {
	var (
		db  DatabaseDriver
		err error
	)
	switch cfg.Driver {
	case "mysql", "mariadb":
		db, err = openSQL(ctx, mysqlDialect, cfg.DSN(), opts)
	case "sqlite":
		db, err = openSQL(ctx, sqliteDialect, cfg.DSN(), opts)
	case "postgres":
		db, err = OpenPostgres(ctx, cfg.DSN(), opts)
	case "mongo":
		db, err = OpenMongo(ctx, cfg.DSN(), cfg.Database, opts)
	default:
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("%w: unsupported driver %q", ErrUnavailable, cfg.Driver)}
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// ValidateEvents checks every event before anything is submitted.
func ValidateEvents(events []Event) error {
	for i, e := range events {
		if n := utf8.RuneCountInString(e.Message); n > MaxMessageLength {
			return fmt.Errorf("%w: event %d message is %d characters, limit is %d", ErrValidation, i, n, MaxMessageLength)
		}
	}
	return nil
}

// chunks splits events into consecutive slices of at most size elements.
func chunks(events []Event, size int) [][]Event {
	if size <= 0 {
		size = len(events)
	}
	var out [][]Event
	for start := 0; start < len(events); start += size {
		end := start + size
		if end > len(events) {
			end = len(events)
		}
		out = append(out, events[start:end])
	}
	return out
}

func errNegativeCount(count int) error {
	return fmt.Errorf("%w: count %d is negative", ErrValidation, count)
}
