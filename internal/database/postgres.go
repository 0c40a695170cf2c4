package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"crud-benchmark/internal/vocab"
)

var eventInsertColumns = []string{"occurred_at", "message", "severity_id", "event_type_id", "source_id"}

type PostgresDriver struct {
	conn      *pgx.Conn
	chunkSize int
}

func OpenPostgres(ctx context.Context, dsn string, opts Options) (*PostgresDriver, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, wrap("open postgres", ErrUnavailable, err)
	}
	return &PostgresDriver{conn: conn, chunkSize: opts.chunkSize()}, nil
}

func (pd *PostgresDriver) Close() error {
	return pd.conn.Close(context.Background())
}

func (pd *PostgresDriver) ExecuteTx(ctx context.Context, txFunc func(tx pgx.Tx) error) (err error) {
	tx, err := pd.conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p) // re-panic after rollback
		} else if err != nil {
			tx.Rollback(ctx) // err is non-nil; don't change it
		} else {
			err = tx.Commit(ctx) // err is nil; if Commit returns error, update err
		}
	}()

	err = txFunc(tx)
	return err
}

func (pd *PostgresDriver) Setup(ctx context.Context, set vocab.Set) error {
	err := pd.ExecuteTx(ctx, func(tx pgx.Tx) error {
		for _, ddl := range []string{GetLocationsSchema(), GetSourcesSchema(), GetPostgresEventsSchema()} {
			if _, err := tx.Exec(ctx, ddl); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, "TRUNCATE TABLE sources, locations"); err != nil {
			return err
		}
		for i, loc := range set.Locations() {
			_, err := tx.Exec(ctx, "INSERT INTO locations (id, city, country) VALUES ($1, $2, $3)", i+1, loc.City, loc.Country)
			if err != nil {
				return err
			}
		}
		for i, src := range set.Sources() {
			locationID, _ := set.LocationID(i + 1)
			_, err := tx.Exec(ctx,
				"INSERT INTO sources (id, name, description, ip_address, location_id) VALUES ($1, $2, $3, $4, $5)",
				i+1, src.Name, src.Description, src.IPAddress, locationID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return wrap("setup", ErrStorage, err)
}

func (pd *PostgresDriver) Teardown(ctx context.Context) error {
	_, err := pd.conn.Exec(ctx, "DROP TABLE IF EXISTS events, sources, locations CASCADE")
	return wrap("teardown", ErrStorage, err)
}

// BulkInsert streams each chunk with COPY, one transaction per chunk.
func (pd *PostgresDriver) BulkInsert(ctx context.Context, events []Event) error {
	if err := ValidateEvents(events); err != nil {
		return wrap("bulk insert", ErrValidation, err)
	}
	for _, chunk := range chunks(events, pd.chunkSize) {
		err := pd.ExecuteTx(ctx, func(tx pgx.Tx) error {
			_, err := tx.CopyFrom(
				ctx,
				pgx.Identifier{"events"},
				eventInsertColumns,
				pgx.CopyFromSlice(len(chunk), func(i int) ([]interface{}, error) {
					e := chunk[i]
					return []interface{}{e.Timestamp.UTC(), e.Message, e.SeverityID, e.EventTypeID, e.SourceID}, nil
				}),
			)
			return err
		})
		if err != nil {
			return wrap("bulk insert", ErrStorage, err)
		}
	}
	return nil
}

func (pd *PostgresDriver) DeleteRange(ctx context.Context, count int) error {
	if count < 0 {
		return wrap("delete range", ErrValidation, errNegativeCount(count))
	}
	_, err := pd.conn.Exec(ctx, "DELETE FROM events WHERE id BETWEEN 1 AND $1", count)
	return wrap("delete range", ErrStorage, err)
}

func (pd *PostgresDriver) ClearAll(ctx context.Context) error {
	_, err := pd.conn.Exec(ctx, "TRUNCATE TABLE events RESTART IDENTITY")
	return wrap("clear all", ErrStorage, err)
}

func (pd *PostgresDriver) Select(ctx context.Context, pred Predicate) ([]Event, error) {
	args := &argList{placeholder: dollar}
	rows, err := pd.conn.Query(ctx, selectSQL(pred, args), args.args...)
	if err != nil {
		return nil, wrap("select", ErrQuery, err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var e Event
		err := row.Scan(&e.ID, &e.Timestamp, &e.Message, &e.SeverityID, &e.EventTypeID, &e.SourceID)
		return e, err
	})
	if err != nil {
		return nil, wrap("select", ErrQuery, err)
	}
	if events == nil {
		events = make([]Event, 0)
	}
	return events, nil
}

func (pd *PostgresDriver) Update(ctx context.Context, pred Predicate, change Change) (int64, error) {
	if err := validateChange(change); err != nil {
		return 0, wrap("update", ErrValidation, err)
	}
	args := &argList{placeholder: dollar}
	tag, err := pd.conn.Exec(ctx, updateSQL(pred, change, args), args.args...)
	if err != nil {
		return 0, wrap("update", ErrStorage, err)
	}
	return tag.RowsAffected(), nil
}
