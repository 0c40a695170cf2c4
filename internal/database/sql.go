package database

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"crud-benchmark/internal/vocab"
)

// dialect captures what differs between the database/sql backends.
type dialect struct {
	name         string
	driverName   string
	eventsSchema string
	// maxParams bounds the placeholders of one statement.
	maxParams int
	clearAll  string
}

var mysqlDialect = dialect{
	name:         "mysql",
	driverName:   "mysql",
	eventsSchema: GetMySQLEventsSchema(),
	maxParams:    65535,
	clearAll:     "TRUNCATE TABLE events",
}

var sqliteDialect = dialect{
	name:         "sqlite",
	driverName:   "sqlite3",
	eventsSchema: GetSQLiteEventsSchema(),
	maxParams:    32766,
	clearAll:     "DELETE FROM events",
}

const insertColumns = 5

// SQLDriver drives MySQL/MariaDB and SQLite through database/sql.
type SQLDriver struct {
	db        *sql.DB
	dialect   dialect
	chunkSize int
}

// OpenMySQL connects to MySQL or MariaDB. The DSN must set parseTime=true.
func OpenMySQL(ctx context.Context, dsn string, opts Options) (*SQLDriver, error) {
	return openSQL(ctx, mysqlDialect, dsn, opts)
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(ctx context.Context, path string, opts Options) (*SQLDriver, error) {
	return openSQL(ctx, sqliteDialect, path, opts)
}

func openSQL(ctx context.Context, d dialect, dsn string, opts Options) (*SQLDriver, error) {
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, wrap("open "+d.name, ErrUnavailable, err)
	}
	if d.name == sqliteDialect.name {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrap("open "+d.name, ErrUnavailable, err)
	}
	return &SQLDriver{db: db, dialect: d, chunkSize: opts.chunkSize()}, nil
}

func (sd *SQLDriver) Close() error {
	return sd.db.Close()
}

// ExecuteTx runs txFunc in a transaction, committing only if it succeeds.
func (sd *SQLDriver) ExecuteTx(ctx context.Context, txFunc func(tx *sql.Tx) error) (err error) {
	tx, err := sd.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = txFunc(tx)
	return err
}

func (sd *SQLDriver) Setup(ctx context.Context, set vocab.Set) error {
	err := sd.ExecuteTx(ctx, func(tx *sql.Tx) error {
		for _, ddl := range []string{GetLocationsSchema(), GetSourcesSchema(), sd.dialect.eventsSchema} {
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM sources"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM locations"); err != nil {
			return err
		}
		for i, loc := range set.Locations() {
			_, err := tx.ExecContext(ctx, "INSERT INTO locations (id, city, country) VALUES (?, ?, ?)", i+1, loc.City, loc.Country)
			if err != nil {
				return err
			}
		}
		for i, src := range set.Sources() {
			locationID, _ := set.LocationID(i + 1)
			_, err := tx.ExecContext(ctx,
				"INSERT INTO sources (id, name, description, ip_address, location_id) VALUES (?, ?, ?, ?, ?)",
				i+1, src.Name, src.Description, src.IPAddress, locationID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return wrap("setup", ErrStorage, err)
}

func (sd *SQLDriver) Teardown(ctx context.Context) error {
	for _, table := range []string{"events", "sources", "locations"} {
		if _, err := sd.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return wrap("teardown", ErrStorage, err)
		}
	}
	return nil
}

func (sd *SQLDriver) BulkInsert(ctx context.Context, events []Event) error {
	if err := ValidateEvents(events); err != nil {
		return wrap("bulk insert", ErrValidation, err)
	}
	rowsPerStatement := sd.dialect.maxParams / insertColumns
	for _, chunk := range chunks(events, sd.chunkSize) {
		err := sd.ExecuteTx(ctx, func(tx *sql.Tx) error {
			for _, part := range chunks(chunk, rowsPerStatement) {
				args := &argList{placeholder: questionMark}
				if _, err := tx.ExecContext(ctx, insertSQL(part, args), args.args...); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return wrap("bulk insert", ErrStorage, err)
		}
	}
	return nil
}

func (sd *SQLDriver) DeleteRange(ctx context.Context, count int) error {
	if count < 0 {
		return wrap("delete range", ErrValidation, errNegativeCount(count))
	}
	_, err := sd.db.ExecContext(ctx, "DELETE FROM events WHERE id BETWEEN 1 AND ?", count)
	return wrap("delete range", ErrStorage, err)
}

func (sd *SQLDriver) ClearAll(ctx context.Context) error {
	_, err := sd.db.ExecContext(ctx, sd.dialect.clearAll)
	return wrap("clear all", ErrStorage, err)
}

func (sd *SQLDriver) Select(ctx context.Context, pred Predicate) ([]Event, error) {
	args := &argList{placeholder: questionMark}
	rows, err := sd.db.QueryContext(ctx, selectSQL(pred, args), args.args...)
	if err != nil {
		return nil, wrap("select", ErrQuery, err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Message, &e.SeverityID, &e.EventTypeID, &e.SourceID); err != nil {
			return nil, wrap("select", ErrQuery, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("select", ErrQuery, err)
	}
	return events, nil
}

func (sd *SQLDriver) Update(ctx context.Context, pred Predicate, change Change) (int64, error) {
	if err := validateChange(change); err != nil {
		return 0, wrap("update", ErrValidation, err)
	}
	args := &argList{placeholder: questionMark}
	res, err := sd.db.ExecContext(ctx, updateSQL(pred, change, args), args.args...)
	if err != nil {
		return 0, wrap("update", ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("update", ErrStorage, err)
	}
	return n, nil
}
