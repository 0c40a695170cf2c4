package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"crud-benchmark/internal/config"
	"crud-benchmark/internal/database"
	"crud-benchmark/internal/results"
)

// Kind is the benchmarked operation.
type Kind string

const (
	KindInsert Kind = "insert"
	KindDelete Kind = "delete"
	KindUpdate Kind = "update"
	KindQuery  Kind = "query"
)

// Kinds lists every operation kind in a stable order.
var Kinds = []Kind{KindInsert, KindDelete, KindUpdate, KindQuery}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown operation kind %q", s)
}

// DataSource produces the events seeded or inserted for one span.
type DataSource interface {
	Generate(count int) []database.Event
}

// QueryFunc is the timed step of a query run. An empty result is fine; an
// error fails the run.
type QueryFunc func(ctx context.Context) ([]database.Event, error)

// Clock provides time operations that can be mocked for testing.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

type realClock struct{}

func (realClock) Now() time.Time                  { return time.Now() }
func (realClock) Since(t time.Time) time.Duration { return time.Since(t) }

// UpdateStep is what the update kind times.
type UpdateStep struct {
	Predicate database.Predicate
	Change    database.Change
}

// DefaultUpdate rewrites the severity of every seeded event.
var DefaultUpdate = UpdateStep{Change: database.Change{SeverityID: 1}}

// Runner times one operation kind across a span sequence. It must not be
// shared between concurrent runs: later spans depend on the storage state
// the same iteration prepared.
type Runner struct {
	db     database.DatabaseDriver
	source DataSource
	clock  Clock
	logger logrus.FieldLogger
	update UpdateStep
}

type Option func(*Runner)

func WithClock(c Clock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

func WithUpdate(u UpdateStep) Option {
	return func(r *Runner) {
		r.update = u
	}
}

func New(db database.DatabaseDriver, source DataSource, opts ...Option) *Runner {
	r := &Runner{
		db:     db,
		source: source,
		clock:  realClock{},
		logger: logrus.StandardLogger(),
		update: DefaultUpdate,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run returns one sample per span, in span order. Any failure aborts the
// run and discards the samples collected so far; storage mutations already
// applied are not rolled back.
func (r *Runner) Run(ctx context.Context, kind Kind, spans []int, query QueryFunc) ([]results.Sample, error) {
	if err := config.ValidateSpans(spans); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if kind == KindQuery && query == nil {
		return nil, fmt.Errorf("%s: no query function", kind)
	}

	logger := r.logger.WithField("kind", kind)

	// Delete re-seeds without clearing between spans; start from an empty
	// table so the first batch gets identity 1.
	if kind == KindDelete {
		if err := r.db.ClearAll(ctx); err != nil {
			return nil, fmt.Errorf("%s: prepare: %w", kind, err)
		}
	}

	samples := make([]results.Sample, 0, len(spans))
	for _, span := range spans {
		d, err := r.trial(ctx, logger.WithField("span", span), kind, span, query)
		if err != nil {
			return nil, fmt.Errorf("%s span %d: %w", kind, span, err)
		}
		samples = append(samples, results.Sample{Span: span, Duration: d})
	}
	logger.WithField("spans", len(spans)).Info("run complete")
	return samples, nil
}

func (r *Runner) trial(ctx context.Context, logger logrus.FieldLogger, kind Kind, span int, query QueryFunc) (time.Duration, error) {
	events := r.source.Generate(span)

	switch kind {
	case KindInsert:
		start := r.clock.Now()
		if err := r.db.BulkInsert(ctx, events); err != nil {
			return 0, err
		}
		return r.elapsed(start), nil

	case KindDelete:
		if err := r.db.BulkInsert(ctx, events); err != nil {
			return 0, fmt.Errorf("seed: %w", err)
		}
		start := r.clock.Now()
		if err := r.db.DeleteRange(ctx, span); err != nil {
			return 0, err
		}
		return r.elapsed(start), nil

	case KindUpdate:
		if err := r.reseed(ctx, events); err != nil {
			return 0, err
		}
		start := r.clock.Now()
		n, err := r.db.Update(ctx, r.update.Predicate, r.update.Change)
		if err != nil {
			return 0, err
		}
		d := r.elapsed(start)
		logger.WithField("rows", n).Debug("updated")
		return d, nil

	case KindQuery:
		if err := r.reseed(ctx, events); err != nil {
			return 0, err
		}
		start := r.clock.Now()
		rows, err := query(ctx)
		if err != nil {
			return 0, fmt.Errorf("query: %w", err)
		}
		d := r.elapsed(start)
		if len(rows) == 0 {
			logger.Info("query returned no rows")
		}
		return d, nil
	}
	return 0, fmt.Errorf("unknown operation kind %q", kind)
}

func (r *Runner) reseed(ctx context.Context, events []database.Event) error {
	if err := r.db.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	if err := r.db.BulkInsert(ctx, events); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

func (r *Runner) elapsed(start time.Time) time.Duration {
	d := r.clock.Since(start)
	if d < 0 {
		return 0
	}
	return d
}
