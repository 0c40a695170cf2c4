// Package generator builds synthetic events from a vocabulary set. Given a
// seeded random source its output is fully deterministic.
package generator

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"crud-benchmark/internal/database"
	"crud-benchmark/internal/vocab"
)

const placeholder = "{n}"

// Placeholders are filled with integers in [MinPlaceholder, MaxPlaceholder].
const (
	MinPlaceholder = 1
	MaxPlaceholder = 100
)

// TimestampPolicy picks the timestamp of the next event.
type TimestampPolicy interface {
	Timestamp(rng *rand.Rand) time.Time
}

// WindowPolicy draws uniformly from [Start, End).
type WindowPolicy struct {
	Start time.Time
	End   time.Time
}

func (p WindowPolicy) Timestamp(rng *rand.Rand) time.Time {
	span := p.End.Sub(p.Start)
	if span <= 0 {
		return p.Start
	}
	return p.Start.Add(time.Duration(rng.Int63n(int64(span))))
}

// DefaultWindow is 2024-10-01 to 2024-10-18 UTC.
var DefaultWindow = WindowPolicy{
	Start: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 10, 18, 0, 0, 0, 0, time.UTC),
}

// JitterPolicy draws from [Now()-Spread, Now()+Spread].
type JitterPolicy struct {
	Now    func() time.Time
	Spread time.Duration
}

func (p JitterPolicy) Timestamp(rng *rand.Rand) time.Time {
	now := p.Now()
	if p.Spread <= 0 {
		return now
	}
	offset := rng.Int63n(2*int64(p.Spread)+1) - int64(p.Spread)
	return now.Add(time.Duration(offset))
}

// NewJitter returns the "now ± 12h" policy.
func NewJitter() JitterPolicy {
	return JitterPolicy{Now: time.Now, Spread: 12 * time.Hour}
}

// Generator is not safe for concurrent use; it owns its random source.
type Generator struct {
	set        vocab.Set
	rng        *rand.Rand
	timestamps TimestampPolicy
}

type Option func(*Generator)

func WithTimestamps(p TimestampPolicy) Option {
	return func(g *Generator) {
		g.timestamps = p
	}
}

func New(set vocab.Set, rng *rand.Rand, opts ...Option) *Generator {
	g := &Generator{set: set, rng: rng, timestamps: DefaultWindow}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func NewSeeded(set vocab.Set, seed int64, opts ...Option) *Generator {
	return New(set, rand.New(rand.NewSource(seed)), opts...)
}

// Generate returns exactly count events, or an empty slice when count <= 0.
func (g *Generator) Generate(count int) []database.Event {
	if count < 0 {
		count = 0
	}
	events := make([]database.Event, count)
	for i := range events {
		eventTypeID := g.pick(g.set.NumEventTypes())
		events[i] = database.Event{
			Timestamp:   g.timestamps.Timestamp(g.rng),
			Message:     g.Message(eventTypeID),
			SeverityID:  g.pick(g.set.NumSeverities()),
			EventTypeID: eventTypeID,
			SourceID:    g.pick(g.set.NumSources()),
		}
	}
	return events
}

// pick returns a uniform 1-based id in [1, n].
func (g *Generator) pick(n int) int {
	return g.rng.Intn(n) + 1
}

// Message expands a random template of the event type. Messages longer
// than database.MaxMessageLength characters are truncated to fit.
func (g *Generator) Message(eventTypeID int) string {
	et, ok := g.set.EventType(eventTypeID)
	if !ok {
		return ""
	}
	tmpl := et.Templates[g.rng.Intn(len(et.Templates))]

	parts := strings.Split(tmpl, placeholder)
	var b strings.Builder
	for i, part := range parts {
		if i > 0 {
			n := MinPlaceholder + g.rng.Intn(MaxPlaceholder-MinPlaceholder+1)
			b.WriteString(strconv.Itoa(n))
		}
		b.WriteString(part)
	}
	return Truncate(b.String(), database.MaxMessageLength)
}

// Truncate cuts s to at most limit characters without splitting a rune.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
