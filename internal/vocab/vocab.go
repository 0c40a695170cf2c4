// Package vocab holds the reference vocabularies synthetic events are drawn
// from. The id of an entry is its 1-based position in its list, so
// reordering a list changes the meaning of ids already stored.
package vocab

import "fmt"

type Severity struct {
	Name        string
	Description string
}

// EventType carries the message templates for events of that type. A
// template may contain any number of "{n}" placeholders.
type EventType struct {
	Name        string
	Description string
	Templates   []string
}

type Location struct {
	City    string
	Country string
}

type Source struct {
	Name        string
	Description string
	IPAddress   string
	Location    Location
}

// Set is an immutable group of vocabularies. Use New to build one.
type Set struct {
	severities []Severity
	eventTypes []EventType
	sources    []Source
}

func New(severities []Severity, eventTypes []EventType, sources []Source) (Set, error) {
	if len(severities) == 0 || len(eventTypes) == 0 || len(sources) == 0 {
		return Set{}, fmt.Errorf("vocab: severities, event types and sources must all be non-empty")
	}
	for _, et := range eventTypes {
		if len(et.Templates) == 0 {
			return Set{}, fmt.Errorf("vocab: event type %q has no message templates", et.Name)
		}
	}
	return Set{
		severities: append([]Severity(nil), severities...),
		eventTypes: cloneEventTypes(eventTypes),
		sources:    append([]Source(nil), sources...),
	}, nil
}

func cloneEventTypes(in []EventType) []EventType {
	out := make([]EventType, len(in))
	for i, et := range in {
		et.Templates = append([]string(nil), et.Templates...)
		out[i] = et
	}
	return out
}

func (s Set) NumSeverities() int { return len(s.severities) }
func (s Set) NumEventTypes() int { return len(s.eventTypes) }
func (s Set) NumSources() int    { return len(s.sources) }

// Severity returns the entry with the given 1-based id.
func (s Set) Severity(id int) (Severity, bool) {
	if id < 1 || id > len(s.severities) {
		return Severity{}, false
	}
	return s.severities[id-1], true
}

// EventType returns the entry with the given 1-based id.
func (s Set) EventType(id int) (EventType, bool) {
	if id < 1 || id > len(s.eventTypes) {
		return EventType{}, false
	}
	return s.eventTypes[id-1], true
}

// Source returns the entry with the given 1-based id.
func (s Set) Source(id int) (Source, bool) {
	if id < 1 || id > len(s.sources) {
		return Source{}, false
	}
	return s.sources[id-1], true
}

// Sources returns a copy of the source list in id order.
func (s Set) Sources() []Source {
	return append([]Source(nil), s.sources...)
}

// Locations returns the distinct source locations in first-appearance order.
// The id of a location is its 1-based position in the returned slice.
func (s Set) Locations() []Location {
	seen := make(map[Location]bool)
	var out []Location
	for _, src := range s.sources {
		if seen[src.Location] {
			continue
		}
		seen[src.Location] = true
		out = append(out, src.Location)
	}
	return out
}

// LocationID returns the 1-based location id of the source with the given id.
func (s Set) LocationID(sourceID int) (int, bool) {
	src, ok := s.Source(sourceID)
	if !ok {
		return 0, false
	}
	for i, loc := range s.Locations() {
		if loc == src.Location {
			return i + 1, true
		}
	}
	return 0, false
}

// SeverityID returns the 1-based id of the named severity.
func (s Set) SeverityID(name string) (int, bool) {
	for i, sev := range s.severities {
		if sev.Name == name {
			return i + 1, true
		}
	}
	return 0, false
}
