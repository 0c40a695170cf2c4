package database

import (
	"fmt"
	"strings"
)

// argList collects positional arguments and renders their placeholders.
type argList struct {
	placeholder func(n int) string
	args        []interface{}
}

func (a *argList) add(v interface{}) string {
	a.args = append(a.args, v)
	return a.placeholder(len(a.args))
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

const eventColumns = "e.id, e.occurred_at, e.message, e.severity_id, e.event_type_id, e.source_id"

const locationJoin = " JOIN sources s ON s.id = e.source_id JOIN locations l ON l.id = s.location_id"

func selectSQL(pred Predicate, args *argList) string {
	var b strings.Builder
	b.WriteString("SELECT " + eventColumns + " FROM events e")
	if pred.Country != "" {
		b.WriteString(locationJoin)
	}
	var conds []string
	if pred.SeverityID != 0 {
		conds = append(conds, "e.severity_id = "+args.add(pred.SeverityID))
	}
	if pred.EventTypeID != 0 {
		conds = append(conds, "e.event_type_id = "+args.add(pred.EventTypeID))
	}
	if pred.Country != "" {
		conds = append(conds, "l.country = "+args.add(pred.Country))
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY e.id")
	return b.String()
}

// updateSQL renders an UPDATE of events. MySQL does not accept a JOIN in
// a portable UPDATE, so the location predicate becomes a subquery.
func updateSQL(pred Predicate, change Change, args *argList) string {
	var sets []string
	if change.SeverityID != 0 {
		sets = append(sets, "severity_id = "+args.add(change.SeverityID))
	}
	if change.Message != "" {
		sets = append(sets, "message = "+args.add(change.Message))
	}

	var conds []string
	if pred.SeverityID != 0 {
		conds = append(conds, "severity_id = "+args.add(pred.SeverityID))
	}
	if pred.EventTypeID != 0 {
		conds = append(conds, "event_type_id = "+args.add(pred.EventTypeID))
	}
	if pred.Country != "" {
		conds = append(conds, "source_id IN (SELECT s.id FROM sources s JOIN locations l ON l.id = s.location_id WHERE l.country = "+args.add(pred.Country)+")")
	}

	q := "UPDATE events SET " + strings.Join(sets, ", ")
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	return q
}

// insertSQL renders one multi-row INSERT for events.
func insertSQL(events []Event, args *argList) string {
	var b strings.Builder
	b.WriteString("INSERT INTO events (occurred_at, message, severity_id, event_type_id, source_id) VALUES ")
	for i, e := range events {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(%s, %s, %s, %s, %s)",
			args.add(e.Timestamp.UTC()), args.add(e.Message), args.add(e.SeverityID),
			args.add(e.EventTypeID), args.add(e.SourceID))
	}
	return b.String()
}

func validateChange(change Change) error {
	if change.empty() {
		return fmt.Errorf("%w: update changes nothing", ErrValidation)
	}
	if len([]rune(change.Message)) > MaxMessageLength {
		return fmt.Errorf("%w: update message exceeds %d characters", ErrValidation, MaxMessageLength)
	}
	return nil
}
