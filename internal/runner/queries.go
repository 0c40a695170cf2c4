package runner

import (
	"context"
	"sort"

	"crud-benchmark/internal/database"
	"crud-benchmark/internal/vocab"
)

// QueryPredicates returns the predicates of the named query benchmarks:
// all rows, one severity, and the sources-locations join on the country of
// the first source.
func QueryPredicates(set vocab.Set) map[string]database.Predicate {
	severity, ok := set.SeverityID("ERROR")
	if !ok {
		severity = 1
	}
	country := ""
	if src, ok := set.Source(1); ok {
		country = src.Location.Country
	}
	return map[string]database.Predicate{
		"all":    {},
		"simple": {SeverityID: severity},
		"join":   {Country: country},
	}
}

// Queries binds QueryPredicates to db.
func Queries(db database.DatabaseDriver, set vocab.Set) map[string]QueryFunc {
	out := make(map[string]QueryFunc)
	for name, pred := range QueryPredicates(set) {
		pred := pred
		out[name] = func(ctx context.Context) ([]database.Event, error) {
			return db.Select(ctx, pred)
		}
	}
	return out
}

// QueryNames returns the names of Queries in sorted order.
func QueryNames(queries map[string]QueryFunc) []string {
	names := make([]string, 0, len(queries))
	for name := range queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
