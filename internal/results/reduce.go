package results

import "sort"

// Reduce groups samples by exact span and returns the median duration of
// each group, ordered by span ascending. The result does not depend on the
// order of samples.
func Reduce(samples []Sample) []MedianRecord {
	groups := make(map[int][]float64)
	for _, s := range samples {
		groups[s.Span] = append(groups[s.Span], ToMillis(s.Duration))
	}

	spans := make([]int, 0, len(groups))
	for span := range groups {
		spans = append(spans, span)
	}
	sort.Ints(spans)

	records := make([]MedianRecord, 0, len(spans))
	for _, span := range spans {
		records = append(records, MedianRecord{Span: span, Duration: Median(groups[span])})
	}
	return records
}

// Median returns the median of values; for an even count it is the mean
// of the two middle values. Median of no values is 0.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
