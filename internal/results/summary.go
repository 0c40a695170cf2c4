package results

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds, in microseconds.
const (
	minTrackable = 1
	maxTrackable = int64(time.Hour / time.Microsecond)
)

// SpanStats describes the spread of one span's samples. Durations are in
// milliseconds at microsecond resolution.
type SpanStats struct {
	Span  int     `json:"span"`
	Count int64   `json:"count"`
	Min   float64 `json:"min_ms"`
	Mean  float64 `json:"mean_ms"`
	P50   float64 `json:"p50_ms"`
	P95   float64 `json:"p95_ms"`
	P99   float64 `json:"p99_ms"`
	Max   float64 `json:"max_ms"`
}

// Summarize builds an HDR histogram per span, ordered by span ascending.
// Samples above one hour are recorded as one hour.
func Summarize(samples []Sample) []SpanStats {
	histograms := make(map[int]*hdrhistogram.Histogram)
	for _, s := range samples {
		h, ok := histograms[s.Span]
		if !ok {
			h = hdrhistogram.New(minTrackable, maxTrackable, 3)
			histograms[s.Span] = h
		}
		us := s.Duration.Microseconds()
		if us < 0 {
			us = 0
		}
		if us > maxTrackable {
			us = maxTrackable
		}
		// In range by construction.
		_ = h.RecordValue(us)
	}

	spans := make([]int, 0, len(histograms))
	for span := range histograms {
		spans = append(spans, span)
	}
	sort.Ints(spans)

	stats := make([]SpanStats, 0, len(spans))
	for _, span := range spans {
		h := histograms[span]
		stats = append(stats, SpanStats{
			Span:  span,
			Count: h.TotalCount(),
			Min:   usToMillis(float64(h.Min())),
			Mean:  usToMillis(h.Mean()),
			P50:   usToMillis(float64(h.ValueAtQuantile(50))),
			P95:   usToMillis(float64(h.ValueAtQuantile(95))),
			P99:   usToMillis(float64(h.ValueAtQuantile(99))),
			Max:   usToMillis(float64(h.Max())),
		})
	}
	return stats
}

func usToMillis(us float64) float64 {
	return us / 1000
}

// FormatText writes a per-span table for the console.
func FormatText(w io.Writer, title string, stats []SpanStats) {
	if len(stats) == 0 {
		fmt.Fprintf(w, "%s: no samples\n", title)
		return
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "%10s %6s %12s %12s %12s %12s %12s %12s\n", "span", "runs", "min", "mean", "p50", "p95", "p99", "max")
	for _, s := range stats {
		fmt.Fprintf(w, "%10d %6d %12s %12s %12s %12s %12s %12s\n",
			s.Span, s.Count,
			FormatMillis(s.Min), FormatMillis(s.Mean), FormatMillis(s.P50),
			FormatMillis(s.P95), FormatMillis(s.P99), FormatMillis(s.Max))
	}
}
