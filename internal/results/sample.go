// Package results holds benchmark samples, their reduction to per-span
// medians and the JSON artifacts both are stored in.
package results

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sample is one timed trial.
type Sample struct {
	Span     int
	Duration time.Duration
}

type rawSample struct {
	Span     int    `json:"span"`
	Duration string `json:"duration"`
}

func (s Sample) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawSample{Span: s.Span, Duration: FormatClock(s.Duration)})
}

func (s *Sample) UnmarshalJSON(data []byte) error {
	var raw rawSample
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d, err := ParseClock(raw.Duration)
	if err != nil {
		return fmt.Errorf("span %d: %w", raw.Span, err)
	}
	*s = Sample{Span: raw.Span, Duration: d}
	return nil
}

// MedianRecord is the median duration of one span, in milliseconds.
type MedianRecord struct {
	Span     int
	Duration float64
}

func (r MedianRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawSample{Span: r.Span, Duration: FormatMillis(r.Duration)})
}

func (r *MedianRecord) UnmarshalJSON(data []byte) error {
	var raw rawSample
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ms, err := ParseMillis(raw.Duration)
	if err != nil {
		return fmt.Errorf("span %d: %w", raw.Span, err)
	}
	*r = MedianRecord{Span: raw.Span, Duration: ms}
	return nil
}
