package results

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FormatClock renders d as "H:MM:SS.ffffff", the form raw samples travel
// in. The fraction is omitted for whole seconds.
func FormatClock(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Round(time.Microsecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	us := d / time.Microsecond

	out := fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	if us != 0 {
		out += fmt.Sprintf(".%06d", us)
	}
	return out
}

var clockPattern = regexp.MustCompile(`^(-)?(?:(\d+) days?, )?(\d+):(\d{2}):(\d{2})(?:\.(\d{1,9}))?$`)

// ParseClock parses "H:MM:SS[.fraction]", optionally prefixed by
// "N day(s), ". The fraction is read as a decimal fraction of a second.
// With a day count the sign belongs to the days only, so
// "-1 day, 23:59:59.999000" is minus one millisecond; without one it
// negates the whole value.
func ParseClock(s string) (time.Duration, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid clock duration %q", s)
	}
	var days int64
	if m[2] != "" {
		days, _ = strconv.ParseInt(m[2], 10, 64)
	}
	hours, _ := strconv.ParseInt(m[3], 10, 64)
	minutes, _ := strconv.ParseInt(m[4], 10, 64)
	seconds, _ := strconv.ParseInt(m[5], 10, 64)
	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("invalid clock duration %q: minutes and seconds must be below 60", s)
	}

	negative := m[1] == "-"
	if negative && m[2] != "" {
		days, negative = -days, false
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
	if frac := m[6]; frac != "" {
		ns, _ := strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
		d += time.Duration(ns)
	}
	if negative {
		d = -d
	}
	return d, nil
}

// ToMillis converts d to fractional milliseconds.
func ToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// FormatMillis renders ms as "X.XX ms".
func FormatMillis(ms float64) string {
	return strconv.FormatFloat(ms, 'f', 2, 64) + " ms"
}

// ParseMillis parses "X ms" (any precision) back into milliseconds.
func ParseMillis(s string) (float64, error) {
	v, ok := strings.CutSuffix(strings.TrimSpace(s), " ms")
	if !ok {
		return 0, fmt.Errorf("invalid millisecond duration %q: missing \" ms\" suffix", s)
	}
	ms, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid millisecond duration %q: %w", s, err)
	}
	return ms, nil
}
