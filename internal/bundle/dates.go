package bundle

import (
	"strings"
	"time"
)

// Timestamp layouts seen in FHIR dateTime/instant values. Only the first
// carries a zone.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses a FHIR dateTime. Values without a zone are read as UTC.
func ParseTimestamp(s *string) (time.Time, bool) {
	t, _, ok := parseTimestamp(s)
	return t, ok
}

func parseTimestamp(s *string) (t time.Time, zoned, ok bool) {
	if s == nil {
		return time.Time{}, false, false
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return time.Time{}, false, false
	}
	for i, layout := range timestampFormats {
		if t, err := time.Parse(layout, v); err == nil {
			return t, i == 0, true
		}
	}
	return time.Time{}, false, false
}

// StayLength returns the whole days between a period's bounds. ok is false
// when either bound fails to parse or only one of them carries a zone.
func StayLength(start, end *string) (days int, ok bool) {
	s, sZoned, okStart := parseTimestamp(start)
	e, eZoned, okEnd := parseTimestamp(end)
	if !okStart || !okEnd || sZoned != eZoned {
		return 0, false
	}
	return StayDays(s, e), true
}

// ParseBirthDate parses a full YYYY-MM-DD date. Partial dates are rejected.
func ParseBirthDate(s *string) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(*s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StayDays returns end minus start in whole days, truncated toward zero.
// Inverted periods give zero or negative values.
func StayDays(start, end time.Time) int {
	return int(end.Sub(start) / (24 * time.Hour))
}
