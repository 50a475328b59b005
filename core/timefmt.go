package core

import (
	"fmt"
	"strings"
	"time"
)

// DateTimeFormat is the wire format for sub-record timestamps. Action and
// activity entries are keyed by their date, so forms echo it back in this
// exact form.
const DateTimeFormat = "2006-01-02 15:04:05.000000"

// Accepted input layouts for optional form dates. The seconds layouts also
// accept a trailing fractional part when parsing.
var dateInputLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// TruncateMillis drops sub-millisecond precision. Stored entry dates only
// keep milliseconds, so every key is truncated before it is compared.
func TruncateMillis(t time.Time) time.Time {
	return t.Truncate(time.Millisecond)
}

// Now returns the current UTC time at storage precision
func Now() time.Time {
	return TruncateMillis(time.Now().UTC())
}

// ParseEntryDate parses a sub-record key in DateTimeFormat and truncates it
// to millisecond precision
func ParseEntryDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected format %s", s, DateTimeFormat)
	}
	return TruncateMillis(t.UTC()), nil
}

// ParseOptionalDate parses a user-supplied date field. An empty string
// yields the zero time.
func ParseOptionalDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TruncateMillis(t.UTC()), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// FormatDate renders a time in DateTimeFormat; the zero time renders as ""
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateTimeFormat)
}
