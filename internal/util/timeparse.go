package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Epoch is the cursor used when a client has never synced.
var Epoch = time.Unix(0, 0).UTC()

// ParseTimestamp accepts RFC3339 and the looser ISO8601 shapes clients send
// (date only, no zone). Zoneless values are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ParseCursor turns an optional last_sync value into a cursor; absent means Epoch.
func ParseCursor(raw *string) (time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return Epoch, nil
	}
	t, err := ParseTimestamp(*raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return t, nil
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
