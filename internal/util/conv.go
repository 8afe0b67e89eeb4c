package util

import "github.com/spf13/cast"

// QueryInt parses an optional numeric query value, returning def when absent
// and ok=false when present but malformed.
func QueryInt(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
