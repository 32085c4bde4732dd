package domain

import "time"

// Server timestamps arrive either as RFC 3339 or as naive ISO 8601 without a
// zone suffix. Unparseable or absent values become the zero time.
var serverTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseServerTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range serverTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
