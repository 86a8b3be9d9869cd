package manifest

import (
	"net/http"
	"strings"
	"time"
)

// Layouts tried when parsing declared export dates and Last-Modified
// markers. The manifest uses plain dates while servers answer with HTTP
// dates, so both sides of the freshness comparison go through this chain.
var dateLayouts = []string{
	http.TimeFormat,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseDate parses a timestamp using each known layout in turn. When no
// layout matches it returns the zero time, which compares before any real
// timestamp and therefore forces a download rather than masking one.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
