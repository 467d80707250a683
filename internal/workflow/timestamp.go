package workflow

import (
	"strings"
	"time"

	"bac-tracker/internal/models"
)

// форматы datetime-local и близкие к нему; дата без времени не принимается
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a minute-or-finer timestamp. Inputs without a zone are
// interpreted in loc.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.Local
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, NewError(KindMalformedTimestamp, "malformed timestamp %q, expected YYYY-MM-DDTHH:MM", raw)
}

func parseStageTimestamp(raw string, loc *time.Location, stage models.StageName, field string) (time.Time, error) {
	t, err := ParseTimestamp(raw, loc)
	if err != nil {
		return time.Time{}, newError(KindMalformedTimestamp, stage, "%s: malformed timestamp %q", field, strings.TrimSpace(raw))
	}
	return t, nil
}
