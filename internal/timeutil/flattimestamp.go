package timeutil

import (
	"fmt"
	"time"
)

const (
	upstreamTimestampFormat = "2006-01-02T15:04:05Z"
	flatTimestampFormat     = "2006-01-02 15:04:05"
)

// FlattenTimestamp parses an upstream UTC timestamp of the form
// 2006-01-02T15:04:05Z and re-serializes it in the flat form the stores use,
// 2006-01-02 15:04:05. Malformed input is an error, never a default value.
func FlattenTimestamp(s string) (string, error) {
	t, err := time.Parse(upstreamTimestampFormat, s)
	if err != nil {
		return "", fmt.Errorf("timeutil.FlattenTimestamp: could not parse input value %q: %w", s, err)
	}

	return t.Format(flatTimestampFormat), nil
}

// ParseFlatTimestamp is the inverse of FlattenTimestamp, for code that needs
// the stored value back as a time.Time.
func ParseFlatTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(flatTimestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil.ParseFlatTimestamp: could not parse input value %q: %w", s, err)
	}

	return t, nil
}
