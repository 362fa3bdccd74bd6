package cache

import (
	"fmt"
	"time"
)

const (
	// TimestampLayout is the stored timestamp format. Parsing accepts any
	// fractional-second width after the seconds field.
	TimestampLayout = "2006-01-02T15:04:05Z"

	// TimestampWriteLayout matches the six-digit microsecond form written
	// into the watermark file.
	TimestampWriteLayout = "2006-01-02T15:04:05.000000Z"

	// ContentOffset shifts content dates into the site's +8 frame.
	ContentOffset = 8 * time.Hour
)

// ParseTimestamp parses a stored timestamp as a zone-less UTC value.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// ContentEpoch converts a post/page date to epoch seconds in the +8 frame.
// Watermarks are not shifted; see state.ParseWatermark.
func ContentEpoch(s string) (int64, error) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return 0, err
	}
	return t.Unix() + int64(ContentOffset/time.Second), nil
}
