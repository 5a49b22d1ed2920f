package util

import (
	"strconv"
	"time"
)

// ClockLayout is the wall-clock label attached to meter readings (e.g. "3:04:05 PM").
const ClockLayout = "3:04:05 PM"

// ClockLabel formats t as a reading label using layout, or ClockLayout when empty.
func ClockLabel(t time.Time, layout string) string {
	if layout == "" {
		layout = ClockLayout
	}
	return t.Format(layout)
}

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// AlignRange truncates both ends of a history range to the bucket size.
// Unknown bucket names fall back to one minute.
func AlignRange(from, to time.Time, bucket string) (time.Time, time.Time, time.Duration) {
	d := BucketDuration(bucket)
	return from.Truncate(d), to.Truncate(d), d
}

func BucketDuration(bucket string) time.Duration {
	switch bucket {
	case "1s":
		return time.Second
	case "5m":
		return 5 * time.Minute
	case "1h":
		return time.Hour
	default:
		return time.Minute
	}
}
