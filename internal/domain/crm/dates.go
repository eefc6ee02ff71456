package crm

import (
	"strings"
	"time"
)

// DateLayout is the layout of date-only fields (due dates, close dates)
const DateLayout = "2006-01-02"

// RecentWindow is how far back the "recent" list preset reaches
const RecentWindow = 7 * 24 * time.Hour

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseDate parses the date and timestamp formats the record backend emits
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dayOf drops the clock part of t, keeping its calendar date
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// isBeforeToday reports whether the date in s falls on a calendar day before now
func isBeforeToday(s string, now time.Time) bool {
	t, ok := ParseDate(s)
	if !ok {
		return false
	}
	return dayOf(t).Before(dayOf(now))
}

// isWithin reports whether the timestamp in s is no older than window
func isWithin(s string, now time.Time, window time.Duration) bool {
	t, ok := ParseDate(s)
	if !ok {
		return false
	}
	return !t.Before(now.Add(-window))
}
