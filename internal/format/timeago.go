package format

import (
	"fmt"
	"time"
)

// TimeAgo renders t relative to now. German renders the absolute date.
// Thresholds use whole elapsed units, so 60-119 seconds is "a minute ago",
// 60-119 minutes is "an hour ago" and 24-47 hours is "yesterday".
func (l Locale) TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return l.text("unknown")
	}
	if l.German() {
		return l.Date(t)
	}

	seconds := int64(now.Sub(t) / time.Second)
	if seconds < 60 {
		return "just now"
	}

	minutes := seconds / 60
	if minutes == 1 {
		return "a minute ago"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d minutes ago", minutes)
	}

	hours := minutes / 60
	if hours == 1 {
		return "an hour ago"
	}
	if hours < 24 {
		return fmt.Sprintf("%d hours ago", hours)
	}

	days := hours / 24
	if days == 1 {
		return "yesterday"
	}
	if days < 7 {
		return fmt.Sprintf("%d days ago", days)
	}

	return l.Date(t)
}

// Date renders the localized absolute date of t in its own location.
func (l Locale) Date(t time.Time) string {
	return t.Format(l.dateLayout())
}

// Clock renders the time of day used in message headers.
func (l Locale) Clock(t time.Time) string {
	if l.German() {
		return t.Format("15:04")
	}
	return t.Format("3:04 PM")
}
