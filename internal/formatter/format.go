package formatter

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatDuration renders seconds as m:ss. Minutes are not wrapped into hours.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatFileSize renders a byte count in B, KB (1 decimal), MB or GB (2 decimals), base 1024.
func FormatFileSize(size int64) string {
	const unit = 1024
	switch {
	case size < unit:
		return fmt.Sprintf("%d B", size)
	case size < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(size)/unit)
	case size < unit*unit*unit:
		return fmt.Sprintf("%.2f MB", float64(size)/(unit*unit))
	default:
		return fmt.Sprintf("%.2f GB", float64(size)/(unit*unit*unit))
	}
}

// FormatAge renders t relative to now ("3 minutes ago"). The zero time renders as "-".
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// FormatCount renders n with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatUsage renders "used / limit", or just the usage when there is no limit.
func FormatUsage(used, limit int) string {
	if limit <= 0 {
		return FormatCount(used)
	}
	return fmt.Sprintf("%s / %s", FormatCount(used), FormatCount(limit))
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
