package utils

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/younsl/ec2utils/internal/models"
)

// FormatStackTime formats a stack timestamp in UTC, or returns an empty string for nil
func FormatStackTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(models.StackTimeLayout)
}

// ParseStackTime parses a timestamp written by FormatStackTime
func ParseStackTime(s string) (time.Time, error) {
	return time.Parse(models.StackTimeLayout, s)
}

// FormatAge renders a timestamp relative to now, e.g. "3 days ago"
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
