// Package prune thins out S3 object versions with a grandfather-father-son
// retention scheme.
package prune

import (
	"fmt"
	"sort"
	"time"

	"github.com/younsl/ec2utils/internal/models"
)

// Retention is the number of most recent periods of each size in which the
// newest version is kept
type Retention struct {
	TenMinutely int
	Hourly      int
	Daily       int
	Weekly      int
	Monthly     int
	Yearly      int
}

// DefaultRetention keeps two days of ten-minute versions, a week of hourly,
// a month of daily, a quarter of weekly, half a year of monthly and three
// yearly versions
func DefaultRetention() Retention {
	return Retention{
		TenMinutely: 288,
		Hourly:      168,
		Daily:       30,
		Weekly:      13,
		Monthly:     6,
		Yearly:      3,
	}
}

// Validate rejects negative counts
func (r Retention) Validate() error {
	for name, n := range map[string]int{
		"ten-minutely": r.TenMinutely,
		"hourly":       r.Hourly,
		"daily":        r.Daily,
		"weekly":       r.Weekly,
		"monthly":      r.Monthly,
		"yearly":       r.Yearly,
	} {
		if n < 0 {
			return fmt.Errorf("%s retention must not be negative, got %d", name, n)
		}
	}
	return nil
}

type period struct {
	keep   int
	bucket func(time.Time) string
}

func (r Retention) periods() []period {
	return []period{
		{r.TenMinutely, func(t time.Time) string { return t.Truncate(10 * time.Minute).Format("2006-01-02T15:04") }},
		{r.Hourly, func(t time.Time) string { return t.Format("2006-01-02T15") }},
		{r.Daily, func(t time.Time) string { return t.Format("2006-01-02") }},
		{r.Weekly, func(t time.Time) string {
			year, week := t.ISOWeek()
			return fmt.Sprintf("%d-W%02d", year, week)
		}},
		{r.Monthly, func(t time.Time) string { return t.Format("2006-01") }},
		{r.Yearly, func(t time.Time) string { return t.Format("2006") }},
	}
}

// Select splits versions into those to keep and those to remove. Each key is
// handled on its own: the newest version is always kept, and for every period
// size the newest version of each of the most recent periods is kept.
func Select(versions []models.ObjectVersion, r Retention) (keep, remove []models.ObjectVersion) {
	byKey := make(map[string][]models.ObjectVersion)
	var keys []string
	for _, v := range versions {
		if _, ok := byKey[v.Key]; !ok {
			keys = append(keys, v.Key)
		}
		byKey[v.Key] = append(byKey[v.Key], v)
	}
	sort.Strings(keys)

	for _, key := range keys {
		k, d := selectKey(byKey[key], r)
		keep = append(keep, k...)
		remove = append(remove, d...)
	}
	return keep, remove
}

func selectKey(versions []models.ObjectVersion, r Retention) (keep, remove []models.ObjectVersion) {
	sorted := make([]models.ObjectVersion, len(versions))
	copy(sorted, versions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].LastModified.Equal(sorted[j].LastModified) {
			return sorted[i].LastModified.After(sorted[j].LastModified)
		}
		return sorted[i].IsLatest && !sorted[j].IsLatest
	})

	kept := make([]bool, len(sorted))
	for i, v := range sorted {
		if i == 0 || v.IsLatest {
			kept[i] = true
		}
	}

	for _, p := range r.periods() {
		used := 0
		last := ""
		for i, v := range sorted {
			if used >= p.keep {
				break
			}
			b := p.bucket(v.LastModified.UTC())
			if b == last {
				continue
			}
			last = b
			kept[i] = true
			used++
		}
	}

	for i, v := range sorted {
		if kept[i] {
			keep = append(keep, v)
		} else {
			remove = append(remove, v)
		}
	}
	return keep, remove
}
