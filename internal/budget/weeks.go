// Package budget derives weekly and monthly summaries from monetary records.
//
// Every function in this package is pure: it reads the slices it is given,
// never retains them, and keeps no state between calls, so it is safe to
// call from many goroutines on independent snapshots.
package budget

import (
	"time"

	"finanzas/internal/core"
)

// WeekBucket is one contiguous slice of a month used as a spending week.
type WeekBucket struct {
	Index int       `json:"index"`
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
	Days  int       `json:"days"`
}

// Contains reports whether d falls inside the bucket, both ends inclusive.
func (b WeekBucket) Contains(d core.Date) bool {
	return d.Between(b.Start, b.End)
}

// Weeks splits a calendar month into week buckets.
//
// The first bucket runs from day 1 to the first Sunday on or after it. Every
// following bucket runs Monday to Sunday, and the last one is cut at the end
// of the month. A final bucket shorter than seven days is folded into the
// one before it.
func Weeks(year, month int) ([]WeekBucket, error) {
	if month < 1 || month > 12 {
		return nil, &core.InvalidInputError{Field: "month", Reason: "must be between 1 and 12"}
	}

	first := core.NewDate(year, month, 1)
	last := core.NewDate(year, month, core.DaysIn(year, month))

	var buckets []WeekBucket
	start := first
	for !start.After(last) {
		end := start.AddDays(daysUntilSunday(start.Weekday()))
		if end.After(last) {
			end = last
		}
		buckets = append(buckets, WeekBucket{Start: start, End: end})
		start = end.AddDays(1)
	}

	if n := len(buckets); n > 1 && spanDays(buckets[n-1]) < 7 {
		buckets[n-2].End = buckets[n-1].End
		buckets = buckets[:n-1]
	}

	for i := range buckets {
		buckets[i].Index = i + 1
		buckets[i].Days = spanDays(buckets[i])
	}
	return buckets, nil
}

// MustWeeks is Weeks for a month known to be valid.
func MustWeeks(year, month int) []WeekBucket {
	w, err := Weeks(year, month)
	if err != nil {
		panic(err)
	}
	return w
}

func daysUntilSunday(wd time.Weekday) int {
	return (7 - int(wd)) % 7
}

func spanDays(b WeekBucket) int {
	return b.Start.DaysUntil(b.End) + 1
}
