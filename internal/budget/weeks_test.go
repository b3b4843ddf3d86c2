package budget

import (
	"errors"
	"testing"
	"time"

	"finanzas/internal/core"
)

func TestWeeksMarch2024(t *testing.T) {
	got, err := Weeks(2024, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][2]string{
		{"2024-03-01", "2024-03-03"},
		{"2024-03-04", "2024-03-10"},
		{"2024-03-11", "2024-03-17"},
		{"2024-03-18", "2024-03-24"},
		{"2024-03-25", "2024-03-31"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d buckets, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		b := got[i]
		if b.Start.String() != w[0] || b.End.String() != w[1] {
			t.Errorf("bucket %d = %s..%s, want %s..%s", i+1, b.Start, b.End, w[0], w[1])
		}
		if b.Index != i+1 {
			t.Errorf("bucket %d has index %d", i+1, b.Index)
		}
	}
	if got[0].Days != 3 || got[4].Days != 7 {
		t.Fatalf("unexpected day counts: first=%d last=%d", got[0].Days, got[4].Days)
	}
}

func TestWeeksMonthStartingOnSunday(t *testing.T) {
	got, err := Weeks(2024, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d buckets, want 5: %+v", len(got), got)
	}
	first := got[0]
	if first.Start.String() != "2024-09-01" || first.End.String() != "2024-09-01" || first.Days != 1 {
		t.Fatalf("first bucket = %s..%s (%d days), want the single Sunday", first.Start, first.End, first.Days)
	}
	if got[1].Start.String() != "2024-09-02" || got[1].End.String() != "2024-09-08" {
		t.Fatalf("second bucket = %s..%s", got[1].Start, got[1].End)
	}
	last := got[4]
	if last.Start.String() != "2024-09-23" || last.End.String() != "2024-09-30" || last.Days != 8 {
		t.Fatalf("last bucket = %s..%s (%d days)", last.Start, last.End, last.Days)
	}
}

func TestWeeksMergesShortTail(t *testing.T) {
	// February 2024 starts on Thursday and its tail 26..29 is four days long.
	got := MustWeeks(2024, 2)
	if len(got) != 4 {
		t.Fatalf("got %d buckets, want 4: %+v", len(got), got)
	}
	last := got[len(got)-1]
	if last.Start.String() != "2024-02-19" || last.End.String() != "2024-02-29" || last.Days != 11 {
		t.Fatalf("unexpected merged tail: %+v", last)
	}
}

func TestWeeksMonthStartingMonday(t *testing.T) {
	// February 2021 starts on Monday and has exactly four full weeks.
	got := MustWeeks(2021, 2)
	if len(got) != 4 {
		t.Fatalf("got %d buckets, want 4", len(got))
	}
	for _, b := range got {
		if b.Days != 7 {
			t.Fatalf("bucket %d has %d days", b.Index, b.Days)
		}
		if b.Start.Weekday() != time.Monday || b.End.Weekday() != time.Sunday {
			t.Fatalf("bucket %d is %s..%s", b.Index, b.Start.Weekday(), b.End.Weekday())
		}
	}
}

func TestWeeksCoverEveryDayOnce(t *testing.T) {
	for year := 1999; year <= 2031; year++ {
		for month := 1; month <= 12; month++ {
			buckets := MustWeeks(year, month)
			if n := len(buckets); n < 1 || n > 6 {
				t.Fatalf("%04d-%02d: %d buckets", year, month, n)
			}

			first := core.NewDate(year, month, 1)
			if !buckets[0].Start.Equal(first) {
				t.Fatalf("%04d-%02d: first bucket starts %s", year, month, buckets[0].Start)
			}
			last := core.NewDate(year, month, core.DaysIn(year, month))
			if !buckets[len(buckets)-1].End.Equal(last) {
				t.Fatalf("%04d-%02d: last bucket ends %s", year, month, buckets[len(buckets)-1].End)
			}

			days := 0
			for i, b := range buckets {
				if b.End.Before(b.Start) {
					t.Fatalf("%04d-%02d: bucket %d is reversed", year, month, i+1)
				}
				if i > 0 && !buckets[i-1].End.AddDays(1).Equal(b.Start) {
					t.Fatalf("%04d-%02d: gap or overlap before bucket %d", year, month, i+1)
				}
				if i > 0 && b.Start.Weekday() != time.Monday {
					t.Fatalf("%04d-%02d: bucket %d starts on %s", year, month, i+1, b.Start.Weekday())
				}
				days += b.Days
			}
			if days != core.DaysIn(year, month) {
				t.Fatalf("%04d-%02d: buckets cover %d days", year, month, days)
			}
			if n := len(buckets); n > 1 && buckets[n-1].Days < 7 {
				t.Fatalf("%04d-%02d: short tail left unmerged", year, month)
			}
		}
	}
}

func TestWeeksRejectsBadMonth(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		_, err := Weeks(2024, m)
		var ie *core.InvalidInputError
		if !errors.As(err, &ie) {
			t.Fatalf("month %d: expected InvalidInputError, got %v", m, err)
		}
	}
}
