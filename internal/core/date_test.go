package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2024 || d.Month() != 2 || d.Day() != 29 {
		t.Fatalf("unexpected date %v", d)
	}
	if d.Location() != time.UTC || d.Hour() != 0 {
		t.Fatalf("date must be UTC midnight, got %v", d.Time)
	}

	again, _ := ParseDate("2024-02-29")
	if !d.Equal(again) {
		t.Fatalf("same string must parse to equal dates")
	}

	for _, bad := range []string{"", "2023-02-29", "2024-13-01", "24-01-01", "2024/01/01", "2024-1-5", "2024-01-01T10:00:00Z"} {
		_, err := ParseDate(bad)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%q: expected ParseError, got %v", bad, err)
		}
	}
}

func TestAddMonthsClamps(t *testing.T) {
	cases := []struct {
		from string
		n    int
		want string
	}{
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-01-31", 2, "2024-03-31"},
		{"2024-03-31", 1, "2024-04-30"},
		{"2024-11-15", 3, "2025-02-15"},
		{"2024-05-31", -1, "2024-04-30"},
		{"2024-05-10", 0, "2024-05-10"},
	}
	for _, tc := range cases {
		got := MustParseDate(tc.from).AddMonths(tc.n)
		if got.String() != tc.want {
			t.Errorf("%s + %d months = %s, want %s", tc.from, tc.n, got, tc.want)
		}
	}
}

func TestTodayAtUsesReferenceZone(t *testing.T) {
	// 2024-03-10 05:00 UTC is still March 9th in Los Angeles.
	now := time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC)
	if got := TodayAt(now).String(); got != "2024-03-09" {
		t.Fatalf("TodayAt = %s, want 2024-03-09", got)
	}
	// The same instant expressed in another zone gives the same answer.
	tokyo := time.FixedZone("JST", 9*3600)
	if got := TodayAt(now.In(tokyo)).String(); got != "2024-03-09" {
		t.Fatalf("TodayAt in other zone = %s, want 2024-03-09", got)
	}
}

func TestDateHelpers(t *testing.T) {
	d := MustParseDate("2024-03-01")
	if d.MonthKey() != "2024-03" {
		t.Fatalf("MonthKey = %s", d.MonthKey())
	}
	if got := d.DaysUntil(MustParseDate("2024-03-31")); got != 30 {
		t.Fatalf("DaysUntil = %d", got)
	}
	if !MustParseDate("2024-03-10").Between(d, MustParseDate("2024-03-10")) {
		t.Fatalf("Between must be inclusive")
	}
	if DaysIn(2024, 2) != 29 || DaysIn(2023, 2) != 28 || DaysIn(2024, 12) != 31 {
		t.Fatalf("DaysIn mismatch")
	}
	y, m, err := ParseMonthKey("2024-07")
	if err != nil || y != 2024 || m != 7 {
		t.Fatalf("ParseMonthKey = %d %d %v", y, m, err)
	}
	if _, _, err := ParseMonthKey("2024-7-1"); err == nil {
		t.Fatalf("expected error for bad month key")
	}
}

func TestDateJSON(t *testing.T) {
	type wrap struct {
		D Date `json:"d"`
	}
	b, err := json.Marshal(wrap{D: NewDate(2024, 1, 5)})
	if err != nil || string(b) != `{"d":"2024-01-05"}` {
		t.Fatalf("marshal = %s, %v", b, err)
	}
	var w wrap
	if err := json.Unmarshal([]byte(`{"d":"2024-12-31"}`), &w); err != nil || w.D.String() != "2024-12-31" {
		t.Fatalf("unmarshal = %v, %v", w.D, err)
	}
	if err := json.Unmarshal([]byte(`{"d":"31/12/2024"}`), &w); err == nil {
		t.Fatalf("expected error for bad date")
	}
}
