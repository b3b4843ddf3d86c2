package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	_ "time/tzdata"
)

// DateLayout is the only accepted wire form of a civil date.
const DateLayout = "2006-01-02"

// ReferenceZone is the civil timezone that decides what "today" is.
const ReferenceZone = "America/Los_Angeles"

var referenceLocation = mustLoadLocation(ReferenceZone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("load reference zone: " + err.Error())
	}
	return loc
}

// Date is a calendar day without time-of-day. The wrapped time is always
// midnight UTC so that comparisons never depend on the host zone.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day. Out of range values are
// normalized the way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current civil date in the reference zone.
func Today() Date {
	return TodayAt(time.Now())
}

// TodayAt returns the civil date of now in the reference zone.
func TodayAt(now time.Time) Date {
	return DateOf(now.In(referenceLocation))
}

// ParseDate parses a YYYY-MM-DD string without any zone shift.
func ParseDate(s string) (Date, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, &ParseError{Field: "date", Input: raw, Err: errors.New("empty date")}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, &ParseError{Field: "date", Input: raw, Err: err}
	}
	return Date{Time: t}, nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket the date belongs to.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays moves the date by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths advances by n calendar months. When the day does not exist in
// the target month it is clamped to that month's last day.
func (d Date) AddMonths(n int) Date {
	y, m, day := d.Time.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := DaysIn(first.Year(), int(first.Month()))
	if day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// DaysUntil returns the number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

// Equal reports whether both dates are the same day.
func (d Date) Equal(other Date) bool { return d.Time.Equal(other.Time) }

// Between reports whether d lies in [start, end], both inclusive.
func (d Date) Between(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

// DaysIn returns the number of days of the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseMonthKey parses a YYYY-MM key into year and month.
func ParseMonthKey(s string) (year, month int, err error) {
	t, perr := time.Parse("2006-01", strings.TrimSpace(s))
	if perr != nil {
		return 0, 0, &ParseError{Field: "month", Input: s, Err: perr}
	}
	return t.Year(), int(t.Month()), nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON encodes the date as a "YYYY-MM-DD" string, or null when zero.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &ParseError{Field: "date", Input: string(b), Err: err}
	}
	return d.UnmarshalText([]byte(s))
}
