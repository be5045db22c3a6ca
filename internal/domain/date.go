package domain

import (
	"fmt"
	"time"
)

// CalendarDate is a day-precision date with no time-of-day and no timezone.
// Sprint planning dates are calendar days; conflating them with wall-clock
// timestamps shifts them across timezone boundaries, so they get their own
// type. Wall-clock instants (ActualStartDate, ActualEndDate) stay time.Time.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

const calendarDateLayout = "2006-01-02"

// NewCalendarDate builds a date from its components without validation.
func NewCalendarDate(year int, month time.Month, day int) CalendarDate {
	return CalendarDate{Year: year, Month: month, Day: day}
}

// DateOf truncates an instant to the calendar day it falls on, in the
// instant's own location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// ParseCalendarDate parses "YYYY-MM-DD".
func ParseCalendarDate(s string) (CalendarDate, error) {
	t, err := time.Parse(calendarDateLayout, s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("parsing calendar date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d CalendarDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Midnight returns the first instant of the day in UTC. Used only at the
// storage boundary and for day arithmetic, never exposed as a date value.
func (d CalendarDate) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d CalendarDate) Before(other CalendarDate) bool {
	return d.Midnight().Before(other.Midnight())
}

func (d CalendarDate) After(other CalendarDate) bool {
	return d.Midnight().After(other.Midnight())
}

// AddDays returns the date n days later (earlier when n is negative).
func (d CalendarDate) AddDays(n int) CalendarDate {
	return DateOf(d.Midnight().AddDate(0, 0, n))
}

// Next returns the following calendar day.
func (d CalendarDate) Next() CalendarDate { return d.AddDays(1) }

// DaysUntil returns the signed number of whole days from d to other.
func (d CalendarDate) DaysUntil(other CalendarDate) int {
	return int(other.Midnight().Sub(d.Midnight()) / (24 * time.Hour))
}

// MarshalJSON encodes the date as the string "YYYY-MM-DD".
func (d CalendarDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes "YYYY-MM-DD" (with surrounding quotes).
func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("calendar date: expected JSON string, got %s", s)
	}
	parsed, err := ParseCalendarDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
