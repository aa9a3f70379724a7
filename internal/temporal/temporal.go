package temporal

import (
	"fmt"
	"time"
)

// Date is a calendar date without a time of day.
type Date struct {
	year  int
	month int
	day   int
}

// Time is a time of day with nanosecond precision and no date.
type Time struct {
	hour       int
	minute     int
	second     int
	nanosecond int
}

// DateTime is the composition of a Date and a Time.
type DateTime struct {
	date Date
	time Time
}

// NewDate returns the date year-month-day, or an error if the fields do not
// name a real calendar day.
func NewDate(year, month, day int) (Date, error) {
	if year < 0 || year > 9999 {
		return Date{}, fmt.Errorf("year %d out of range", year)
	}
	if month < 1 || month > 12 {
		return Date{}, fmt.Errorf("month %d out of range", month)
	}
	if day < 1 || day > daysIn(year, month) {
		return Date{}, fmt.Errorf("day %d out of range for %04d-%02d", day, year, month)
	}
	return Date{year: year, month: month, day: day}, nil
}

// MustDate is like NewDate but panics on invalid fields.
// Use only in tests or with constant input.
func MustDate(year, month, day int) Date {
	d, err := NewDate(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// NewTime returns the time of day hour:minute:second.nanosecond.
func NewTime(hour, minute, second, nanosecond int) (Time, error) {
	if hour < 0 || hour > 23 {
		return Time{}, fmt.Errorf("hour %d out of range", hour)
	}
	if minute < 0 || minute > 59 {
		return Time{}, fmt.Errorf("minute %d out of range", minute)
	}
	if second < 0 || second > 59 {
		return Time{}, fmt.Errorf("second %d out of range", second)
	}
	if nanosecond < 0 || nanosecond > 999_999_999 {
		return Time{}, fmt.Errorf("nanosecond %d out of range", nanosecond)
	}
	return Time{hour: hour, minute: minute, second: second, nanosecond: nanosecond}, nil
}

// MustTime is like NewTime but panics on invalid fields.
func MustTime(hour, minute, second, nanosecond int) Time {
	t, err := NewTime(hour, minute, second, nanosecond)
	if err != nil {
		panic(err)
	}
	return t
}

// NewDateTime combines a date and a time of day.
func NewDateTime(d Date, t Time) DateTime {
	return DateTime{date: d, time: t}
}

// Midnight returns d at 00:00:00.
func Midnight(d Date) DateTime {
	return DateTime{date: d}
}

// InRange reports whether t's year lies in 0..9999, the years the literal
// grammar can spell. DateOf, TimeOf and DateTimeOf expect such a t.
func InRange(t time.Time) bool {
	return t.Year() >= 0 && t.Year() <= 9999
}

// DateOf returns the calendar date of t in its own location. The year is
// clamped to 0..9999.
func DateOf(t time.Time) Date {
	switch {
	case t.Year() < 0:
		return Date{year: 0, month: 1, day: 1}
	case t.Year() > 9999:
		return Date{year: 9999, month: 12, day: 31}
	}
	return Date{year: t.Year(), month: int(t.Month()), day: t.Day()}
}

// TimeOf returns the time of day of t in its own location.
func TimeOf(t time.Time) Time {
	return Time{hour: t.Hour(), minute: t.Minute(), second: t.Second(), nanosecond: t.Nanosecond()}
}

// DateTimeOf returns the wall-clock date and time of t in its own location.
func DateTimeOf(t time.Time) DateTime {
	return DateTime{date: DateOf(t), time: TimeOf(t)}
}

func (d Date) Year() int  { return d.year }
func (d Date) Month() int { return d.month }
func (d Date) Day() int   { return d.day }

func (t Time) Hour() int       { return t.hour }
func (t Time) Minute() int     { return t.minute }
func (t Time) Second() int     { return t.second }
func (t Time) Nanosecond() int { return t.nanosecond }

// Date returns the date part.
func (dt DateTime) Date() Date { return dt.date }

// Time returns the time-of-day part.
func (dt DateTime) Time() Time { return dt.time }

// String returns the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// String returns the canonical HH:mm:ss.nnnnnnnnn form.
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%09d", t.hour, t.minute, t.second, t.nanosecond)
}

// String returns the canonical YYYY-MM-DDTHH:mm:ss.nnnnnnnnn form.
func (dt DateTime) String() string {
	return dt.date.String() + "T" + dt.time.String()
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after other.
func (d Date) Compare(other Date) int {
	return compareFields(
		[]int{d.year, d.month, d.day},
		[]int{other.year, other.month, other.day},
	)
}

// Compare orders times of day.
func (t Time) Compare(other Time) int {
	return compareFields(
		[]int{t.hour, t.minute, t.second, t.nanosecond},
		[]int{other.hour, other.minute, other.second, other.nanosecond},
	)
}

// Compare orders date/times by date, then by time of day.
func (dt DateTime) Compare(other DateTime) int {
	if c := dt.date.Compare(other.date); c != 0 {
		return c
	}
	return dt.time.Compare(other.time)
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

func (t Time) Before(other Time) bool { return t.Compare(other) < 0 }
func (t Time) After(other Time) bool  { return t.Compare(other) > 0 }

func (dt DateTime) Before(other DateTime) bool { return dt.Compare(other) < 0 }
func (dt DateTime) After(other DateTime) bool  { return dt.Compare(other) > 0 }

// GoTime converts dt to a time.Time in UTC.
func (dt DateTime) GoTime() time.Time {
	return time.Date(dt.date.year, time.Month(dt.date.month), dt.date.day,
		dt.time.hour, dt.time.minute, dt.time.second, dt.time.nanosecond, time.UTC)
}

func compareFields(a, b []int) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

func daysIn(year, month int) int {
	switch month {
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}
