package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateFormat is the ISO-8601 day format used everywhere dates become text.
const DateFormat = "2006-01-02"

// Date is a calendar date with day-level granularity. The zero value is no date.
type Date struct {
	y int
	m time.Month
	d int
}

func NewDate(year int, month time.Month, day int) Date {
	d := Date{y: year, m: month, d: day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("can't parse date %q: %w", s, err)
	}
	return NewDate(t.Date()), nil
}

// MustParseDate is for constants and tests only.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func Today() Date { return NewDate(time.Now().Date()) }

func (d Date) Year() int         { return d.y }
func (d Date) Month() time.Month { return d.m }
func (d Date) Day() int          { return d.d }

func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

func (d Date) String() string { return d.time().Format(DateFormat) }

func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }
func (d Date) After(x Date) bool  { return d.time().After(x.time()) }

// AddDays returns the date i days later (normalized across month boundaries).
func (d Date) AddDays(i int) Date { return NewDate(d.y, d.m, d.d+i) }

// MonthKey returns the YYYY-MM bucket key for the date.
func (d Date) MonthKey() string { return d.time().Format("2006-01") }

func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
