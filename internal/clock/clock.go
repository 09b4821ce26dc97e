// Package clock centralizes the reporting timezone. Every "today", order-number
// and date-bucketing computation goes through a Reporting clock so that reports
// stay comparable regardless of where the till or the viewer is.
package clock

import (
	"fmt"
	"time"
)

const (
	// DefaultTimezone is India Standard Time.
	DefaultTimezone = "Asia/Kolkata"

	// DateLayout is the storage and query format. It sorts lexicographically.
	DateLayout = "2006-01-02"
	// MonthLayout keys monthly buckets.
	MonthLayout = "2006-01"
	// YearLayout keys yearly buckets.
	YearLayout = "2006"
	// TimeLayout is the wall-clock time stored on a sale.
	TimeLayout = "15:04:05"
	// DisplayLayout renders dates in reports.
	DisplayLayout = "02/01/2006"
)

// ist is used when the tz database is unavailable on the host.
var ist = time.FixedZone("IST", 5*60*60+30*60)

// Reporting is a clock pinned to one location.
type Reporting struct {
	loc *time.Location
	now func() time.Time
}

// New creates a reporting clock for the named zone. An empty name selects IST.
func New(name string) (*Reporting, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if name != DefaultTimezone {
			return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
		}
		loc = ist
	}
	return &Reporting{loc: loc, now: time.Now}, nil
}

// MustIST returns an IST clock and never fails.
func MustIST() *Reporting {
	c, err := New(DefaultTimezone)
	if err != nil {
		return &Reporting{loc: ist, now: time.Now}
	}
	return c
}

// Fixed returns a copy of c that always reports t. Used by tests and replays.
func (c *Reporting) Fixed(t time.Time) *Reporting {
	return &Reporting{loc: c.loc, now: func() time.Time { return t }}
}

// WithNow returns a copy of c driven by now.
func (c *Reporting) WithNow(now func() time.Time) *Reporting {
	return &Reporting{loc: c.loc, now: now}
}

// Location returns the reporting location.
func (c *Reporting) Location() *time.Location {
	return c.loc
}

// Now returns the current instant in the reporting location.
func (c *Reporting) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns today's storage date (YYYY-MM-DD).
func (c *Reporting) Today() string {
	return c.Now().Format(DateLayout)
}

// DateOf returns the storage date of t in the reporting location.
func (c *Reporting) DateOf(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// TimeOf returns the wall-clock time of t in the reporting location.
func (c *Reporting) TimeOf(t time.Time) string {
	return t.In(c.loc).Format(TimeLayout)
}

// ParseDate parses a storage date as midnight in the reporting location.
func (c *Reporting) ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

// DisplayDate converts a storage date to DD/MM/YYYY. Unparseable input is
// returned unchanged.
func DisplayDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(DisplayLayout)
}

// MonthKey returns YYYY-MM for a storage date.
func MonthKey(date string) string {
	if len(date) < len(MonthLayout) {
		return date
	}
	return date[:len(MonthLayout)]
}

// YearKey returns YYYY for a storage date.
func YearKey(date string) string {
	if len(date) < len(YearLayout) {
		return date
	}
	return date[:len(YearLayout)]
}
