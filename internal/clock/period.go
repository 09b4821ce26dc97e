package clock

import (
	"fmt"
	"time"
)

// Period names a reporting window relative to today.
type Period string

const (
	PeriodToday  Period = "today"
	PeriodWeek   Period = "week"
	PeriodMonth  Period = "month"
	PeriodYear   Period = "year"
	PeriodCustom Period = "custom"
)

// Range is an inclusive pair of storage dates.
type Range struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Contains reports whether date falls inside r. Storage dates compare as strings.
func (r Range) Contains(date string) bool {
	return date >= r.From && date <= r.To
}

// Range resolves a period to concrete dates. Weeks start on Sunday. For
// PeriodCustom, from and to are validated and returned as given.
func (c *Reporting) Range(p Period, from, to string) (Range, error) {
	now := c.Now()
	today := now.Format(DateLayout)

	switch p {
	case PeriodToday, "":
		return Range{From: today, To: today}, nil
	case PeriodWeek:
		start := now.AddDate(0, 0, -int(now.Weekday()))
		return Range{From: start.Format(DateLayout), To: today}, nil
	case PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, c.loc)
		return Range{From: start.Format(DateLayout), To: today}, nil
	case PeriodYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, c.loc)
		return Range{From: start.Format(DateLayout), To: today}, nil
	case PeriodCustom:
		if _, err := c.ParseDate(from); err != nil {
			return Range{}, err
		}
		if _, err := c.ParseDate(to); err != nil {
			return Range{}, err
		}
		if from > to {
			return Range{}, fmt.Errorf("range start %s is after end %s", from, to)
		}
		return Range{From: from, To: to}, nil
	}
	return Range{}, fmt.Errorf("unknown period %q", p)
}
