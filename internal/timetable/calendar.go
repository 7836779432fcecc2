package timetable

import (
	"fmt"
	"time"
)

// DateOf truncates a timestamp to its calendar date, normalized to midnight UTC.
// Range bounds and exception keys are plain dates; only meeting starts carry a
// zone.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// TermCalendar classifies each date of a term as schoolday or holiday and
// carries manual date-level overrides (added/removed schooldays, pinned day
// ids for emergency shifts). It is the data source behind both classifier
// policies.
type TermCalendar struct {
	first time.Time
	last  time.Time

	schooldays map[string]bool
	dayIDPins  map[string]string
}

// NewTermCalendar creates a calendar covering [first, last] inclusive.
func NewTermCalendar(first, last time.Time) (*TermCalendar, error) {
	first, last = DateOf(first), DateOf(last)
	if last.Before(first) {
		return nil, fmt.Errorf("term calendar last date %s before first date %s",
			last.Format(dateLayout), first.Format(dateLayout))
	}
	return &TermCalendar{
		first:      first,
		last:       last,
		schooldays: make(map[string]bool),
		dayIDPins:  make(map[string]string),
	}, nil
}

// First returns the first covered date.
func (c *TermCalendar) First() time.Time { return c.first }

// Last returns the last covered date.
func (c *TermCalendar) Last() time.Time { return c.last }

// AddSchoolday marks a date as a schoolday.
func (c *TermCalendar) AddSchoolday(date time.Time) error {
	if !c.contains(date) {
		return c.rangeError(date)
	}
	c.schooldays[dateKey(date)] = true
	return nil
}

// RemoveSchoolday marks a date as a holiday.
func (c *TermCalendar) RemoveSchoolday(date time.Time) error {
	if !c.contains(date) {
		return c.rangeError(date)
	}
	delete(c.schooldays, dateKey(date))
	return nil
}

// AddWeekdays marks every occurrence of the given weekdays within the covered
// range as schooldays.
func (c *TermCalendar) AddWeekdays(weekdays ...time.Weekday) {
	wanted := make(map[time.Weekday]bool, len(weekdays))
	for _, w := range weekdays {
		wanted[w] = true
	}
	for d := c.first; !d.After(c.last); d = d.AddDate(0, 0, 1) {
		if wanted[d.Weekday()] {
			c.schooldays[dateKey(d)] = true
		}
	}
}

// PinDayID overrides the day id assignment for one date, regardless of
// classifier policy. Used for emergency day shifts where a substitute date
// runs the closed date's original pattern.
func (c *TermCalendar) PinDayID(date time.Time, dayID string) error {
	if !c.contains(date) {
		return c.rangeError(date)
	}
	c.dayIDPins[dateKey(date)] = dayID
	return nil
}

// PinnedDayID returns the manual day id override for a date, if any.
func (c *TermCalendar) PinnedDayID(date time.Time) (string, bool) {
	id, ok := c.dayIDPins[dateKey(date)]
	return id, ok
}

// IsSchoolday reports whether the date is a schoolday. Dates outside the
// covered range yield an OutOfRangeError rather than a guess.
func (c *TermCalendar) IsSchoolday(date time.Time) (bool, error) {
	if !c.contains(date) {
		return false, c.rangeError(date)
	}
	return c.schooldays[dateKey(date)], nil
}

func (c *TermCalendar) contains(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(c.first) && !d.After(c.last)
}

func (c *TermCalendar) rangeError(date time.Time) error {
	return &OutOfRangeError{Date: DateOf(date), First: c.first, Last: c.last}
}
