package ics

import (
	"time"

	"github.com/teambition/rrule-go"
)

const defaultMaxOccurrences = 1000

// HolidayDates expands the given holiday events into concrete calendar
// dates (midnight UTC) within [first, last]. Multi-day events contribute
// every date they cover. Recurring events are expanded through their
// RRULE with EXDATEs removed; maxOccurrences caps runaway rules.
func HolidayDates(events []HolidayEvent, first, last time.Time, maxOccurrences int) []time.Time {
	if maxOccurrences <= 0 {
		maxOccurrences = defaultMaxOccurrences
	}

	seen := make(map[string]struct{})
	dates := make([]time.Time, 0)

	add := func(d time.Time) {
		d = midnightUTC(d)
		if d.Before(first) || d.After(last) {
			return
		}
		key := d.Format("2006-01-02")
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		dates = append(dates, d)
	}

	for _, ev := range events {
		spanDays := eventSpanDays(ev)

		if ev.RawRRule == "" {
			for i := 0; i < spanDays; i++ {
				add(ev.Start.AddDate(0, 0, i))
			}
			continue
		}

		r, err := rrule.StrToRRule(ev.RawRRule)
		if err != nil {
			continue
		}
		r.DTStart(ev.Start)

		count := 0
		for _, occ := range r.Between(first.AddDate(0, 0, -spanDays), last.AddDate(0, 0, 1), true) {
			if count >= maxOccurrences {
				break
			}
			count++
			if isExcluded(ev.ExDates, occ) {
				continue
			}
			for i := 0; i < spanDays; i++ {
				add(occ.AddDate(0, 0, i))
			}
		}
	}

	return dates
}

func eventSpanDays(ev HolidayEvent) int {
	if ev.End.IsZero() || !ev.End.After(ev.Start) {
		return 1
	}
	span := ev.End.Sub(ev.Start)
	days := int(span / (24 * time.Hour))
	if span%(24*time.Hour) != 0 {
		days++
	}
	// DTEND is exclusive for all-day events, so a one-day holiday has
	// span exactly 24h and days stays 1.
	if days < 1 {
		days = 1
	}
	return days
}

func isExcluded(exDates []time.Time, occ time.Time) bool {
	for _, ex := range exDates {
		if midnightUTC(ex).Equal(midnightUTC(occ)) {
			return true
		}
	}
	return false
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
