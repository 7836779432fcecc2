package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"
)

// FeedEvent is one entry of a generated calendar feed.
type FeedEvent struct {
	UID   string
	Title string
	Start time.Time
	End   time.Time
}

// RenderFeed serializes events into a publishable iCalendar document.
func RenderFeed(calendarName string, events []FeedEvent) []byte {
	cal := ical.NewCalendar()
	cal.SetProductId("-//timetable-api//schedule feed//EN")
	cal.SetMethod(ical.MethodPublish)
	if calendarName != "" {
		cal.SetXWRCalName(calendarName)
	}

	now := time.Now().UTC()
	for _, ev := range events {
		entry := cal.AddEvent(ev.UID)
		entry.SetDtStampTime(now)
		entry.SetStartAt(ev.Start)
		entry.SetEndAt(ev.End)
		entry.SetSummary(ev.Title)
	}

	return []byte(cal.Serialize())
}
