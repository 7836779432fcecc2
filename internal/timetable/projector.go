package timetable

import (
	"fmt"
	"time"
)

// Event is a generic calendar event projected from a meeting. Events are a
// view, recomputed on every projection, never persisted by the engine.
type Event struct {
	UID       string
	Title     string
	PeriodKey string
	Start     time.Time
	Duration  time.Duration
}

// End returns the event's end instant.
func (e Event) End() time.Time {
	return e.Start.Add(e.Duration)
}

// Projector converts meetings into calendar events localized to a storage
// timezone. The title comes from the owning object; the projector is generic
// over what is being scheduled.
type Projector struct {
	ownerID string
	title   string
	storage *time.Location
}

// NewProjector builds a projector. A nil storage location defaults to UTC.
func NewProjector(ownerID, title string, storage *time.Location) *Projector {
	if storage == nil {
		storage = time.UTC
	}
	return &Projector{ownerID: ownerID, title: title, storage: storage}
}

// Project converts per-day meeting lists into events. UIDs are deterministic
// from owner, date and period key, so projecting the same range twice yields
// an identical sequence; the storage-zone conversion is where DST compensation
// becomes observable.
func (p *Projector) Project(days []DayMeetings) []Event {
	var out []Event
	for _, day := range days {
		for _, m := range day.Meetings {
			out = append(out, p.event(day.Date, m))
		}
	}
	return out
}

// ProjectMeetings converts a flat meeting list, keying each UID by the
// meeting's own calendar date in the schedule timezone.
func (p *Projector) ProjectMeetings(meetings []Meeting) []Event {
	out := make([]Event, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, p.event(DateOf(m.Start), m))
	}
	return out
}

func (p *Projector) event(date time.Time, m Meeting) Event {
	return Event{
		UID:       EventUID(p.ownerID, date, m.PeriodKey),
		Title:     p.title,
		PeriodKey: m.PeriodKey,
		Start:     m.Start.In(p.storage),
		Duration:  m.Duration,
	}
}

// EventUID derives the stable identifier for a projected event.
func EventUID(ownerID string, date time.Time, periodKey string) string {
	return fmt.Sprintf("%s.%s.%s", ownerID, date.Format(dateLayout), periodKey)
}
