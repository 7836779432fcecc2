package models

import "time"

// ProjectedEvent is the API shape of one projected calendar event. Events are
// a view over the timetable definition: recomputed per request (or served from
// cache), never stored.
type ProjectedEvent struct {
	UID             string    `json:"uid"`
	Title           string    `json:"title"`
	OwnerID         string    `json:"owner_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	PeriodKey       string    `json:"period_key"`
}

// DaySchedule is the meeting list generated for one calendar date.
type DaySchedule struct {
	Date     string           `json:"date"`
	DayID    string           `json:"day_id,omitempty"`
	Holiday  bool             `json:"holiday"`
	Meetings []MeetingPayload `json:"meetings"`
}

// MeetingPayload is the API shape of one generated meeting.
type MeetingPayload struct {
	PeriodKey       string    `json:"period_key"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
}
