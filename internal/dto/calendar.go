package dto

import "github.com/mattva01/timetable-api/internal/models"

// CalendarQuery captures the date window of meetings and events endpoints.
// From is inclusive, until exclusive.
type CalendarQuery struct {
	From  string `form:"from" json:"from" validate:"required,datetime=2006-01-02"`
	Until string `form:"until" json:"until" validate:"required,datetime=2006-01-02"`
}

// MeetingsResponse groups generated meetings per date.
type MeetingsResponse struct {
	TimetableID string               `json:"timetableId"`
	Timezone    string               `json:"timezone"`
	Days        []models.DaySchedule `json:"days"`
}

// EventsResponse carries projected calendar events.
type EventsResponse struct {
	TimetableID string                  `json:"timetableId"`
	Events      []models.ProjectedEvent `json:"events"`
}
