package dto

// TemplateEntryPayload is one template row on either axis.
type TemplateEntryPayload struct {
	Axis            string `json:"axis" validate:"required,oneof=PERIOD TIME_SLOT"`
	DayID           string `json:"dayId" validate:"required"`
	Key             string `json:"key" validate:"required"`
	ActivityType    string `json:"activityType"`
	StartTime       string `json:"startTime" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,min=1"`
	Position        int    `json:"position" validate:"min=0"`
}

// CreateTimetableRequest defines a timetable for one owner within a term.
type CreateTimetableRequest struct {
	OwnerID  string   `json:"ownerId" validate:"required"`
	Title    string   `json:"title" validate:"required"`
	TermID   string   `json:"termId" validate:"required"`
	Timezone string   `json:"timezone" validate:"required"`
	Policy   string   `json:"policy" validate:"required,oneof=SEQUENTIAL WEEKDAY"`
	DayIDs   []string `json:"dayIds" validate:"required,min=1,dive,required"`
	FirstDay string   `json:"firstDay" validate:"omitempty,datetime=2006-01-02"`
	LastDay  string   `json:"lastDay" validate:"omitempty,datetime=2006-01-02"`

	Entries []TemplateEntryPayload `json:"entries" validate:"omitempty,dive"`
}

// UpdateTimetableRequest mutates timetable metadata.
type UpdateTimetableRequest struct {
	Title    *string  `json:"title"`
	Timezone *string  `json:"timezone"`
	Policy   *string  `json:"policy" validate:"omitempty,oneof=SEQUENTIAL WEEKDAY"`
	DayIDs   []string `json:"dayIds" validate:"omitempty,min=1,dive,required"`
	FirstDay *string  `json:"firstDay" validate:"omitempty,datetime=2006-01-02"`
	LastDay  *string  `json:"lastDay" validate:"omitempty,datetime=2006-01-02"`
}

// ReplaceTemplateRequest swaps the full template of a timetable.
type ReplaceTemplateRequest struct {
	Entries []TemplateEntryPayload `json:"entries" validate:"required,dive"`
}
