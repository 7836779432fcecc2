package dto

// CreateExceptionRequest adds one per-date meeting patch to a timetable.
// REMOVE needs only periodKey; ADD and REPLACE also need the replacement
// start time and duration.
type CreateExceptionRequest struct {
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Kind            string `json:"kind" validate:"required,oneof=ADD REMOVE REPLACE"`
	PeriodKey       string `json:"periodKey" validate:"required"`
	StartTime       string `json:"startTime" validate:"required_unless=Kind REMOVE,omitempty,datetime=15:04"`
	DurationMinutes int    `json:"durationMinutes" validate:"required_unless=Kind REMOVE,omitempty,min=1"`
	Comment         string `json:"comment"`
}

// EmergencyDayRequest moves the meetings of a closed date onto a
// substitute date.
type EmergencyDayRequest struct {
	ClosedDate     string `json:"closedDate" validate:"required,datetime=2006-01-02"`
	SubstituteDate string `json:"substituteDate" validate:"required,datetime=2006-01-02"`
	Comment        string `json:"comment"`
}

// EmergencyDayResponse reports the exceptions written by the move.
type EmergencyDayResponse struct {
	MovedMeetings  int    `json:"movedMeetings"`
	ClosedDate     string `json:"closedDate"`
	SubstituteDate string `json:"substituteDate"`
}
