package models

import (
	"time"

	"github.com/mattva01/timetable-api/internal/timetable"
)

// TimetableException is one persisted per-date meeting patch. REMOVE rows use
// only PeriodKey; ADD and REPLACE rows carry the fully resolved replacement
// fields so cross-date moves never reference another date's template.
type TimetableException struct {
	ID              string                  `db:"id" json:"id"`
	TimetableID     string                  `db:"timetable_id" json:"timetable_id"`
	Date            time.Time               `db:"date" json:"date"`
	Kind            timetable.ExceptionKind `db:"kind" json:"kind"`
	PeriodKey       string                  `db:"period_key" json:"period_key"`
	StartTime       *string                 `db:"start_time" json:"start_time,omitempty"`
	DurationMinutes *int                    `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Comment         string                  `db:"comment" json:"comment"`
	CreatedAt       time.Time               `db:"created_at" json:"created_at"`
}
