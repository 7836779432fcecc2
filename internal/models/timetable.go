package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/mattva01/timetable-api/internal/timetable"
)

// Timetable is the persisted schedule definition for one owner (a section, a
// resource or a person) within a term. Meetings and events are never stored;
// they are regenerated from this definition on demand.
type Timetable struct {
	ID        string            `db:"id" json:"id"`
	OwnerID   string            `db:"owner_id" json:"owner_id"`
	Title     string            `db:"title" json:"title"`
	TermID    string            `db:"term_id" json:"term_id"`
	Timezone  string            `db:"timezone" json:"timezone"`
	Policy    timetable.Policy  `db:"policy" json:"policy"`
	DayIDs    pq.StringArray    `db:"day_ids" json:"day_ids" swaggertype:"array,string"`
	FirstDay  time.Time         `db:"first_day" json:"first_day"`
	LastDay   time.Time         `db:"last_day" json:"last_day"`
	IsActive  bool              `db:"is_active" json:"is_active"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// TimetableFilter describes query params for listing timetables.
type TimetableFilter struct {
	TermID    string
	OwnerID   string
	IsActive  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// TemplateAxis distinguishes the two template dimensions of a timetable.
type TemplateAxis string

const (
	// AxisPeriod holds the period templates (what is taught).
	AxisPeriod TemplateAxis = "PERIOD"
	// AxisTimeSlot holds the optional time-slot templates (when it is taught).
	AxisTimeSlot TemplateAxis = "TIME_SLOT"
)

// TemplateEntry is one persisted row of a day template on either axis.
// StartTime is a wall-clock "HH:MM" string; anchoring to dates and zones
// happens in the engine at generation time.
type TemplateEntry struct {
	ID              string       `db:"id" json:"id"`
	TimetableID     string       `db:"timetable_id" json:"timetable_id"`
	Axis            TemplateAxis `db:"axis" json:"axis"`
	DayID           string       `db:"day_id" json:"day_id"`
	Key             string       `db:"key" json:"key"`
	ActivityType    string       `db:"activity_type" json:"activity_type"`
	StartTime       string       `db:"start_time" json:"start_time"`
	DurationMinutes int          `db:"duration_minutes" json:"duration_minutes"`
	Position        int          `db:"position" json:"position"`
}
