package models

import (
	"time"

	"github.com/lib/pq"
)

// Term models a school term: the dated calendar window that classifies each
// date as schoolday or holiday for the timetables attached to it.
type Term struct {
	ID           string        `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	AcademicYear string        `db:"academic_year" json:"academic_year"`
	Timezone     string        `db:"timezone" json:"timezone"`
	FirstDay     time.Time     `db:"first_day" json:"first_day"`
	LastDay      time.Time     `db:"last_day" json:"last_day"`
	TeachingDays pq.Int64Array `db:"teaching_days" json:"teaching_days" swaggertype:"array,integer"`
	IsActive     bool          `db:"is_active" json:"is_active"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// TermFilter defines filters supported by term list endpoints.
type TermFilter struct {
	AcademicYear string
	IsActive     *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// DayOverrideKind enumerates manual date-level calendar overrides.
type DayOverrideKind string

const (
	// DayOverrideAddSchoolday turns a scheduled holiday into a schoolday.
	DayOverrideAddSchoolday DayOverrideKind = "ADD_SCHOOLDAY"
	// DayOverrideRemoveSchoolday turns a schoolday into a holiday (for
	// example an emergency closure).
	DayOverrideRemoveSchoolday DayOverrideKind = "REMOVE_SCHOOLDAY"
	// DayOverridePinDayID forces a specific day id onto a date, used when a
	// substitute date runs a closed date's pattern.
	DayOverridePinDayID DayOverrideKind = "PIN_DAY_ID"
)

// TermDayOverride is one manual date-level override within a term calendar.
type TermDayOverride struct {
	ID        string          `db:"id" json:"id"`
	TermID    string          `db:"term_id" json:"term_id"`
	Date      time.Time       `db:"date" json:"date"`
	Kind      DayOverrideKind `db:"kind" json:"kind"`
	DayID     *string         `db:"day_id" json:"day_id,omitempty"`
	Comment   string          `db:"comment" json:"comment"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
