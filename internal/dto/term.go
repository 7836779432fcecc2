package dto

// CreateTermRequest creates a term calendar window.
type CreateTermRequest struct {
	Name         string  `json:"name" validate:"required"`
	AcademicYear string  `json:"academicYear"`
	Timezone     string  `json:"timezone" validate:"required"`
	FirstDay     string  `json:"firstDay" validate:"required,datetime=2006-01-02"`
	LastDay      string  `json:"lastDay" validate:"required,datetime=2006-01-02"`
	TeachingDays []int64 `json:"teachingDays" validate:"omitempty,dive,min=0,max=6"`
}

// UpdateTermRequest mutates a term. Zero-valued fields are left untouched.
type UpdateTermRequest struct {
	Name         *string `json:"name"`
	AcademicYear *string `json:"academicYear"`
	Timezone     *string `json:"timezone"`
	FirstDay     *string `json:"firstDay" validate:"omitempty,datetime=2006-01-02"`
	LastDay      *string `json:"lastDay" validate:"omitempty,datetime=2006-01-02"`
	TeachingDays []int64 `json:"teachingDays" validate:"omitempty,dive,min=0,max=6"`
}

// CreateDayOverrideRequest adds one date-level calendar override to a term.
type CreateDayOverrideRequest struct {
	Date    string  `json:"date" validate:"required,datetime=2006-01-02"`
	Kind    string  `json:"kind" validate:"required,oneof=ADD_SCHOOLDAY REMOVE_SCHOOLDAY PIN_DAY_ID"`
	DayID   *string `json:"dayId" validate:"required_if=Kind PIN_DAY_ID"`
	Comment string  `json:"comment"`
}

// ImportHolidaysRequest uploads an ICS feed whose events become
// REMOVE_SCHOOLDAY overrides within the term range.
type ImportHolidaysRequest struct {
	ICS string `json:"ics" validate:"required"`
}

// ImportHolidaysResponse reports how many override dates were written.
type ImportHolidaysResponse struct {
	ImportedDates []string `json:"importedDates"`
	SkippedDates  []string `json:"skippedDates"`
}

// TermCalendarDay is one projected calendar date of a term.
type TermCalendarDay struct {
	Date      string  `json:"date"`
	Schoolday bool    `json:"schoolday"`
	PinnedDay *string `json:"pinnedDayId,omitempty"`
}
