package timetable

import (
	"fmt"
	"time"
)

// DuplicateKeyError is returned when a slot key is inserted twice into one template.
type DuplicateKeyError struct {
	Key string
}

// Error implements the error interface.
func (e *DuplicateKeyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("duplicate slot key %q", e.Key)
}

// UnknownDayIDError is returned when a day id has no registered template.
// An unresolvable day id is a configuration error: silently skipping the day
// would corrupt the generated schedule.
type UnknownDayIDError struct {
	DayID string
}

// Error implements the error interface.
func (e *UnknownDayIDError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("no template registered for day id %q", e.DayID)
}

// OutOfRangeError is returned when a date falls outside the term calendar.
type OutOfRangeError struct {
	Date  time.Time
	First time.Time
	Last  time.Time
}

// Error implements the error interface.
func (e *OutOfRangeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("date %s outside term calendar range [%s, %s]",
		e.Date.Format(dateLayout), e.First.Format(dateLayout), e.Last.Format(dateLayout))
}

// InvalidTimezoneError is returned when a schedule references an unknown IANA zone.
type InvalidTimezoneError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *InvalidTimezoneError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("invalid timezone %q: %v", e.Name, e.Err)
}

// Unwrap returns the wrapped error.
func (e *InvalidTimezoneError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
