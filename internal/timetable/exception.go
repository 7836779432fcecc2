package timetable

import (
	"fmt"
	"time"
)

// ExceptionKind distinguishes the three per-date patch operations.
type ExceptionKind string

const (
	ExceptionAdd     ExceptionKind = "ADD"
	ExceptionRemove  ExceptionKind = "REMOVE"
	ExceptionReplace ExceptionKind = "REPLACE"
)

// MeetingPatch fully describes a meeting added by an ADD or REPLACE exception.
// It carries its own start time and duration because cross-date moves must not
// reference the original date's template.
type MeetingPatch struct {
	PeriodKey string
	Start     TimeOfDay
	Duration  time.Duration
}

// Exception is one per-date override. REMOVE drops the generated meeting whose
// period key matches; ADD appends the patch as a new meeting; REPLACE is both
// for the same key.
type Exception struct {
	Date      time.Time
	Kind      ExceptionKind
	PeriodKey string
	Patch     *MeetingPatch
}

// ExceptionStore holds per-date meeting patches. Patches for a date are applied
// strictly after normal generation for that date and never reach across date
// boundaries.
type ExceptionStore struct {
	byDate map[string][]Exception
}

// NewExceptionStore returns an empty store.
func NewExceptionStore() *ExceptionStore {
	return &ExceptionStore{byDate: make(map[string][]Exception)}
}

// Put validates and records an exception.
func (s *ExceptionStore) Put(exc Exception) error {
	switch exc.Kind {
	case ExceptionRemove:
		if exc.PeriodKey == "" {
			return fmt.Errorf("remove exception requires a period key")
		}
	case ExceptionAdd, ExceptionReplace:
		if exc.Patch == nil {
			return fmt.Errorf("%s exception requires a meeting patch", exc.Kind)
		}
		if exc.Patch.PeriodKey == "" {
			return fmt.Errorf("%s exception patch requires a period key", exc.Kind)
		}
	default:
		return fmt.Errorf("unknown exception kind %q", exc.Kind)
	}
	key := dateKey(DateOf(exc.Date))
	s.byDate[key] = append(s.byDate[key], exc)
	return nil
}

// ForDate returns the exceptions recorded for a date, in insertion order.
// A missing date is an expected empty result, not an error.
func (s *ExceptionStore) ForDate(date time.Time) []Exception {
	stored := s.byDate[dateKey(DateOf(date))]
	out := make([]Exception, len(stored))
	copy(out, stored)
	return out
}

// Dates returns every date that has at least one exception recorded.
func (s *ExceptionStore) Dates() []string {
	out := make([]string, 0, len(s.byDate))
	for key := range s.byDate {
		out = append(out, key)
	}
	return out
}

// Apply patches the generated meetings for one date. loc anchors ADD/REPLACE
// patch start times to the date.
func (s *ExceptionStore) Apply(date time.Time, loc *time.Location, meetings []Meeting) []Meeting {
	exceptions := s.byDate[dateKey(DateOf(date))]
	if len(exceptions) == 0 {
		return meetings
	}
	// The caller keeps its slice: REMOVE filters in place otherwise.
	out := make([]Meeting, len(meetings))
	copy(out, meetings)
	for _, exc := range exceptions {
		switch exc.Kind {
		case ExceptionRemove:
			out = dropPeriod(out, exc.PeriodKey)
		case ExceptionAdd:
			out = append(out, exc.Patch.meeting(date, loc))
		case ExceptionReplace:
			out = dropPeriod(out, exc.Patch.PeriodKey)
			out = append(out, exc.Patch.meeting(date, loc))
		}
	}
	return out
}

func (p *MeetingPatch) meeting(date time.Time, loc *time.Location) Meeting {
	return Meeting{
		Start:     p.Start.On(DateOf(date), loc),
		Duration:  p.Duration,
		PeriodKey: p.PeriodKey,
	}
}

func dropPeriod(meetings []Meeting, periodKey string) []Meeting {
	out := meetings[:0]
	for _, m := range meetings {
		if m.PeriodKey != periodKey {
			out = append(out, m)
		}
	}
	return out
}
