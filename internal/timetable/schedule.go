// Package timetable turns an abstract weekly schedule definition (day
// templates, periods, time slots) into concrete dated meetings and calendar
// events, compensating for timezone and DST shifts. The package is pure
// computation: generation never mutates shared state, so a Schedule built once
// can serve concurrent readers.
package timetable

import (
	"fmt"
	"sort"
	"time"
)

// Meeting is one concrete scheduled occurrence: a zone-aware start instant,
// a duration and the period it realizes. Meetings are value objects; equality
// is by (Start, PeriodKey).
type Meeting struct {
	Start     time.Time
	Duration  time.Duration
	PeriodKey string
	MeetingID string
}

// End returns the meeting's end instant.
func (m Meeting) End() time.Time {
	return m.Start.Add(m.Duration)
}

// DayMeetings is the generated meeting list for one calendar date.
type DayMeetings struct {
	Date     time.Time
	DayID    string
	Meetings []Meeting
}

// ScheduleConfig describes a schedule definition before validation.
type ScheduleConfig struct {
	DayIDs    []string
	Policy    Policy
	Timezone  string
	First     time.Time
	Last      time.Time
	Periods   *Registry
	TimeSlots *Registry
}

// Schedule combines a template registry, a day classifier, a timezone and a
// validity range; it answers "what meetings occur within [from, until)".
type Schedule struct {
	dayIDs     []string
	policy     Policy
	loc        *time.Location
	first      time.Time
	last       time.Time
	periods    *Registry
	timeSlots  *Registry
	classifier Classifier
	exceptions *ExceptionStore
}

// NewSchedule validates the configuration and builds a schedule. Validation is
// fail-fast: a missing day-id template, an empty day-id list or an unknown
// timezone surfaces here, at definition time, never at first render.
func NewSchedule(cfg ScheduleConfig, classifier Classifier) (*Schedule, error) {
	if len(cfg.DayIDs) == 0 {
		return nil, fmt.Errorf("schedule requires at least one day id")
	}
	if cfg.Periods == nil {
		return nil, fmt.Errorf("schedule requires a period registry")
	}
	if classifier == nil {
		return nil, fmt.Errorf("schedule requires a day classifier")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, &InvalidTimezoneError{Name: cfg.Timezone, Err: err}
	}
	first, last := DateOf(cfg.First), DateOf(cfg.Last)
	if last.Before(first) {
		return nil, fmt.Errorf("schedule last date %s before first date %s",
			last.Format(dateLayout), first.Format(dateLayout))
	}
	for _, dayID := range cfg.DayIDs {
		if !cfg.Periods.Has(dayID) {
			return nil, &UnknownDayIDError{DayID: dayID}
		}
		if cfg.TimeSlots != nil && !cfg.TimeSlots.Has(dayID) {
			return nil, &UnknownDayIDError{DayID: dayID}
		}
	}

	dayIDs := make([]string, len(cfg.DayIDs))
	copy(dayIDs, cfg.DayIDs)
	return &Schedule{
		dayIDs:     dayIDs,
		policy:     cfg.Policy,
		loc:        loc,
		first:      first,
		last:       last,
		periods:    cfg.Periods,
		timeSlots:  cfg.TimeSlots,
		classifier: classifier,
		exceptions: NewExceptionStore(),
	}, nil
}

// Location returns the schedule's timezone.
func (s *Schedule) Location() *time.Location { return s.loc }

// First returns the first date of the validity range.
func (s *Schedule) First() time.Time { return s.first }

// Last returns the last date of the validity range.
func (s *Schedule) Last() time.Time { return s.last }

// DayIDs returns the configured day id rotation.
func (s *Schedule) DayIDs() []string {
	out := make([]string, len(s.dayIDs))
	copy(out, s.dayIDs)
	return out
}

// Exceptions exposes the schedule's exception store.
func (s *Schedule) Exceptions() *ExceptionStore { return s.exceptions }

// SetExceptions replaces the exception store, typically with one hydrated from
// persistence.
func (s *Schedule) SetExceptions(store *ExceptionStore) {
	if store == nil {
		store = NewExceptionStore()
	}
	s.exceptions = store
}

// IterMeetings returns a restartable iterator over the per-day meeting lists
// for every date in the half-open range [from, until), in date order. Holidays
// yield empty lists; dates outside the classifier's range stop iteration with
// an OutOfRangeError.
func (s *Schedule) IterMeetings(from, until time.Time) *MeetingIter {
	return &MeetingIter{
		sched: s,
		next:  DateOf(from),
		until: DateOf(until),
	}
}

// Meetings collects the full iteration into a slice.
func (s *Schedule) Meetings(from, until time.Time) ([]DayMeetings, error) {
	var out []DayMeetings
	it := s.IterMeetings(from, until)
	for it.Next() {
		out = append(out, it.Day())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MeetingIter walks a date range one day at a time. Usage follows the familiar
// rows pattern: Next, Day, then Err after the loop.
type MeetingIter struct {
	sched *Schedule
	next  time.Time
	until time.Time
	day   DayMeetings
	err   error
}

// Next advances to the following date; it returns false at the end of the
// range or on error.
func (it *MeetingIter) Next() bool {
	if it.err != nil || !it.next.Before(it.until) {
		return false
	}
	date := it.next
	it.next = date.AddDate(0, 0, 1)

	meetings, dayID, err := it.sched.meetingsOn(date, true)
	if err != nil {
		it.err = err
		return false
	}
	it.day = DayMeetings{Date: date, DayID: dayID, Meetings: meetings}
	return true
}

// Day returns the current per-day meeting list.
func (it *MeetingIter) Day() DayMeetings { return it.day }

// Err returns the error that stopped iteration, if any.
func (it *MeetingIter) Err() error { return it.err }

// meetingsOn generates the meeting list for one date. applyExceptions is false
// only when capturing the pre-exception state for an emergency day move.
func (s *Schedule) meetingsOn(date time.Time, applyExceptions bool) ([]Meeting, string, error) {
	isSchoolday, err := s.classifier.IsSchoolday(date)
	if err != nil {
		return nil, "", err
	}

	var meetings []Meeting
	var dayID string
	if isSchoolday {
		dayID, err = s.classifier.DayID(date)
		if err != nil {
			return nil, "", err
		}
		entries, err := s.entriesFor(dayID)
		if err != nil {
			return nil, "", err
		}
		meetings = make([]Meeting, 0, len(entries))
		for _, entry := range entries {
			meetings = append(meetings, Meeting{
				Start:     entry.Start.On(date, s.loc),
				Duration:  entry.Duration,
				PeriodKey: entry.Key,
			})
		}
	}

	if applyExceptions {
		meetings = s.exceptions.Apply(date, s.loc, meetings)
	}

	sort.Slice(meetings, func(i, j int) bool {
		if meetings[i].Start.Equal(meetings[j].Start) {
			return meetings[i].PeriodKey < meetings[j].PeriodKey
		}
		return meetings[i].Start.Before(meetings[j].Start)
	})
	return meetings, dayID, nil
}

func (s *Schedule) entriesFor(dayID string) ([]TemplateSlot, error) {
	periods, err := s.periods.Get(dayID)
	if err != nil {
		return nil, err
	}
	if s.timeSlots == nil {
		return periods.Slots(), nil
	}
	times, err := s.timeSlots.Get(dayID)
	if err != nil {
		return nil, err
	}
	return combineTemplates(periods, times), nil
}

// combineTemplates pairs a period template with a separate time-slot template.
// Periods queue up per activity type in template order; each time slot pops the
// next period of its activity type. Time slots with no remaining period and
// periods with no matching time slot are dropped without error: some time
// slots are deliberately unused placeholders.
func combineTemplates(periods, times *DayTemplate) []TemplateSlot {
	queues := make(map[string][]TemplateSlot)
	for _, p := range periods.Slots() {
		queues[p.ActivityType] = append(queues[p.ActivityType], p)
	}

	var out []TemplateSlot
	for _, ts := range times.Slots() {
		queue := queues[ts.ActivityType]
		if len(queue) == 0 {
			continue
		}
		period := queue[0]
		queues[ts.ActivityType] = queue[1:]
		out = append(out, TemplateSlot{
			Key:          period.Key,
			ActivityType: period.ActivityType,
			Start:        ts.Start,
			Duration:     ts.Duration,
		})
	}
	return out
}

// RescheduleEmergency records the exception entries for an emergency closure:
// every meeting generated for the closed date under its original day-id
// assignment is cancelled there and re-added on the substitute date at the
// same wall-clock times. The schedule itself is not regenerated; the move is
// pure exception data, which is why the ADD entries carry fully resolved
// patches instead of references back to the closed date's template.
func (s *Schedule) RescheduleEmergency(closed, substitute time.Time) error {
	closed, substitute = DateOf(closed), DateOf(substitute)
	original, _, err := s.meetingsOn(closed, false)
	if err != nil {
		return fmt.Errorf("capture meetings for closed date %s: %w", closed.Format(dateLayout), err)
	}
	for _, m := range original {
		if err := s.exceptions.Put(Exception{
			Date:      closed,
			Kind:      ExceptionRemove,
			PeriodKey: m.PeriodKey,
		}); err != nil {
			return err
		}
		local := m.Start.In(s.loc)
		if err := s.exceptions.Put(Exception{
			Date: substitute,
			Kind: ExceptionAdd,
			Patch: &MeetingPatch{
				PeriodKey: m.PeriodKey,
				Start:     TimeOfDay{Hour: local.Hour(), Minute: local.Minute()},
				Duration:  m.Duration,
			},
		}); err != nil {
			return err
		}
	}
	return nil
}
