package timetable

import "time"

// Classifier decides, per date, whether school is in session and which day id
// applies. DayID is only defined for dates where IsSchoolday returns true.
type Classifier interface {
	IsSchoolday(date time.Time) (bool, error)
	DayID(date time.Time) (string, error)
}

// Policy selects a day id assignment model.
type Policy string

const (
	// PolicySequential rotates day ids across schooldays only: holidays do not
	// consume a rotation slot, so the day id sequence stays dense.
	PolicySequential Policy = "SEQUENTIAL"
	// PolicyWeekday derives the day id directly from the date's weekday,
	// regardless of how many prior schooldays existed.
	PolicyWeekday Policy = "WEEKDAY"
)

// NewClassifier builds the classifier for the given policy.
func NewClassifier(policy Policy, cal *TermCalendar, dayIDs []string) Classifier {
	if policy == PolicyWeekday {
		return NewWeekdayClassifier(cal, dayIDs)
	}
	return NewSequentialClassifier(cal, dayIDs)
}

// SequentialClassifier assigns day ids by counting schooldays from the start
// of the term, cycling through the configured day ids. The full assignment is
// computed once at construction from a calendar snapshot, so the classifier is
// immutable and safe for concurrent readers.
type SequentialClassifier struct {
	cal      *TermCalendar
	assigned map[string]string
}

// NewSequentialClassifier precomputes the rotation over the calendar's schooldays.
func NewSequentialClassifier(cal *TermCalendar, dayIDs []string) *SequentialClassifier {
	assigned := make(map[string]string)
	index := 0
	for d := cal.First(); !d.After(cal.Last()); d = d.AddDate(0, 0, 1) {
		isSchool, err := cal.IsSchoolday(d)
		if err != nil || !isSchool {
			continue
		}
		key := dateKey(d)
		if len(dayIDs) > 0 {
			assigned[key] = dayIDs[index%len(dayIDs)]
		}
		index++
		// A pin relabels the date but still consumes its rotation slot, so
		// assignments for later schooldays stay untouched.
		if pinned, ok := cal.PinnedDayID(d); ok {
			assigned[key] = pinned
		}
	}
	return &SequentialClassifier{cal: cal, assigned: assigned}
}

// IsSchoolday defers to the term calendar.
func (c *SequentialClassifier) IsSchoolday(date time.Time) (bool, error) {
	return c.cal.IsSchoolday(date)
}

// DayID returns the rotating day id assigned to a schoolday.
func (c *SequentialClassifier) DayID(date time.Time) (string, error) {
	if _, err := c.cal.IsSchoolday(date); err != nil {
		return "", err
	}
	return c.assigned[dateKey(date)], nil
}

// WeekdayClassifier assigns day ids as a pure function of the weekday.
type WeekdayClassifier struct {
	cal    *TermCalendar
	dayIDs []string
}

// NewWeekdayClassifier builds the weekday-based classifier.
func NewWeekdayClassifier(cal *TermCalendar, dayIDs []string) *WeekdayClassifier {
	ids := make([]string, len(dayIDs))
	copy(ids, dayIDs)
	return &WeekdayClassifier{cal: cal, dayIDs: ids}
}

// IsSchoolday defers to the term calendar.
func (c *WeekdayClassifier) IsSchoolday(date time.Time) (bool, error) {
	return c.cal.IsSchoolday(date)
}

// DayID maps the weekday onto the configured day ids, honoring per-date pins.
func (c *WeekdayClassifier) DayID(date time.Time) (string, error) {
	if _, err := c.cal.IsSchoolday(date); err != nil {
		return "", err
	}
	if pinned, ok := c.cal.PinnedDayID(date); ok {
		return pinned, nil
	}
	if len(c.dayIDs) == 0 {
		return "", nil
	}
	// Monday-based index: the first configured day id belongs to Monday, so a
	// five-id rotation covers a standard teaching week in order.
	weekday := (int(date.Weekday()) + 6) % 7
	return c.dayIDs[weekday%len(c.dayIDs)], nil
}
