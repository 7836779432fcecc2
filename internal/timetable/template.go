package timetable

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// TimeOfDay is a wall-clock time with minute resolution, independent of any date
// or timezone. Anchoring it to a concrete date happens at generation time so
// that DST offset changes are resolved per date, never baked in.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" into a TimeOfDay.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(raw, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", raw, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", raw)
	}
	return t, nil
}

// String renders the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On anchors the wall-clock time to the given calendar date in loc. The
// conversion goes through the zone database, so the same wall-clock time on
// two sides of a DST transition maps to different UTC offsets.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// TemplateSlot is one entry of a day template: a period or time slot key, the
// local start time and the duration. ActivityType groups slots when a period
// template is combined with a separate time-slot template.
type TemplateSlot struct {
	Key          string
	ActivityType string
	Start        TimeOfDay
	Duration     time.Duration
}

// DayTemplate is the ordered set of slots making up one logical school day.
// Insertion order is preserved rather than sorting by time, because two
// templates may be combined index-by-index.
type DayTemplate struct {
	slots []TemplateSlot
	keys  map[string]struct{}
}

// NewDayTemplate returns an empty template.
func NewDayTemplate() *DayTemplate {
	return &DayTemplate{keys: make(map[string]struct{})}
}

// Add inserts a slot, rejecting duplicate keys.
func (t *DayTemplate) Add(slot TemplateSlot) error {
	if _, exists := t.keys[slot.Key]; exists {
		return &DuplicateKeyError{Key: slot.Key}
	}
	t.keys[slot.Key] = struct{}{}
	t.slots = append(t.slots, slot)
	return nil
}

// Slots returns the slots in insertion order. The returned slice is a copy, so
// callers may range over it repeatedly or mutate it freely.
func (t *DayTemplate) Slots() []TemplateSlot {
	out := make([]TemplateSlot, len(t.slots))
	copy(out, t.slots)
	return out
}

// Len reports the number of slots in the template.
func (t *DayTemplate) Len() int {
	return len(t.slots)
}

// Registry maps day ids to day templates.
type Registry struct {
	templates map[string]*DayTemplate
	order     []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*DayTemplate)}
}

// Put registers the template for a day id, replacing any previous one.
func (r *Registry) Put(dayID string, template *DayTemplate) {
	if _, exists := r.templates[dayID]; !exists {
		r.order = append(r.order, dayID)
	}
	r.templates[dayID] = template
}

// Get resolves the template for a day id. Absence is a configuration error.
func (r *Registry) Get(dayID string) (*DayTemplate, error) {
	template, ok := r.templates[dayID]
	if !ok {
		return nil, &UnknownDayIDError{DayID: dayID}
	}
	return template, nil
}

// Has reports whether a template is registered for the day id.
func (r *Registry) Has(dayID string) bool {
	_, ok := r.templates[dayID]
	return ok
}

// DayIDs returns the registered day ids in registration order.
func (r *Registry) DayIDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
