package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleAxisRegistry(t *testing.T) *Registry {
	t.Helper()
	day1 := NewDayTemplate()
	require.NoError(t, day1.Add(TemplateSlot{Key: "A", Start: mustTimeOfDay(t, "08:00"), Duration: 55 * time.Minute}))
	require.NoError(t, day1.Add(TemplateSlot{Key: "B", Start: mustTimeOfDay(t, "09:00"), Duration: 55 * time.Minute}))

	day2 := NewDayTemplate()
	require.NoError(t, day2.Add(TemplateSlot{Key: "A", Start: mustTimeOfDay(t, "08:30"), Duration: 55 * time.Minute}))

	registry := NewRegistry()
	registry.Put("Day 1", day1)
	registry.Put("Day 2", day2)
	return registry
}

func newTestSchedule(t *testing.T, cal *TermCalendar, cfg ScheduleConfig) *Schedule {
	t.Helper()
	cls := NewClassifier(cfg.Policy, cal, cfg.DayIDs)
	sched, err := NewSchedule(cfg, cls)
	require.NoError(t, err)
	return sched
}

func TestScheduleMeetingsExampleRotation(t *testing.T) {
	// Wed/Thu/Fri are three consecutive schooldays mapping to Day 1, Day 2, Day 1.
	cal := weekTermCalendar(t, date(2026, time.September, 9), date(2026, time.September, 11))
	sched := newTestSchedule(t, cal, ScheduleConfig{
		DayIDs:   []string{"Day 1", "Day 2"},
		Policy:   PolicySequential,
		Timezone: "UTC",
		First:    cal.First(),
		Last:     cal.Last(),
		Periods:  singleAxisRegistry(t),
	})

	days, err := sched.Meetings(date(2026, time.September, 9), date(2026, time.September, 12))
	require.NoError(t, err)
	require.Len(t, days, 3)

	keysAt := func(day DayMeetings) []string {
		var out []string
		for _, m := range day.Meetings {
			out = append(out, m.PeriodKey+" "+m.Start.Format("15:04"))
		}
		return out
	}
	assert.Equal(t, []string{"A 08:00", "B 09:00"}, keysAt(days[0]))
	assert.Equal(t, []string{"A 08:30"}, keysAt(days[1]))
	assert.Equal(t, []string{"A 08:00", "B 09:00"}, keysAt(days[2]))
}

func TestScheduleMeetingsHalfOpenRangeAndHolidays(t *testing.T) {
	cal := weekTermCalendar(t, date(2026, time.September, 7), date(2026, time.September, 13))
	sched := newTestSchedule(t, cal, ScheduleConfig{
		DayIDs:   []string{"Day 1", "Day 2"},
		Policy:   PolicySequential,
		Timezone: "UTC",
		First:    cal.First(),
		Last:     cal.Last(),
		Periods:  singleAxisRegistry(t),
	})

	// Friday through Sunday, half-open: Saturday included (empty), Sunday excluded.
	days, err := sched.Meetings(date(2026, time.September, 11), date(2026, time.September, 13))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.NotEmpty(t, days[0].Meetings)
	assert.Empty(t, days[1].Meetings)
}

func TestScheduleIterMeetingsIsRestartable(t *testing.T) {
	cal := weekTermCalendar(t, date(2026, time.September, 7), date(2026, time.September, 11))
	sched := newTestSchedule(t, cal, ScheduleConfig{
		DayIDs:   []string{"Day 1", "Day 2"},
		Policy:   PolicySequential,
		Timezone: "UTC",
		First:    cal.First(),
		Last:     cal.Last(),
		Periods:  singleAxisRegistry(t),
	})

	collect := func() []DayMeetings {
		var out []DayMeetings
		it := sched.IterMeetings(date(2026, time.September, 7), date(2026, time.September, 10))
		for it.Next() {
			out = append(out, it.Day())
		}
		require.NoError(t, it.Err())
		return out
	}

	first := collect()
	second := collect()
	assert.Equal(t, first, second)
}

func TestScheduleMeetingsAcrossDSTBoundary(t *testing.T) {
	// Europe/Vilnius leaves summer time on Sunday 2026-10-25: Friday the 23rd
	// runs at UTC+3, Monday the 26th at UTC+2.
	cal := weekTermCalendar(t, date(2026, time.October, 19), date(2026, time.October, 30))
	sched := newTestSchedule(t, cal, ScheduleConfig{
		DayIDs:   []string{"Day 1"},
		Policy:   PolicySequential,
		Timezone: "Europe/Vilnius",
		First:    cal.First(),
		Last:     cal.Last(),
		Periods:  singleAxisRegistry(t),
	})

	days, err := sched.Meetings(date(2026, time.October, 23), date(2026, time.October, 27))
	require.NoError(t, err)
	require.Len(t, days, 4)

	friday := days[0].Meetings[0]
	monday := days[3].Meetings[0]
	require.Equal(t, "08:00", friday.Start.Format("15:04"))
	require.Equal(t, "08:00", monday.Start.Format("15:04"))

	// Same wall-clock time, one hour apart in UTC.
	fridayUTC := friday.Start.UTC()
	mondayUTC := monday.Start.UTC()
	assert.Equal(t, 5, fridayUTC.Hour())
	assert.Equal(t, 6, mondayUTC.Hour())
}

func TestScheduleCombinationDropsUnmatchedSlots(t *testing.T) {
	periods := NewDayTemplate()
	require.NoError(t, periods.Add(TemplateSlot{Key: "Math", ActivityType: "lesson"}))
	require.NoError(t, periods.Add(TemplateSlot{Key: "Art", ActivityType: "lesson"}))
	// No "assembly" time slot exists, so this period can never produce a meeting.
	require.NoError(t, periods.Add(TemplateSlot{Key: "Assembly", ActivityType: "assembly"}))

	times := NewDayTemplate()
	require.NoError(t, times.Add(TemplateSlot{Key: "1", ActivityType: "lesson", Start: mustTimeOfDay(t, "08:00"), Duration: 45 * time.Minute}))
	require.NoError(t, times.Add(TemplateSlot{Key: "2", ActivityType: "lesson", Start: mustTimeOfDay(t, "09:00"), Duration: 45 * time.Minute}))
	// A lunch placeholder with no matching period is silently unused.
	require.NoError(t, times.Add(TemplateSlot{Key: "3", ActivityType: "lunch", Start: mustTimeOfDay(t, "12:00"), Duration: 30 * time.Minute}))

	combined := combineTemplates(periods, times)
	require.Len(t, combined, 2)
	assert.Equal(t, "Math", combined[0].Key)
	assert.Equal(t, "08:00", combined[0].Start.String())
	assert.Equal(t, "Art", combined[1].Key)
	assert.Equal(t, "09:00", combined[1].Start.String())
}

func TestScheduleTwoAxisGeneration(t *testing.T) {
	periods := NewDayTemplate()
	require.NoError(t, periods.Add(TemplateSlot{Key: "Math", ActivityType: "lesson"}))

	times := NewDayTemplate()
	require.NoError(t, times.Add(TemplateSlot{Key: "1", ActivityType: "lesson", Start: mustTimeOfDay(t, "10:15"), Duration: 40 * time.Minute}))

	periodRegistry := NewRegistry()
	periodRegistry.Put("Day 1", periods)
	timeRegistry := NewRegistry()
	timeRegistry.Put("Day 1", times)

	cal := weekTermCalendar(t, date(2026, time.September, 7), date(2026, time.September, 7))
	sched := newTestSchedule(t, cal, ScheduleConfig{
		DayIDs:    []string{"Day 1"},
		Policy:    PolicySequential,
		Timezone:  "UTC",
		First:     cal.First(),
		Last:      cal.Last(),
		Periods:   periodRegistry,
		TimeSlots: timeRegistry,
	})

	days, err := sched.Meetings(cal.First(), cal.First().AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Len(t, days[0].Meetings, 1)
	assert.Equal(t, "Math", days[0].Meetings[0].PeriodKey)
	assert.Equal(t, "10:15", days[0].Meetings[0].Start.Format("15:04"))
}

func TestScheduleSortsMeetingsByStartThenKey(t *testing.T) {
	day1 := NewDayTemplate()
	// Inserted out of chronological order, plus a tie on start time.
	require.NoError(t, day1.Add(TemplateSlot{Key: "C", Start: mustTimeOfDay(t, "10:00"), Duration: 30 * time.Minute}))
	require.NoError(t, day1.Add(TemplateSlot{Key: "B", Start: mustTimeOfDay(t, "08:00"), Duration: 30 * time.Minute}))
	require.NoError(t, day1.Add(TemplateSlot{Key: "A", Start: mustTimeOfDay(t, "10:00"), Duration: 30 * time.Minute}))
	registry := NewRegistry()
	registry.Put("Day 1", day1)

	cal := weekTermCalendar(t, date(2026, time.September, 7), date(2026, time.September, 7))
	sched := newTestSchedule(t, cal, ScheduleConfig{
		DayIDs:   []string{"Day 1"},
		Policy:   PolicySequential,
		Timezone: "UTC",
		First:    cal.First(),
		Last:     cal.Last(),
		Periods:  registry,
	})

	days, err := sched.Meetings(cal.First(), cal.First().AddDate(0, 0, 1))
	require.NoError(t, err)
	var keys []string
	for _, m := range days[0].Meetings {
		keys = append(keys, m.PeriodKey)
	}
	assert.Equal(t, []string{"B", "A", "C"}, keys)
}

func TestNewScheduleFailFastValidation(t *testing.T) {
	cal := weekTermCalendar(t, date(2026, time.September, 7), date(2026, time.September, 11))
	registry := singleAxisRegistry(t)
	cls := NewSequentialClassifier(cal, []string{"Day 1", "Day 2", "Day 3"})

	// Day 3 has no template: configuration error at definition time.
	_, err := NewSchedule(ScheduleConfig{
		DayIDs:   []string{"Day 1", "Day 2", "Day 3"},
		Policy:   PolicySequential,
		Timezone: "UTC",
		First:    cal.First(),
		Last:     cal.Last(),
		Periods:  registry,
	}, cls)
	var unknown *UnknownDayIDError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Day 3", unknown.DayID)

	_, err = NewSchedule(ScheduleConfig{
		DayIDs:   []string{"Day 1"},
		Policy:   PolicySequential,
		Timezone: "Mars/Olympus_Mons",
		First:    cal.First(),
		Last:     cal.Last(),
		Periods:  registry,
	}, cls)
	var badZone *InvalidTimezoneError
	require.ErrorAs(t, err, &badZone)
	assert.Equal(t, "Mars/Olympus_Mons", badZone.Name)

	_, err = NewSchedule(ScheduleConfig{
		Policy:   PolicySequential,
		Timezone: "UTC",
		First:    cal.First(),
		Last:     cal.Last(),
		Periods:  registry,
	}, cls)
	require.Error(t, err)
}

func TestScheduleMeetingsOutOfRange(t *testing.T) {
	cal := weekTermCalendar(t, date(2026, time.September, 7), date(2026, time.September, 11))
	sched := newTestSchedule(t, cal, ScheduleConfig{
		DayIDs:   []string{"Day 1", "Day 2"},
		Policy:   PolicySequential,
		Timezone: "UTC",
		First:    cal.First(),
		Last:     cal.Last(),
		Periods:  singleAxisRegistry(t),
	})

	_, err := sched.Meetings(date(2026, time.September, 10), date(2026, time.September, 20))
	require.Error(t, err)
	var rangeErr *OutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
}
