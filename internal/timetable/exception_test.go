package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExceptionStoreValidation(t *testing.T) {
	store := NewExceptionStore()

	require.Error(t, store.Put(Exception{Date: date(2026, time.September, 7), Kind: ExceptionRemove}))
	require.Error(t, store.Put(Exception{Date: date(2026, time.September, 7), Kind: ExceptionAdd}))
	require.Error(t, store.Put(Exception{Date: date(2026, time.September, 7), Kind: "SHUFFLE"}))
	require.NoError(t, store.Put(Exception{
		Date:  date(2026, time.September, 7),
		Kind:  ExceptionAdd,
		Patch: &MeetingPatch{PeriodKey: "A", Start: TimeOfDay{Hour: 8}, Duration: time.Hour},
	}))
	assert.Len(t, store.ForDate(date(2026, time.September, 7)), 1)
	assert.Empty(t, store.ForDate(date(2026, time.September, 8)))
}

func exceptionTestSchedule(t *testing.T) *Schedule {
	t.Helper()
	cal := weekTermCalendar(t, date(2026, time.September, 7), date(2026, time.September, 18))
	return newTestSchedule(t, cal, ScheduleConfig{
		DayIDs:   []string{"Day 1", "Day 2"},
		Policy:   PolicySequential,
		Timezone: "UTC",
		First:    cal.First(),
		Last:     cal.Last(),
		Periods:  singleAxisRegistry(t),
	})
}

func TestExceptionRemoveDropsGeneratedMeeting(t *testing.T) {
	sched := exceptionTestSchedule(t)
	monday := date(2026, time.September, 7)
	require.NoError(t, sched.Exceptions().Put(Exception{Date: monday, Kind: ExceptionRemove, PeriodKey: "B"}))

	days, err := sched.Meetings(monday, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, days[0].Meetings, 1)
	assert.Equal(t, "A", days[0].Meetings[0].PeriodKey)
}

func TestExceptionReplaceOverridesTemplatedMeeting(t *testing.T) {
	sched := exceptionTestSchedule(t)
	monday := date(2026, time.September, 7)
	require.NoError(t, sched.Exceptions().Put(Exception{
		Date: monday,
		Kind: ExceptionReplace,
		Patch: &MeetingPatch{
			PeriodKey: "A",
			Start:     mustTimeOfDay(t, "11:30"),
			Duration:  40 * time.Minute,
		},
	}))

	days, err := sched.Meetings(monday, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, days[0].Meetings, 2)

	// The replacement reflects only the patch, not the original template entry,
	// and the meeting re-sorted into its new chronological position.
	assert.Equal(t, "B", days[0].Meetings[0].PeriodKey)
	replaced := days[0].Meetings[1]
	assert.Equal(t, "A", replaced.PeriodKey)
	assert.Equal(t, "11:30", replaced.Start.Format("15:04"))
	assert.Equal(t, 40*time.Minute, replaced.Duration)
}

func TestExceptionApplyLeavesInputSliceIntact(t *testing.T) {
	store := NewExceptionStore()
	monday := date(2026, time.September, 7)
	require.NoError(t, store.Put(Exception{Date: monday, Kind: ExceptionRemove, PeriodKey: "A"}))

	input := []Meeting{
		{Start: monday.Add(8 * time.Hour), Duration: time.Hour, PeriodKey: "A"},
		{Start: monday.Add(9 * time.Hour), Duration: time.Hour, PeriodKey: "B"},
	}

	out := store.Apply(monday, time.UTC, input)
	require.Len(t, out, 1)
	assert.Equal(t, "B", out[0].PeriodKey)

	// The caller's slice is untouched after filtering.
	require.Len(t, input, 2)
	assert.Equal(t, "A", input[0].PeriodKey)
	assert.Equal(t, "B", input[1].PeriodKey)
}

func TestExceptionAppliesToItsOwnDateOnly(t *testing.T) {
	sched := exceptionTestSchedule(t)
	require.NoError(t, sched.Exceptions().Put(Exception{
		Date:      date(2026, time.September, 7),
		Kind:      ExceptionRemove,
		PeriodKey: "A",
	}))

	days, err := sched.Meetings(date(2026, time.September, 7), date(2026, time.September, 10))
	require.NoError(t, err)
	assert.Len(t, days[0].Meetings, 1)
	// Wednesday is Day 1 again and untouched.
	assert.Len(t, days[2].Meetings, 2)
}

func TestRescheduleEmergencyMovesDayAcrossDates(t *testing.T) {
	sched := exceptionTestSchedule(t)
	closed := date(2026, time.September, 7)     // Day 1: A@08:00, B@09:00
	substitute := date(2026, time.September, 12) // Saturday, normally empty

	require.NoError(t, sched.RescheduleEmergency(closed, substitute))

	days, err := sched.Meetings(closed, substitute.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, days, 6)

	// Closed date lost all meetings.
	assert.Empty(t, days[0].Meetings)
	// The week in between is untouched.
	for _, day := range days[1:5] {
		for _, m := range day.Meetings {
			assert.NotEqual(t, closed, DateOf(m.Start))
		}
	}
	// The substitute Saturday runs the closed date's pattern on its own
	// wall-clock date.
	saturday := days[5]
	require.Len(t, saturday.Meetings, 2)
	assert.Equal(t, "A", saturday.Meetings[0].PeriodKey)
	assert.Equal(t, "08:00", saturday.Meetings[0].Start.Format("15:04"))
	assert.Equal(t, "B", saturday.Meetings[1].PeriodKey)
	assert.Equal(t, "09:00", saturday.Meetings[1].Start.Format("15:04"))
}

func TestRescheduleEmergencyIgnoresPriorExceptions(t *testing.T) {
	sched := exceptionTestSchedule(t)
	closed := date(2026, time.September, 7)
	require.NoError(t, sched.Exceptions().Put(Exception{Date: closed, Kind: ExceptionRemove, PeriodKey: "B"}))

	require.NoError(t, sched.RescheduleEmergency(closed, date(2026, time.September, 12)))

	// The move captures the templated day, so both periods land on the
	// substitute date even though B was already cancelled on the closed one.
	days, err := sched.Meetings(date(2026, time.September, 12), date(2026, time.September, 13))
	require.NoError(t, err)
	require.Len(t, days[0].Meetings, 2)
}
