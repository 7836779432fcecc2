package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekTermCalendar(t *testing.T, first, last time.Time) *TermCalendar {
	t.Helper()
	cal, err := NewTermCalendar(first, last)
	require.NoError(t, err)
	cal.AddWeekdays(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
	return cal
}

func TestSequentialClassifierSkipsHolidays(t *testing.T) {
	// Two working weeks; the middle Wednesday becomes a holiday.
	cal := weekTermCalendar(t, date(2026, time.September, 7), date(2026, time.September, 18))
	require.NoError(t, cal.RemoveSchoolday(date(2026, time.September, 9)))

	cls := NewSequentialClassifier(cal, []string{"Day 1", "Day 2", "Day 3"})

	var got []string
	for d := cal.First(); !d.After(cal.Last()); d = d.AddDate(0, 0, 1) {
		isSchool, err := cls.IsSchoolday(d)
		require.NoError(t, err)
		if !isSchool {
			continue
		}
		id, err := cls.DayID(d)
		require.NoError(t, err)
		got = append(got, id)
	}

	// The holiday consumes no rotation slot: consecutive schooldays cycle in
	// strict order with nothing skipped or repeated.
	assert.Equal(t, []string{
		"Day 1", "Day 2", "Day 3", "Day 1",
		"Day 2", "Day 3", "Day 1", "Day 2", "Day 3",
	}, got)
}

func TestSequentialClassifierPinnedDayID(t *testing.T) {
	cal := weekTermCalendar(t, date(2026, time.September, 7), date(2026, time.September, 11))
	require.NoError(t, cal.PinDayID(date(2026, time.September, 8), "Day 3"))

	cls := NewSequentialClassifier(cal, []string{"Day 1", "Day 2", "Day 3"})

	id, err := cls.DayID(date(2026, time.September, 8))
	require.NoError(t, err)
	assert.Equal(t, "Day 3", id)

	// The pin relabels its own date only; the rotation downstream is intact.
	id, err = cls.DayID(date(2026, time.September, 9))
	require.NoError(t, err)
	assert.Equal(t, "Day 3", id)
	id, err = cls.DayID(date(2026, time.September, 10))
	require.NoError(t, err)
	assert.Equal(t, "Day 1", id)
}

func TestWeekdayClassifierIgnoresHolidayCount(t *testing.T) {
	cal := weekTermCalendar(t, date(2026, time.September, 7), date(2026, time.September, 18))
	require.NoError(t, cal.RemoveSchoolday(date(2026, time.September, 8)))

	ids := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	cls := NewWeekdayClassifier(cal, ids)

	// Monday of week one and Monday of week two get the same id no matter how
	// many schooldays sit between them.
	for _, monday := range []time.Time{date(2026, time.September, 7), date(2026, time.September, 14)} {
		id, err := cls.DayID(monday)
		require.NoError(t, err)
		assert.Equal(t, "Mon", id)
	}

	// Wednesday after a Tuesday holiday still maps by weekday, not sequence.
	id, err := cls.DayID(date(2026, time.September, 9))
	require.NoError(t, err)
	assert.Equal(t, "Wed", id)
}

func TestWeekdayClassifierMondayGetsFirstDayID(t *testing.T) {
	// A five-id rotation covers Monday through Friday in configured order.
	cal := weekTermCalendar(t, date(2026, time.September, 7), date(2026, time.September, 11))
	cls := NewWeekdayClassifier(cal, []string{"Day 1", "Day 2", "Day 3", "Day 4", "Day 5"})

	want := []string{"Day 1", "Day 2", "Day 3", "Day 4", "Day 5"}
	for i, d := 0, cal.First(); !d.After(cal.Last()); i, d = i+1, d.AddDate(0, 0, 1) {
		id, err := cls.DayID(d)
		require.NoError(t, err)
		assert.Equal(t, want[i], id, "weekday %s", d.Weekday())
	}
}

func TestClassifierOutOfRange(t *testing.T) {
	cal := weekTermCalendar(t, date(2026, time.September, 7), date(2026, time.September, 11))
	cls := NewSequentialClassifier(cal, []string{"Day 1"})

	_, err := cls.IsSchoolday(date(2026, time.October, 1))
	require.Error(t, err)
	var rangeErr *OutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, date(2026, time.October, 1), rangeErr.Date)

	_, err = cls.DayID(date(2026, time.October, 1))
	require.ErrorAs(t, err, &rangeErr)
}

func TestTermCalendarRejectsInvertedRange(t *testing.T) {
	_, err := NewTermCalendar(date(2026, time.September, 11), date(2026, time.September, 7))
	require.Error(t, err)
}
