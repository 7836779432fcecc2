package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattva01/timetable-api/internal/dto"
	appErrors "github.com/mattva01/timetable-api/pkg/errors"
)

type memoryCacheStub struct {
	entries map[string][]byte
	sets    int
}

func (s *memoryCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *memoryCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.entries == nil {
		s.entries = make(map[string][]byte)
	}
	s.entries[key] = raw
	s.sets++
	return nil
}

func newTestCalendarService(builder *builderStub, cache *memoryCacheStub) *CalendarService {
	var sc scheduleCache
	if cache != nil {
		sc = cache
	}
	return NewCalendarService(builder, sc, nil, validator.New(), nil, time.Minute, 366)
}

func TestCalendarServiceMeetings(t *testing.T) {
	service := newTestCalendarService(&builderStub{tt: testTimetable()}, nil)

	resp, err := service.Meetings(context.Background(), "tt-1", dto.CalendarQuery{From: "2026-09-07", Until: "2026-09-14"})
	require.NoError(t, err)
	assert.Equal(t, "tt-1", resp.TimetableID)
	assert.Equal(t, "Europe/Berlin", resp.Timezone)
	require.Len(t, resp.Days, 7)

	monday := resp.Days[0]
	assert.Equal(t, "2026-09-07", monday.Date)
	assert.Equal(t, "A", monday.DayID)
	assert.False(t, monday.Holiday)
	require.Len(t, monday.Meetings, 2)
	assert.Equal(t, "p1", monday.Meetings[0].PeriodKey)
	assert.Equal(t, 45, monday.Meetings[0].DurationMinutes)

	saturday := resp.Days[5]
	assert.Equal(t, "2026-09-12", saturday.Date)
	assert.True(t, saturday.Holiday)
	assert.Empty(t, saturday.DayID)
	assert.Empty(t, saturday.Meetings)
}

func TestCalendarServiceMeetingsServedFromCache(t *testing.T) {
	builder := &builderStub{tt: testTimetable()}
	cache := &memoryCacheStub{}
	service := newTestCalendarService(builder, cache)

	query := dto.CalendarQuery{From: "2026-09-07", Until: "2026-09-09"}
	first, err := service.Meetings(context.Background(), "tt-1", query)
	require.NoError(t, err)
	assert.Equal(t, 1, builder.calls)
	assert.Equal(t, 1, cache.sets)

	second, err := service.Meetings(context.Background(), "tt-1", query)
	require.NoError(t, err)
	assert.Equal(t, 1, builder.calls, "cache hit skips schedule assembly")
	require.Len(t, second.Days, len(first.Days))
	for i, day := range first.Days {
		assert.Equal(t, day.Date, second.Days[i].Date)
		assert.Equal(t, day.DayID, second.Days[i].DayID)
		require.Len(t, second.Days[i].Meetings, len(day.Meetings))
		for j, m := range day.Meetings {
			assert.True(t, m.Start.Equal(second.Days[i].Meetings[j].Start))
		}
	}
}

func TestCalendarServiceRejectsInvertedRange(t *testing.T) {
	service := newTestCalendarService(&builderStub{tt: testTimetable()}, nil)
	_, err := service.Meetings(context.Background(), "tt-1", dto.CalendarQuery{From: "2026-09-09", Until: "2026-09-09"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceRejectsOversizedRange(t *testing.T) {
	builder := &builderStub{tt: testTimetable()}
	service := NewCalendarService(builder, nil, nil, validator.New(), nil, time.Minute, 7)
	_, err := service.Meetings(context.Background(), "tt-1", dto.CalendarQuery{From: "2026-01-01", Until: "2026-02-01"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, builder.calls)
}

func TestCalendarServiceMeetingsOutsideTimetableRange(t *testing.T) {
	service := newTestCalendarService(&builderStub{tt: testTimetable()}, nil)
	_, err := service.Meetings(context.Background(), "tt-1", dto.CalendarQuery{From: "2026-10-05", Until: "2026-10-07"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOutOfRange.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceEventsUIDsStable(t *testing.T) {
	service := newTestCalendarService(&builderStub{tt: testTimetable()}, nil)
	query := dto.CalendarQuery{From: "2026-09-07", Until: "2026-09-09"}

	first, err := service.Events(context.Background(), "tt-1", query)
	require.NoError(t, err)
	second, err := service.Events(context.Background(), "tt-1", query)
	require.NoError(t, err)

	require.Len(t, first.Events, 3)
	for i, ev := range first.Events {
		assert.Equal(t, ev.UID, second.Events[i].UID)
		assert.NotEmpty(t, ev.PeriodKey)
		assert.Equal(t, time.UTC, ev.Start.Location())
	}
}

func TestCalendarServiceICSFeed(t *testing.T) {
	service := newTestCalendarService(&builderStub{tt: testTimetable()}, nil)
	payload, title, err := service.ICSFeed(context.Background(), "tt-1", dto.CalendarQuery{From: "2026-09-07", Until: "2026-09-08"})
	require.NoError(t, err)
	assert.Equal(t, "Class 7a", title)
	body := string(payload)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "SUMMARY:Class 7a")
	assert.Contains(t, body, "BEGIN:VEVENT")
}
