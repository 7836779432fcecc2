package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattva01/timetable-api/internal/dto"
	"github.com/mattva01/timetable-api/internal/models"
	appErrors "github.com/mattva01/timetable-api/pkg/errors"
)

type termRepoStub struct {
	term      *models.Term
	overrides []models.TermDayOverride
	err       error
	findCalls int
}

func (s *termRepoStub) Create(ctx context.Context, term *models.Term) error {
	if s.err != nil {
		return s.err
	}
	if term.ID == "" {
		term.ID = "term-1"
	}
	s.term = term
	return nil
}

func (s *termRepoStub) FindByID(ctx context.Context, id string) (*models.Term, error) {
	s.findCalls++
	if s.err != nil {
		return nil, s.err
	}
	if s.term == nil || s.term.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.term
	return &copied, nil
}

func (s *termRepoStub) List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	if s.term == nil {
		return []models.Term{}, 0, nil
	}
	return []models.Term{*s.term}, 1, nil
}

func (s *termRepoStub) Update(ctx context.Context, term *models.Term) error {
	if s.err != nil {
		return s.err
	}
	if s.term == nil || s.term.ID != term.ID {
		return sql.ErrNoRows
	}
	s.term = term
	return nil
}

func (s *termRepoStub) Delete(ctx context.Context, id string) error {
	if s.term == nil || s.term.ID != id {
		return sql.ErrNoRows
	}
	s.term = nil
	return nil
}

func (s *termRepoStub) CreateDayOverride(ctx context.Context, override *models.TermDayOverride) error {
	if s.err != nil {
		return s.err
	}
	if override.ID == "" {
		override.ID = fmt.Sprintf("override-%d", len(s.overrides)+1)
	}
	s.overrides = append(s.overrides, *override)
	return nil
}

func (s *termRepoStub) ListDayOverrides(ctx context.Context, termID string) ([]models.TermDayOverride, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.overrides, nil
}

func (s *termRepoStub) DeleteDayOverride(ctx context.Context, termID, overrideID string) error {
	for i, o := range s.overrides {
		if o.ID == overrideID {
			s.overrides = append(s.overrides[:i], s.overrides[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func testTerm() *models.Term {
	return &models.Term{
		ID:           "term-1",
		Name:         "Autumn 2026",
		Timezone:     "Europe/Berlin",
		FirstDay:     time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
		LastDay:      time.Date(2026, time.September, 18, 0, 0, 0, 0, time.UTC),
		TeachingDays: []int64{1, 2, 3, 4, 5},
	}
}

func TestTermServiceCreateRejectsInvertedRange(t *testing.T) {
	service := NewTermService(&termRepoStub{}, validator.New(), nil, 0, 0)
	_, err := service.Create(context.Background(), dto.CreateTermRequest{
		Name:     "Autumn 2026",
		Timezone: "Europe/Berlin",
		FirstDay: "2026-09-18",
		LastDay:  "2026-09-07",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTermServiceCreateRejectsUnknownTimezone(t *testing.T) {
	service := NewTermService(&termRepoStub{}, validator.New(), nil, 0, 0)
	_, err := service.Create(context.Background(), dto.CreateTermRequest{
		Name:     "Autumn 2026",
		Timezone: "Mars/Olympus",
		FirstDay: "2026-09-07",
		LastDay:  "2026-09-18",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTermServiceGetNotFound(t *testing.T) {
	service := NewTermService(&termRepoStub{}, validator.New(), nil, 0, 0)
	_, err := service.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTermServiceAddDayOverrideOutsideRange(t *testing.T) {
	repo := &termRepoStub{term: testTerm()}
	service := NewTermService(repo, validator.New(), nil, 0, 0)
	_, err := service.AddDayOverride(context.Background(), "term-1", dto.CreateDayOverrideRequest{
		Date: "2026-10-01",
		Kind: "REMOVE_SCHOOLDAY",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOutOfRange.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.overrides)
}

func TestTermServiceCalendarAppliesOverrides(t *testing.T) {
	pinned := "B"
	repo := &termRepoStub{
		term: testTerm(),
		overrides: []models.TermDayOverride{
			{ID: "o1", TermID: "term-1", Date: time.Date(2026, time.September, 9, 0, 0, 0, 0, time.UTC), Kind: models.DayOverrideRemoveSchoolday},
			{ID: "o2", TermID: "term-1", Date: time.Date(2026, time.September, 12, 0, 0, 0, 0, time.UTC), Kind: models.DayOverrideAddSchoolday},
			{ID: "o3", TermID: "term-1", Date: time.Date(2026, time.September, 12, 0, 0, 0, 0, time.UTC), Kind: models.DayOverridePinDayID, DayID: &pinned},
		},
	}
	service := NewTermService(repo, validator.New(), nil, 0, 0)

	days, err := service.Calendar(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, days, 12)

	byDate := map[string]dto.TermCalendarDay{}
	for _, day := range days {
		byDate[day.Date] = day
	}
	assert.True(t, byDate["2026-09-07"].Schoolday)
	assert.False(t, byDate["2026-09-09"].Schoolday, "removed schoolday stays off")
	assert.False(t, byDate["2026-09-13"].Schoolday, "sunday stays off")
	require.True(t, byDate["2026-09-12"].Schoolday, "added saturday becomes a schoolday")
	require.NotNil(t, byDate["2026-09-12"].PinnedDay)
	assert.Equal(t, "B", *byDate["2026-09-12"].PinnedDay)
}

func TestTermServiceBuildCalendarMemoizes(t *testing.T) {
	repo := &termRepoStub{term: testTerm()}
	service := NewTermService(repo, validator.New(), nil, time.Minute, 0)

	_, _, err := service.BuildCalendar(context.Background(), "term-1")
	require.NoError(t, err)
	_, _, err = service.BuildCalendar(context.Background(), "term-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.findCalls)

	// Override writes invalidate the memoized calendar.
	_, err = service.AddDayOverride(context.Background(), "term-1", dto.CreateDayOverrideRequest{
		Date: "2026-09-09",
		Kind: "REMOVE_SCHOOLDAY",
	})
	require.NoError(t, err)
	cal, _, err := service.BuildCalendar(context.Background(), "term-1")
	require.NoError(t, err)
	schoolday, err := cal.IsSchoolday(time.Date(2026, time.September, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, schoolday)
}

func TestTermServiceImportHolidays(t *testing.T) {
	feed := "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//test//test//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:holiday-1\r\n" +
		"DTSTART;VALUE=DATE:20260909\r\n" +
		"DTEND;VALUE=DATE:20260910\r\n" +
		"SUMMARY:Founders Day\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:holiday-2\r\n" +
		"DTSTART;VALUE=DATE:20260913\r\n" +
		"DTEND;VALUE=DATE:20260914\r\n" +
		"SUMMARY:Already Off\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	repo := &termRepoStub{term: testTerm()}
	service := NewTermService(repo, validator.New(), nil, 0, 0)

	resp, err := service.ImportHolidays(context.Background(), "term-1", dto.ImportHolidaysRequest{ICS: feed})
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-09-09"}, resp.ImportedDates)
	assert.Equal(t, []string{"2026-09-13"}, resp.SkippedDates)
	require.Len(t, repo.overrides, 1)
	assert.Equal(t, models.DayOverrideRemoveSchoolday, repo.overrides[0].Kind)
}
