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
	"github.com/mattva01/timetable-api/internal/timetable"
	appErrors "github.com/mattva01/timetable-api/pkg/errors"
)

type exceptionRepoStub struct {
	rows []models.TimetableException
	err  error
}

func (s *exceptionRepoStub) Create(ctx context.Context, exc *models.TimetableException) error {
	if s.err != nil {
		return s.err
	}
	if exc.ID == "" {
		exc.ID = fmt.Sprintf("exc-%d", len(s.rows)+1)
	}
	s.rows = append(s.rows, *exc)
	return nil
}

func (s *exceptionRepoStub) CreateBatch(ctx context.Context, exceptions []models.TimetableException) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, exceptions...)
	return nil
}

func (s *exceptionRepoStub) ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableException, error) {
	return s.rows, s.err
}

func (s *exceptionRepoStub) ListByDateRange(ctx context.Context, timetableID string, from, until time.Time) ([]models.TimetableException, error) {
	return s.rows, s.err
}

func (s *exceptionRepoStub) Delete(ctx context.Context, timetableID, exceptionID string) error {
	for i, row := range s.rows {
		if row.ID == exceptionID {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type builderStub struct {
	tt    *models.Timetable
	err   error
	calls int
}

func (b *builderStub) BuildSchedule(ctx context.Context, id string) (*timetable.Schedule, *models.Timetable, error) {
	b.calls++
	if b.err != nil {
		return nil, nil, b.err
	}
	cal, err := buildTermCalendar(testTerm(), nil)
	if err != nil {
		return nil, nil, err
	}
	periods, timeSlots, err := registriesFromEntries(testTemplateEntries())
	if err != nil {
		return nil, nil, err
	}
	classifier := timetable.NewClassifier(b.tt.Policy, cal, b.tt.DayIDs)
	schedule, err := timetable.NewSchedule(timetable.ScheduleConfig{
		DayIDs:    b.tt.DayIDs,
		Policy:    b.tt.Policy,
		Timezone:  b.tt.Timezone,
		First:     b.tt.FirstDay,
		Last:      b.tt.LastDay,
		Periods:   periods,
		TimeSlots: timeSlots,
	}, classifier)
	if err != nil {
		return nil, nil, err
	}
	return schedule, b.tt, nil
}

type cachePatternStub struct {
	patterns []string
}

func (s *cachePatternStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

func TestExceptionServiceCreateRemove(t *testing.T) {
	repo := &exceptionRepoStub{}
	cache := &cachePatternStub{}
	service := NewExceptionService(repo, &builderStub{tt: testTimetable()}, cache, validator.New(), nil)

	exc, err := service.Create(context.Background(), "tt-1", dto.CreateExceptionRequest{
		Date:      "2026-09-08",
		Kind:      "REMOVE",
		PeriodKey: "p1",
	})
	require.NoError(t, err)
	assert.Equal(t, timetable.ExceptionRemove, exc.Kind)
	assert.Nil(t, exc.StartTime)
	require.Len(t, repo.rows, 1)
	assert.Equal(t, []string{"schedule:tt-1:*"}, cache.patterns)
}

func TestExceptionServiceCreateAddRequiresPatchFields(t *testing.T) {
	service := NewExceptionService(&exceptionRepoStub{}, &builderStub{tt: testTimetable()}, nil, validator.New(), nil)
	_, err := service.Create(context.Background(), "tt-1", dto.CreateExceptionRequest{
		Date:      "2026-09-08",
		Kind:      "ADD",
		PeriodKey: "extra",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExceptionServiceCreateOutsideRange(t *testing.T) {
	repo := &exceptionRepoStub{}
	service := NewExceptionService(repo, &builderStub{tt: testTimetable()}, nil, validator.New(), nil)
	_, err := service.Create(context.Background(), "tt-1", dto.CreateExceptionRequest{
		Date:      "2026-10-01",
		Kind:      "REMOVE",
		PeriodKey: "p1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOutOfRange.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.rows)
}

func TestExceptionServiceDeleteNotFound(t *testing.T) {
	service := NewExceptionService(&exceptionRepoStub{}, &builderStub{tt: testTimetable()}, nil, validator.New(), nil)
	err := service.Delete(context.Background(), "tt-1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExceptionServiceApplyEmergencyDay(t *testing.T) {
	repo := &exceptionRepoStub{}
	cache := &cachePatternStub{}
	service := NewExceptionService(repo, &builderStub{tt: testTimetable()}, cache, validator.New(), nil)

	// 2026-09-07 is day A with two periods; 2026-09-12 is a Saturday.
	resp, err := service.ApplyEmergencyDay(context.Background(), "tt-1", dto.EmergencyDayRequest{
		ClosedDate:     "2026-09-07",
		SubstituteDate: "2026-09-12",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.MovedMeetings)
	require.Len(t, repo.rows, 4)

	removes, adds := 0, 0
	for _, row := range repo.rows {
		switch row.Kind {
		case timetable.ExceptionRemove:
			removes++
			assert.Equal(t, "2026-09-07", row.Date.Format("2006-01-02"))
			assert.Nil(t, row.StartTime)
		case timetable.ExceptionAdd:
			adds++
			assert.Equal(t, "2026-09-12", row.Date.Format("2006-01-02"))
			require.NotNil(t, row.StartTime)
			require.NotNil(t, row.DurationMinutes)
			assert.NotEmpty(t, row.PeriodKey)
			assert.Equal(t, 45, *row.DurationMinutes)
		}
	}
	assert.Equal(t, 2, removes)
	assert.Equal(t, 2, adds)
	assert.Equal(t, []string{"schedule:tt-1:*"}, cache.patterns)
}
