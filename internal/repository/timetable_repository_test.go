package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattva01/timetable-api/internal/models"
	"github.com/mattva01/timetable-api/internal/timetable"
)

func TestTimetableRepositoryCreateRequiresOwnerAndTerm(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	err := repo.Create(context.Background(), &models.Timetable{Title: "7B"})
	assert.Error(t, err)
}

func TestTimetableRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetables")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	tt := &models.Timetable{
		OwnerID:  "section-7b",
		Title:    "Section 7B",
		TermID:   "term-1",
		Timezone: "Europe/Vilnius",
		Policy:   timetable.PolicySequential,
		DayIDs:   pq.StringArray{"Day 1", "Day 2"},
	}
	require.NoError(t, repo.Create(context.Background(), tt))
	assert.NotEmpty(t, tt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryFindActiveByOwner(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "owner_id", "title", "term_id", "timezone", "policy", "day_ids", "first_day", "last_day", "is_active", "created_at", "updated_at"}).
		AddRow("tt-1", "section-7b", "Section 7B", "term-1", "UTC", string(timetable.PolicySequential),
			pq.StringArray{"Day 1", "Day 2"},
			time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.December, 18, 0, 0, 0, 0, time.UTC),
			true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT .+ FROM timetables WHERE owner_id = .+ AND is_active").
		WithArgs("section-7b").
		WillReturnRows(rows)

	tt, err := repo.FindActiveByOwner(context.Background(), "section-7b")
	require.NoError(t, err)
	assert.Equal(t, "tt-1", tt.ID)
	assert.Equal(t, timetable.PolicySequential, tt.Policy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryActivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetables SET is_active = FALSE")).
		WithArgs(sqlmock.AnyArg(), "section-7b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetables SET is_active = TRUE")).
		WithArgs(sqlmock.AnyArg(), "tt-2", "section-7b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Activate(context.Background(), "tt-2", "section-7b"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryActivateUnknownID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetables SET is_active = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetables SET is_active = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Activate(context.Background(), "missing", "section-7b")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceTemplateEntries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_template_entries WHERE timetable_id = $1")).
		WithArgs("tt-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_template_entries")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_template_entries")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entries := []models.TemplateEntry{
		{Axis: models.AxisPeriod, DayID: "Day 1", Key: "A", StartTime: "08:00", DurationMinutes: 55, Position: 0},
		{Axis: models.AxisPeriod, DayID: "Day 1", Key: "B", StartTime: "09:00", DurationMinutes: 55, Position: 1},
	}
	require.NoError(t, repo.ReplaceTemplateEntries(context.Background(), "tt-1", entries))
	assert.Equal(t, "tt-1", entries[0].TimetableID)
	assert.NotEmpty(t, entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListTemplateEntries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "timetable_id", "axis", "day_id", "key", "activity_type", "start_time", "duration_minutes", "position"}).
		AddRow("e-1", "tt-1", string(models.AxisPeriod), "Day 1", "A", "", "08:00", 55, 0).
		AddRow("e-2", "tt-1", string(models.AxisPeriod), "Day 1", "B", "", "09:00", 55, 1)
	mock.ExpectQuery("SELECT .+ FROM timetable_template_entries WHERE timetable_id =").
		WithArgs("tt-1").
		WillReturnRows(rows)

	entries, err := repo.ListTemplateEntries(context.Background(), "tt-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}
