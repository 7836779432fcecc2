package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mattva01/timetable-api/internal/models"
)

// ExceptionRepository persists per-date meeting patches of timetables.
type ExceptionRepository struct {
	db *sqlx.DB
}

// NewExceptionRepository constructs repository.
func NewExceptionRepository(db *sqlx.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

const exceptionColumns = `id, timetable_id, date, kind, period_key, start_time, duration_minutes, comment, created_at`

// Create inserts one exception row.
func (r *ExceptionRepository) Create(ctx context.Context, exc *models.TimetableException) error {
	if exc == nil {
		return fmt.Errorf("exception payload is nil")
	}
	if exc.TimetableID == "" {
		return fmt.Errorf("timetable_id is required")
	}
	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	exc.CreatedAt = time.Now().UTC()

	const query = `
INSERT INTO timetable_exceptions (id, timetable_id, date, kind, period_key, start_time, duration_minutes, comment, created_at)
VALUES (:id, :timetable_id, :date, :kind, :period_key, :start_time, :duration_minutes, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exc); err != nil {
		return fmt.Errorf("insert timetable exception: %w", err)
	}
	return nil
}

// CreateBatch inserts several exception rows in one transaction, used by
// emergency day moves which always write paired REMOVE and ADD rows.
func (r *ExceptionRepository) CreateBatch(ctx context.Context, exceptions []models.TimetableException) error {
	if len(exceptions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin exception tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `
INSERT INTO timetable_exceptions (id, timetable_id, date, kind, period_key, start_time, duration_minutes, comment, created_at)
VALUES (:id, :timetable_id, :date, :kind, :period_key, :start_time, :duration_minutes, :comment, :created_at)`
	now := time.Now().UTC()
	for i := range exceptions {
		if exceptions[i].ID == "" {
			exceptions[i].ID = uuid.NewString()
		}
		exceptions[i].CreatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, tx, query, exceptions[i]); err != nil {
			return fmt.Errorf("insert timetable exception: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit exception tx: %w", err)
	}
	return nil
}

// ListByTimetable returns all exceptions of a timetable ordered by date and
// insertion order.
func (r *ExceptionRepository) ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableException, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_exceptions WHERE timetable_id = $1 ORDER BY date, created_at, id`, exceptionColumns)
	var exceptions []models.TimetableException
	if err := r.db.SelectContext(ctx, &exceptions, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable exceptions: %w", err)
	}
	return exceptions, nil
}

// ListByDateRange returns exceptions of a timetable within [from, until).
func (r *ExceptionRepository) ListByDateRange(ctx context.Context, timetableID string, from, until time.Time) ([]models.TimetableException, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_exceptions
WHERE timetable_id = $1 AND date >= $2 AND date < $3 ORDER BY date, created_at, id`, exceptionColumns)
	var exceptions []models.TimetableException
	if err := r.db.SelectContext(ctx, &exceptions, query, timetableID, from, until); err != nil {
		return nil, fmt.Errorf("list timetable exceptions by range: %w", err)
	}
	return exceptions, nil
}

// Delete removes one exception of a timetable.
func (r *ExceptionRepository) Delete(ctx context.Context, timetableID, exceptionID string) error {
	const query = `DELETE FROM timetable_exceptions WHERE id = $1 AND timetable_id = $2`
	result, err := r.db.ExecContext(ctx, query, exceptionID, timetableID)
	if err != nil {
		return fmt.Errorf("delete timetable exception: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable exception rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
