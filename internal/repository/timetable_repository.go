package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mattva01/timetable-api/internal/models"
)

// TimetableRepository persists timetable definitions and their template entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableColumns = `id, owner_id, title, term_id, timezone, policy, day_ids, first_day, last_day, is_active, created_at, updated_at`

// Create inserts a timetable definition.
func (r *TimetableRepository) Create(ctx context.Context, tt *models.Timetable) error {
	if tt == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if tt.OwnerID == "" || tt.TermID == "" {
		return fmt.Errorf("owner_id and term_id are required")
	}
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tt.CreatedAt = now
	tt.UpdatedAt = now

	const query = `
INSERT INTO timetables (id, owner_id, title, term_id, timezone, policy, day_ids, first_day, last_day, is_active, created_at, updated_at)
VALUES (:id, :owner_id, :title, :term_id, :timezone, :policy, :day_ids, :first_day, :last_day, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tt); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	return nil
}

// FindByID loads a timetable by its identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetables WHERE id = $1`, timetableColumns)
	var tt models.Timetable
	if err := r.db.GetContext(ctx, &tt, query, id); err != nil {
		return nil, err
	}
	return &tt, nil
}

// FindActiveByOwner loads the single active timetable of an owner, if any.
func (r *TimetableRepository) FindActiveByOwner(ctx context.Context, ownerID string) (*models.Timetable, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetables WHERE owner_id = $1 AND is_active`, timetableColumns)
	var tt models.Timetable
	if err := r.db.GetContext(ctx, &tt, query, ownerID); err != nil {
		return nil, err
	}
	return &tt, nil
}

// List returns timetables matching the filter with the total count.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.TermID != "" {
		args = append(args, filter.TermID)
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM timetables WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetables: %w", err)
	}

	orderBy := "created_at"
	if filter.SortBy == "title" || filter.SortBy == "owner_id" {
		orderBy = filter.SortBy
	}
	direction := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		direction = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	args = append(args, pageSize, (page-1)*pageSize)

	query := fmt.Sprintf(`SELECT %s FROM timetables WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		timetableColumns, where, orderBy, direction, len(args)-1, len(args))
	var list []models.Timetable
	if err := r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetables: %w", err)
	}
	return list, total, nil
}

// Update persists mutable timetable fields.
func (r *TimetableRepository) Update(ctx context.Context, tt *models.Timetable) error {
	if tt == nil || tt.ID == "" {
		return fmt.Errorf("timetable id is required")
	}
	tt.UpdatedAt = time.Now().UTC()

	const query = `
UPDATE timetables SET title = :title, timezone = :timezone, policy = :policy, day_ids = :day_ids,
first_day = :first_day, last_day = :last_day, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, tt)
	if err != nil {
		return fmt.Errorf("update timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Activate marks one timetable active and deactivates any other timetable of
// the same owner inside a transaction.
func (r *TimetableRepository) Activate(ctx context.Context, id, ownerID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const deactivateQuery = `UPDATE timetables SET is_active = FALSE, updated_at = $1 WHERE owner_id = $2 AND is_active`
	if _, err := tx.ExecContext(ctx, deactivateQuery, time.Now().UTC(), ownerID); err != nil {
		return fmt.Errorf("deactivate previous timetable: %w", err)
	}

	const activateQuery = `UPDATE timetables SET is_active = TRUE, updated_at = $1 WHERE id = $2 AND owner_id = $3`
	result, err := tx.ExecContext(ctx, activateQuery, time.Now().UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("activate timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activate tx: %w", err)
	}
	return nil
}

// Delete removes a timetable and, through cascade, its template entries.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetables WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReplaceTemplateEntries swaps the full template of a timetable inside a
// transaction so readers never observe a half-written template.
func (r *TimetableRepository) ReplaceTemplateEntries(ctx context.Context, timetableID string, entries []models.TemplateEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin template tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const deleteQuery = `DELETE FROM timetable_template_entries WHERE timetable_id = $1`
	if _, err := tx.ExecContext(ctx, deleteQuery, timetableID); err != nil {
		return fmt.Errorf("clear template entries: %w", err)
	}

	const insertQuery = `
INSERT INTO timetable_template_entries (id, timetable_id, axis, day_id, key, activity_type, start_time, duration_minutes, position)
VALUES (:id, :timetable_id, :axis, :day_id, :key, :activity_type, :start_time, :duration_minutes, :position)`
	for i := range entries {
		entries[i].TimetableID = timetableID
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, tx, insertQuery, entries[i]); err != nil {
			return fmt.Errorf("insert template entry %s: %w", entries[i].Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit template tx: %w", err)
	}
	return nil
}

// ListTemplateEntries returns all template entries of a timetable in
// template order.
func (r *TimetableRepository) ListTemplateEntries(ctx context.Context, timetableID string) ([]models.TemplateEntry, error) {
	const query = `SELECT id, timetable_id, axis, day_id, key, activity_type, start_time, duration_minutes, position
FROM timetable_template_entries WHERE timetable_id = $1 ORDER BY axis, day_id, position`
	var entries []models.TemplateEntry
	if err := r.db.SelectContext(ctx, &entries, query, timetableID); err != nil {
		return nil, fmt.Errorf("list template entries: %w", err)
	}
	return entries, nil
}
