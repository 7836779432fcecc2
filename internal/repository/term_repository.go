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

// TermRepository persists terms and their date-level calendar overrides.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository constructs repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

const termColumns = `id, name, academic_year, timezone, first_day, last_day, teaching_days, is_active, created_at, updated_at`

// Create inserts a new term.
func (r *TermRepository) Create(ctx context.Context, term *models.Term) error {
	if term == nil {
		return fmt.Errorf("term payload is nil")
	}
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	if len(term.TeachingDays) == 0 {
		term.TeachingDays = []int64{1, 2, 3, 4, 5}
	}
	now := time.Now().UTC()
	term.CreatedAt = now
	term.UpdatedAt = now

	const query = `
INSERT INTO terms (id, name, academic_year, timezone, first_day, last_day, teaching_days, is_active, created_at, updated_at)
VALUES (:id, :name, :academic_year, :timezone, :first_day, :last_day, :teaching_days, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("insert term: %w", err)
	}
	return nil
}

// FindByID loads a term by its identifier.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.Term, error) {
	query := fmt.Sprintf(`SELECT %s FROM terms WHERE id = $1`, termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// List returns terms matching the filter together with the total count.
func (r *TermRepository) List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.AcademicYear != "" {
		args = append(args, filter.AcademicYear)
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM terms WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count terms: %w", err)
	}

	orderBy := "first_day"
	if filter.SortBy == "name" || filter.SortBy == "created_at" {
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

	query := fmt.Sprintf(`SELECT %s FROM terms WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		termColumns, where, orderBy, direction, len(args)-1, len(args))
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list terms: %w", err)
	}
	return terms, total, nil
}

// Update persists mutable term fields.
func (r *TermRepository) Update(ctx context.Context, term *models.Term) error {
	if term == nil || term.ID == "" {
		return fmt.Errorf("term id is required")
	}
	term.UpdatedAt = time.Now().UTC()

	const query = `
UPDATE terms SET name = :name, academic_year = :academic_year, timezone = :timezone,
first_day = :first_day, last_day = :last_day, teaching_days = :teaching_days,
is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, term)
	if err != nil {
		return fmt.Errorf("update term: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("term rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a term.
func (r *TermRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM terms WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("term rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateDayOverride inserts one date-level calendar override.
func (r *TermRepository) CreateDayOverride(ctx context.Context, override *models.TermDayOverride) error {
	if override == nil {
		return fmt.Errorf("override payload is nil")
	}
	if override.ID == "" {
		override.ID = uuid.NewString()
	}
	override.CreatedAt = time.Now().UTC()

	const query = `
INSERT INTO term_day_overrides (id, term_id, date, kind, day_id, comment, created_at)
VALUES (:id, :term_id, :date, :kind, :day_id, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return fmt.Errorf("insert term day override: %w", err)
	}
	return nil
}

// ListDayOverrides returns all overrides of a term ordered by date.
func (r *TermRepository) ListDayOverrides(ctx context.Context, termID string) ([]models.TermDayOverride, error) {
	const query = `SELECT id, term_id, date, kind, day_id, comment, created_at
FROM term_day_overrides WHERE term_id = $1 ORDER BY date, created_at`
	var overrides []models.TermDayOverride
	if err := r.db.SelectContext(ctx, &overrides, query, termID); err != nil {
		return nil, fmt.Errorf("list term day overrides: %w", err)
	}
	return overrides, nil
}

// DeleteDayOverride removes one override.
func (r *TermRepository) DeleteDayOverride(ctx context.Context, termID, overrideID string) error {
	const query = `DELETE FROM term_day_overrides WHERE id = $1 AND term_id = $2`
	result, err := r.db.ExecContext(ctx, query, overrideID, termID)
	if err != nil {
		return fmt.Errorf("delete term day override: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("term day override rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
