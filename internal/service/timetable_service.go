package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mattva01/timetable-api/internal/dto"
	"github.com/mattva01/timetable-api/internal/models"
	"github.com/mattva01/timetable-api/internal/timetable"
	appErrors "github.com/mattva01/timetable-api/pkg/errors"
)

type timetableRepository interface {
	Create(ctx context.Context, tt *models.Timetable) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	FindActiveByOwner(ctx context.Context, ownerID string) (*models.Timetable, error)
	List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error)
	Update(ctx context.Context, tt *models.Timetable) error
	Activate(ctx context.Context, id, ownerID string) error
	Delete(ctx context.Context, id string) error
	ReplaceTemplateEntries(ctx context.Context, timetableID string, entries []models.TemplateEntry) error
	ListTemplateEntries(ctx context.Context, timetableID string) ([]models.TemplateEntry, error)
}

type exceptionReader interface {
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableException, error)
}

type calendarBuilder interface {
	BuildCalendar(ctx context.Context, termID string) (*timetable.TermCalendar, *models.Term, error)
}

// TimetableService manages timetable definitions and assembles the runnable
// schedule engine from their persisted parts.
type TimetableService struct {
	repo       timetableRepository
	exceptions exceptionReader
	terms      calendarBuilder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewTimetableService constructs the service.
func NewTimetableService(repo timetableRepository, exceptions exceptionReader, terms calendarBuilder, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		repo:       repo,
		exceptions: exceptions,
		terms:      terms,
		validator:  validate,
		logger:     logger,
	}
}

// Create registers a timetable, optionally with its initial template.
func (s *TimetableService) Create(ctx context.Context, req dto.CreateTimetableRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	_, term, err := s.terms.BuildCalendar(ctx, req.TermID)
	if err != nil {
		return nil, err
	}

	first, last := term.FirstDay, term.LastDay
	if req.FirstDay != "" {
		first, _ = time.Parse("2006-01-02", req.FirstDay)
	}
	if req.LastDay != "" {
		last, _ = time.Parse("2006-01-02", req.LastDay)
	}
	if last.Before(first) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lastDay must be on or after firstDay")
	}

	tt := &models.Timetable{
		OwnerID:  req.OwnerID,
		Title:    req.Title,
		TermID:   req.TermID,
		Timezone: req.Timezone,
		Policy:   timetable.Policy(req.Policy),
		DayIDs:   req.DayIDs,
		FirstDay: first,
		LastDay:  last,
	}
	if err := s.repo.Create(ctx, tt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}

	if len(req.Entries) > 0 {
		entries := entriesFromPayload(tt.ID, req.Entries)
		if err := s.repo.ReplaceTemplateEntries(ctx, tt.ID, entries); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store template")
		}
	}
	return tt, nil
}

// Get returns a timetable by id.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	tt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get timetable")
	}
	return tt, nil
}

// List returns timetables matching the filter.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return list, pagination, nil
}

// Update mutates timetable metadata.
func (s *TimetableService) Update(ctx context.Context, id string, req dto.UpdateTimetableRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	tt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		tt.Title = *req.Title
	}
	if req.Timezone != nil {
		tt.Timezone = *req.Timezone
	}
	if req.Policy != nil {
		tt.Policy = timetable.Policy(*req.Policy)
	}
	if len(req.DayIDs) > 0 {
		tt.DayIDs = req.DayIDs
	}
	if req.FirstDay != nil {
		tt.FirstDay, _ = time.Parse("2006-01-02", *req.FirstDay)
	}
	if req.LastDay != nil {
		tt.LastDay, _ = time.Parse("2006-01-02", *req.LastDay)
	}
	if tt.LastDay.Before(tt.FirstDay) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lastDay must be on or after firstDay")
	}

	if err := s.repo.Update(ctx, tt); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable")
	}
	return tt, nil
}

// Delete removes a timetable and its template entries.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	return nil
}

// ReplaceTemplate swaps the full template of a timetable.
func (s *TimetableService) ReplaceTemplate(ctx context.Context, id string, req dto.ReplaceTemplateRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	entries := entriesFromPayload(id, req.Entries)
	if err := s.repo.ReplaceTemplateEntries(ctx, id, entries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store template")
	}
	return nil
}

// ListTemplate returns all template entries of a timetable.
func (s *TimetableService) ListTemplate(ctx context.Context, id string) ([]models.TemplateEntry, error) {
	entries, err := s.repo.ListTemplateEntries(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list template")
	}
	return entries, nil
}

// Activate marks a timetable active for its owner. The definition is fully
// assembled first so a broken timetable is rejected here instead of failing
// on the first meetings request.
func (s *TimetableService) Activate(ctx context.Context, id string) (*models.Timetable, error) {
	tt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.BuildSchedule(ctx, id); err != nil {
		return nil, err
	}

	if err := s.repo.Activate(ctx, id, tt.OwnerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate timetable")
	}
	tt.IsActive = true
	s.logger.Info("timetable activated", zap.String("timetable_id", id), zap.String("owner_id", tt.OwnerID))
	return tt, nil
}

// BuildSchedule assembles the runnable engine schedule for a timetable: term
// calendar, day classifier, template registries and the persisted exceptions.
func (s *TimetableService) BuildSchedule(ctx context.Context, id string) (*timetable.Schedule, *models.Timetable, error) {
	tt, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	cal, _, err := s.terms.BuildCalendar(ctx, tt.TermID)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.repo.ListTemplateEntries(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}

	periods, timeSlots, err := registriesFromEntries(entries)
	if err != nil {
		return nil, nil, err
	}

	classifier := timetable.NewClassifier(tt.Policy, cal, tt.DayIDs)
	schedule, err := timetable.NewSchedule(timetable.ScheduleConfig{
		DayIDs:    tt.DayIDs,
		Policy:    tt.Policy,
		Timezone:  tt.Timezone,
		First:     tt.FirstDay,
		Last:      tt.LastDay,
		Periods:   periods,
		TimeSlots: timeSlots,
	}, classifier)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, err.Error())
	}

	rows, err := s.exceptions.ListByTimetable(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exceptions")
	}
	store, err := exceptionStoreFromRows(rows)
	if err != nil {
		return nil, nil, err
	}
	schedule.SetExceptions(store)

	return schedule, tt, nil
}

func entriesFromPayload(timetableID string, payload []dto.TemplateEntryPayload) []models.TemplateEntry {
	entries := make([]models.TemplateEntry, 0, len(payload))
	for _, p := range payload {
		entries = append(entries, models.TemplateEntry{
			TimetableID:     timetableID,
			Axis:            models.TemplateAxis(p.Axis),
			DayID:           p.DayID,
			Key:             p.Key,
			ActivityType:    p.ActivityType,
			StartTime:       p.StartTime,
			DurationMinutes: p.DurationMinutes,
			Position:        p.Position,
		})
	}
	return entries
}

func registriesFromEntries(entries []models.TemplateEntry) (*timetable.Registry, *timetable.Registry, error) {
	periods := timetable.NewRegistry()
	var timeSlots *timetable.Registry

	templates := map[models.TemplateAxis]map[string]*timetable.DayTemplate{
		models.AxisPeriod:   {},
		models.AxisTimeSlot: {},
	}
	for _, entry := range entries {
		byDay, ok := templates[entry.Axis]
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("unknown template axis %q", entry.Axis))
		}
		tpl, ok := byDay[entry.DayID]
		if !ok {
			tpl = timetable.NewDayTemplate()
			byDay[entry.DayID] = tpl
		}

		start, err := timetable.ParseTimeOfDay(entry.StartTime)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status,
				fmt.Sprintf("invalid start time for %s/%s", entry.DayID, entry.Key))
		}
		slot := timetable.TemplateSlot{
			Key:          entry.Key,
			ActivityType: entry.ActivityType,
			Start:        start,
			Duration:     time.Duration(entry.DurationMinutes) * time.Minute,
		}
		if err := tpl.Add(slot); err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status,
				fmt.Sprintf("duplicate template key %s on %s", entry.Key, entry.DayID))
		}
	}

	for dayID, tpl := range templates[models.AxisPeriod] {
		periods.Put(dayID, tpl)
	}
	if len(templates[models.AxisTimeSlot]) > 0 {
		timeSlots = timetable.NewRegistry()
		for dayID, tpl := range templates[models.AxisTimeSlot] {
			timeSlots.Put(dayID, tpl)
		}
	}
	return periods, timeSlots, nil
}

func exceptionStoreFromRows(rows []models.TimetableException) (*timetable.ExceptionStore, error) {
	store := timetable.NewExceptionStore()
	for _, row := range rows {
		exc := timetable.Exception{
			Date:      row.Date,
			Kind:      row.Kind,
			PeriodKey: row.PeriodKey,
		}
		if row.Kind != timetable.ExceptionRemove {
			if row.StartTime == nil || row.DurationMinutes == nil {
				return nil, appErrors.Clone(appErrors.ErrConfiguration,
					fmt.Sprintf("exception %s misses replacement fields", row.ID))
			}
			start, err := timetable.ParseTimeOfDay(*row.StartTime)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status,
					fmt.Sprintf("invalid exception start time on %s", row.Date.Format("2006-01-02")))
			}
			exc.Patch = &timetable.MeetingPatch{
				PeriodKey: row.PeriodKey,
				Start:     start,
				Duration:  time.Duration(*row.DurationMinutes) * time.Minute,
			}
		}
		if err := store.Put(exc); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "invalid stored exception")
		}
	}
	return store, nil
}
