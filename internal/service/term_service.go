package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/mattva01/timetable-api/internal/dto"
	"github.com/mattva01/timetable-api/internal/models"
	"github.com/mattva01/timetable-api/internal/timetable"
	appErrors "github.com/mattva01/timetable-api/pkg/errors"
	"github.com/mattva01/timetable-api/pkg/ics"
)

type termRepository interface {
	Create(ctx context.Context, term *models.Term) error
	FindByID(ctx context.Context, id string) (*models.Term, error)
	List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error)
	Update(ctx context.Context, term *models.Term) error
	Delete(ctx context.Context, id string) error
	CreateDayOverride(ctx context.Context, override *models.TermDayOverride) error
	ListDayOverrides(ctx context.Context, termID string) ([]models.TermDayOverride, error)
	DeleteDayOverride(ctx context.Context, termID, overrideID string) error
}

// TermService manages term calendars and their date-level overrides.
type TermService struct {
	repo      termRepository
	validator *validator.Validate
	logger    *zap.Logger

	calendars      *gocache.Cache
	maxOccurrences int
}

// NewTermService constructs the service. calendarTTL bounds how long built
// term calendars are memoized between override writes.
func NewTermService(repo termRepository, validate *validator.Validate, logger *zap.Logger, calendarTTL time.Duration, maxOccurrences int) *TermService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if calendarTTL <= 0 {
		calendarTTL = 5 * time.Minute
	}
	return &TermService{
		repo:           repo,
		validator:      validate,
		logger:         logger,
		calendars:      gocache.New(calendarTTL, 2*calendarTTL),
		maxOccurrences: maxOccurrences,
	}
}

// Create registers a new term.
func (s *TermService) Create(ctx context.Context, req dto.CreateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	first, last, err := parseDateRange(req.FirstDay, req.LastDay)
	if err != nil {
		return nil, err
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timezone %q", req.Timezone))
	}

	term := &models.Term{
		Name:         req.Name,
		AcademicYear: req.AcademicYear,
		Timezone:     req.Timezone,
		FirstDay:     first,
		LastDay:      last,
		TeachingDays: req.TeachingDays,
	}
	if err := s.repo.Create(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}
	return term, nil
}

// Get returns a term by id.
func (s *TermService) Get(ctx context.Context, id string) (*models.Term, error) {
	term, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get term")
	}
	return term, nil
}

// List returns terms matching the filter.
func (s *TermService) List(ctx context.Context, filter models.TermFilter) ([]models.Term, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	terms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return terms, pagination, nil
}

// Update mutates a term. Provided fields replace stored values.
func (s *TermService) Update(ctx context.Context, id string, req dto.UpdateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	term, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		term.Name = *req.Name
	}
	if req.AcademicYear != nil {
		term.AcademicYear = *req.AcademicYear
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timezone %q", *req.Timezone))
		}
		term.Timezone = *req.Timezone
	}
	if req.FirstDay != nil {
		term.FirstDay, _ = time.Parse("2006-01-02", *req.FirstDay)
	}
	if req.LastDay != nil {
		term.LastDay, _ = time.Parse("2006-01-02", *req.LastDay)
	}
	if term.LastDay.Before(term.FirstDay) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lastDay must be on or after firstDay")
	}
	if len(req.TeachingDays) > 0 {
		term.TeachingDays = req.TeachingDays
	}

	if err := s.repo.Update(ctx, term); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update term")
	}
	s.invalidateCalendar(id)
	return term, nil
}

// Delete removes a term.
func (s *TermService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete term")
	}
	s.invalidateCalendar(id)
	return nil
}

// AddDayOverride stores one date-level calendar override.
func (s *TermService) AddDayOverride(ctx context.Context, termID string, req dto.CreateDayOverrideRequest) (*models.TermDayOverride, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	term, err := s.Get(ctx, termID)
	if err != nil {
		return nil, err
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	if date.Before(timetable.DateOf(term.FirstDay)) || date.After(timetable.DateOf(term.LastDay)) {
		return nil, appErrors.Clone(appErrors.ErrOutOfRange, fmt.Sprintf("date %s outside term range", req.Date))
	}

	override := &models.TermDayOverride{
		TermID:  termID,
		Date:    date,
		Kind:    models.DayOverrideKind(req.Kind),
		DayID:   req.DayID,
		Comment: req.Comment,
	}
	if err := s.repo.CreateDayOverride(ctx, override); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create day override")
	}
	s.invalidateCalendar(termID)
	return override, nil
}

// ListDayOverrides returns all overrides of a term.
func (s *TermService) ListDayOverrides(ctx context.Context, termID string) ([]models.TermDayOverride, error) {
	overrides, err := s.repo.ListDayOverrides(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list day overrides")
	}
	return overrides, nil
}

// DeleteDayOverride removes one override.
func (s *TermService) DeleteDayOverride(ctx context.Context, termID, overrideID string) error {
	if err := s.repo.DeleteDayOverride(ctx, termID, overrideID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "day override not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete day override")
	}
	s.invalidateCalendar(termID)
	return nil
}

// BuildCalendar assembles the engine term calendar for a term: teaching
// weekdays first, then the date-level overrides in creation order. Built
// calendars are memoized until the next override write.
func (s *TermService) BuildCalendar(ctx context.Context, termID string) (*timetable.TermCalendar, *models.Term, error) {
	if cached, ok := s.calendars.Get(termID); ok {
		entry := cached.(*calendarEntry)
		return entry.calendar, entry.term, nil
	}

	term, err := s.Get(ctx, termID)
	if err != nil {
		return nil, nil, err
	}
	overrides, err := s.ListDayOverrides(ctx, termID)
	if err != nil {
		return nil, nil, err
	}

	cal, err := buildTermCalendar(term, overrides)
	if err != nil {
		return nil, nil, err
	}

	s.calendars.SetDefault(termID, &calendarEntry{calendar: cal, term: term})
	return cal, term, nil
}

// Calendar projects the term calendar into per-date day descriptors.
func (s *TermService) Calendar(ctx context.Context, termID string) ([]dto.TermCalendarDay, error) {
	cal, _, err := s.BuildCalendar(ctx, termID)
	if err != nil {
		return nil, err
	}

	days := make([]dto.TermCalendarDay, 0)
	for date := cal.First(); !date.After(cal.Last()); date = date.AddDate(0, 0, 1) {
		schoolday, err := cal.IsSchoolday(date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to project calendar")
		}
		day := dto.TermCalendarDay{Date: date.Format("2006-01-02"), Schoolday: schoolday}
		if pinned, ok := cal.PinnedDayID(date); ok {
			day.PinnedDay = &pinned
		}
		days = append(days, day)
	}
	return days, nil
}

// ImportHolidays parses an ICS feed and writes a REMOVE_SCHOOLDAY override
// for every holiday date that falls on a schoolday within the term range.
// Dates already off stay untouched and are reported as skipped.
func (s *TermService) ImportHolidays(ctx context.Context, termID string, req dto.ImportHolidaysRequest) (*dto.ImportHolidaysResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	cal, term, err := s.BuildCalendar(ctx, termID)
	if err != nil {
		return nil, err
	}

	events, err := ics.ParseHolidays([]byte(req.ICS))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ICS payload")
	}

	resp := &dto.ImportHolidaysResponse{ImportedDates: []string{}, SkippedDates: []string{}}
	for _, date := range ics.HolidayDates(events, cal.First(), cal.Last(), s.maxOccurrences) {
		key := date.Format("2006-01-02")
		schoolday, err := cal.IsSchoolday(date)
		if err != nil || !schoolday {
			resp.SkippedDates = append(resp.SkippedDates, key)
			continue
		}
		override := &models.TermDayOverride{
			TermID:  termID,
			Date:    date,
			Kind:    models.DayOverrideRemoveSchoolday,
			Comment: "holiday import",
		}
		if err := s.repo.CreateDayOverride(ctx, override); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store holiday override")
		}
		resp.ImportedDates = append(resp.ImportedDates, key)
	}

	s.invalidateCalendar(termID)
	s.logger.Info("holiday import completed",
		zap.String("term_id", term.ID),
		zap.Int("imported", len(resp.ImportedDates)),
		zap.Int("skipped", len(resp.SkippedDates)),
	)
	return resp, nil
}

func (s *TermService) invalidateCalendar(termID string) {
	s.calendars.Delete(termID)
}

type calendarEntry struct {
	calendar *timetable.TermCalendar
	term     *models.Term
}

func buildTermCalendar(term *models.Term, overrides []models.TermDayOverride) (*timetable.TermCalendar, error) {
	cal, err := timetable.NewTermCalendar(term.FirstDay, term.LastDay)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "invalid term range")
	}

	weekdays := make([]time.Weekday, 0, len(term.TeachingDays))
	for _, d := range term.TeachingDays {
		weekdays = append(weekdays, time.Weekday(d))
	}
	cal.AddWeekdays(weekdays...)

	for _, override := range overrides {
		var err error
		switch override.Kind {
		case models.DayOverrideAddSchoolday:
			err = cal.AddSchoolday(override.Date)
		case models.DayOverrideRemoveSchoolday:
			err = cal.RemoveSchoolday(override.Date)
		case models.DayOverridePinDayID:
			if override.DayID != nil {
				err = cal.PinDayID(override.Date, *override.DayID)
			}
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "invalid day override")
		}
	}
	return cal, nil
}

func parseDateRange(firstRaw, lastRaw string) (time.Time, time.Time, error) {
	first, err := time.Parse("2006-01-02", firstRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid firstDay")
	}
	last, err := time.Parse("2006-01-02", lastRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid lastDay")
	}
	if last.Before(first) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "lastDay must be on or after firstDay")
	}
	return first, last, nil
}
