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

type exceptionRepository interface {
	Create(ctx context.Context, exc *models.TimetableException) error
	CreateBatch(ctx context.Context, exceptions []models.TimetableException) error
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableException, error)
	ListByDateRange(ctx context.Context, timetableID string, from, until time.Time) ([]models.TimetableException, error)
	Delete(ctx context.Context, timetableID, exceptionID string) error
}

type scheduleBuilder interface {
	BuildSchedule(ctx context.Context, id string) (*timetable.Schedule, *models.Timetable, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ExceptionService manages per-date meeting patches and emergency day moves.
type ExceptionService struct {
	repo       exceptionRepository
	timetables scheduleBuilder
	cache      cacheInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewExceptionService constructs the service. cache may be nil.
func NewExceptionService(repo exceptionRepository, timetables scheduleBuilder, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ExceptionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExceptionService{
		repo:       repo,
		timetables: timetables,
		cache:      cache,
		validator:  validate,
		logger:     logger,
	}
}

// Create stores one exception after validating it against the timetable.
func (s *ExceptionService) Create(ctx context.Context, timetableID string, req dto.CreateExceptionRequest) (*models.TimetableException, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	schedule, tt, err := s.timetables.BuildSchedule(ctx, timetableID)
	if err != nil {
		return nil, err
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	if date.Before(schedule.First()) || date.After(schedule.Last()) {
		return nil, appErrors.Clone(appErrors.ErrOutOfRange, fmt.Sprintf("date %s outside timetable range", req.Date))
	}

	exc := &models.TimetableException{
		TimetableID: timetableID,
		Date:        date,
		Kind:        timetable.ExceptionKind(req.Kind),
		PeriodKey:   req.PeriodKey,
		Comment:     req.Comment,
	}
	if exc.Kind != timetable.ExceptionRemove {
		start := req.StartTime
		duration := req.DurationMinutes
		exc.StartTime = &start
		exc.DurationMinutes = &duration
	}

	// Run the engine validation path before persisting so a malformed
	// patch never reaches the database.
	if _, err := exceptionStoreFromRows([]models.TimetableException{*exc}); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, exc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exception")
	}
	s.invalidate(ctx, tt.ID)
	return exc, nil
}

// List returns all exceptions of a timetable.
func (s *ExceptionService) List(ctx context.Context, timetableID string) ([]models.TimetableException, error) {
	exceptions, err := s.repo.ListByTimetable(ctx, timetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exceptions")
	}
	return exceptions, nil
}

// Delete removes one exception.
func (s *ExceptionService) Delete(ctx context.Context, timetableID, exceptionID string) error {
	if err := s.repo.Delete(ctx, timetableID, exceptionID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "exception not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exception")
	}
	s.invalidate(ctx, timetableID)
	return nil
}

// ApplyEmergencyDay moves the meetings of a closed date onto a substitute
// date. The engine computes the REMOVE and ADD pairs from the closed date's
// pre-exception meetings; this method persists them in one transaction.
func (s *ExceptionService) ApplyEmergencyDay(ctx context.Context, timetableID string, req dto.EmergencyDayRequest) (*dto.EmergencyDayResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	schedule, tt, err := s.timetables.BuildSchedule(ctx, timetableID)
	if err != nil {
		return nil, err
	}

	closed, _ := time.Parse("2006-01-02", req.ClosedDate)
	substitute, _ := time.Parse("2006-01-02", req.SubstituteDate)

	// Collect the move into a scratch store so only the rows produced by
	// this operation are persisted.
	scratch := timetable.NewExceptionStore()
	schedule.SetExceptions(scratch)
	if err := schedule.RescheduleEmergency(closed, substitute); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrOutOfRange.Code, appErrors.ErrOutOfRange.Status, err.Error())
	}

	rows := make([]models.TimetableException, 0)
	moved := 0
	for _, dateKey := range scratch.Dates() {
		date, perr := time.Parse("2006-01-02", dateKey)
		if perr != nil {
			continue
		}
		for _, exc := range scratch.ForDate(date) {
			row := models.TimetableException{
				TimetableID: timetableID,
				Date:        date,
				Kind:        exc.Kind,
				PeriodKey:   exc.PeriodKey,
				Comment:     req.Comment,
			}
			if exc.Patch != nil {
				row.PeriodKey = exc.Patch.PeriodKey
				start := exc.Patch.Start.String()
				duration := int(exc.Patch.Duration / time.Minute)
				row.StartTime = &start
				row.DurationMinutes = &duration
				moved++
			}
			rows = append(rows, row)
		}
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store emergency day move")
	}

	s.invalidate(ctx, tt.ID)
	s.logger.Info("emergency day applied",
		zap.String("timetable_id", timetableID),
		zap.String("closed", req.ClosedDate),
		zap.String("substitute", req.SubstituteDate),
		zap.Int("moved_meetings", moved),
	)
	return &dto.EmergencyDayResponse{
		MovedMeetings:  moved,
		ClosedDate:     req.ClosedDate,
		SubstituteDate: req.SubstituteDate,
	}, nil
}

func (s *ExceptionService) invalidate(ctx context.Context, timetableID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "schedule:"+timetableID+":*"); err != nil {
		s.logger.Warn("failed to invalidate schedule cache", zap.String("timetable_id", timetableID), zap.Error(err))
	}
}
