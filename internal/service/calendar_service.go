package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mattva01/timetable-api/internal/dto"
	"github.com/mattva01/timetable-api/internal/models"
	"github.com/mattva01/timetable-api/internal/timetable"
	appErrors "github.com/mattva01/timetable-api/pkg/errors"
	"github.com/mattva01/timetable-api/pkg/ics"
)

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CalendarService turns timetable definitions into meetings and projected
// events. Nothing here is stored: responses are recomputed from the
// definition, with a Redis cache in front for hot ranges.
type CalendarService struct {
	timetables scheduleBuilder
	cache      scheduleCache
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger

	cacheTTL     time.Duration
	maxRangeDays int
}

// NewCalendarService constructs the service. cache and metrics may be nil.
func NewCalendarService(timetables scheduleBuilder, cache scheduleCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration, maxRangeDays int) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if maxRangeDays <= 0 {
		maxRangeDays = 400
	}
	return &CalendarService{
		timetables:   timetables,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cacheTTL:     cacheTTL,
		maxRangeDays: maxRangeDays,
	}
}

// Meetings generates the meetings of a timetable within [from, until).
func (s *CalendarService) Meetings(ctx context.Context, timetableID string, query dto.CalendarQuery) (*dto.MeetingsResponse, error) {
	from, until, err := s.parseQuery(query)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("schedule:%s:meetings:%s:%s", timetableID, query.From, query.Until)
	if s.cache != nil {
		var cached dto.MeetingsResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("meetings cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	schedule, tt, err := s.timetables.BuildSchedule(ctx, timetableID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	days, err := schedule.Meetings(from, until)
	if err != nil {
		return nil, mapEngineError(err)
	}
	s.metrics.ObserveGeneration("meetings", len(days), time.Since(started))

	resp := &dto.MeetingsResponse{
		TimetableID: timetableID,
		Timezone:    tt.Timezone,
		Days:        make([]models.DaySchedule, 0, len(days)),
	}
	for _, day := range days {
		entry := models.DaySchedule{
			Date:     day.Date.Format("2006-01-02"),
			DayID:    day.DayID,
			Holiday:  day.DayID == "",
			Meetings: make([]models.MeetingPayload, 0, len(day.Meetings)),
		}
		for _, m := range day.Meetings {
			entry.Meetings = append(entry.Meetings, models.MeetingPayload{
				PeriodKey:       m.PeriodKey,
				Start:           m.Start,
				End:             m.End(),
				DurationMinutes: int(m.Duration / time.Minute),
			})
		}
		resp.Days = append(resp.Days, entry)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cacheTTL); err != nil {
			s.logger.Warn("meetings cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return resp, nil
}

// Events projects the meetings within [from, until) into calendar events
// with stable UIDs, converted to UTC for storage-agnostic consumers.
func (s *CalendarService) Events(ctx context.Context, timetableID string, query dto.CalendarQuery) (*dto.EventsResponse, error) {
	from, until, err := s.parseQuery(query)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("schedule:%s:events:%s:%s", timetableID, query.From, query.Until)
	if s.cache != nil {
		var cached dto.EventsResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("events cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	schedule, tt, err := s.timetables.BuildSchedule(ctx, timetableID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	days, err := schedule.Meetings(from, until)
	if err != nil {
		return nil, mapEngineError(err)
	}
	s.metrics.ObserveGeneration("events", len(days), time.Since(started))

	projector := timetable.NewProjector(tt.OwnerID, tt.Title, time.UTC)
	events := projector.Project(days)

	resp := &dto.EventsResponse{
		TimetableID: timetableID,
		Events:      make([]models.ProjectedEvent, 0, len(events)),
	}
	for _, ev := range events {
		resp.Events = append(resp.Events, models.ProjectedEvent{
			UID:             ev.UID,
			Title:           ev.Title,
			OwnerID:         tt.OwnerID,
			Start:           ev.Start,
			End:             ev.End(),
			DurationMinutes: int(ev.Duration / time.Minute),
			PeriodKey:       ev.PeriodKey,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cacheTTL); err != nil {
			s.logger.Warn("events cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return resp, nil
}

// ICSFeed renders the projected events of a range as an iCalendar payload.
func (s *CalendarService) ICSFeed(ctx context.Context, timetableID string, query dto.CalendarQuery) ([]byte, string, error) {
	from, until, err := s.parseQuery(query)
	if err != nil {
		return nil, "", err
	}

	schedule, tt, err := s.timetables.BuildSchedule(ctx, timetableID)
	if err != nil {
		return nil, "", err
	}

	days, err := schedule.Meetings(from, until)
	if err != nil {
		return nil, "", mapEngineError(err)
	}

	projector := timetable.NewProjector(tt.OwnerID, tt.Title, time.UTC)
	events := projector.Project(days)

	feedEvents := make([]ics.FeedEvent, 0, len(events))
	for _, ev := range events {
		feedEvents = append(feedEvents, ics.FeedEvent{
			UID:   ev.UID,
			Title: ev.Title,
			Start: ev.Start,
			End:   ev.End(),
		})
	}
	return ics.RenderFeed(tt.Title, feedEvents), tt.Title, nil
}

func (s *CalendarService) parseQuery(query dto.CalendarQuery) (time.Time, time.Time, error) {
	if err := s.validator.Struct(query); err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid range")
	}
	from, _ := time.Parse("2006-01-02", query.From)
	until, _ := time.Parse("2006-01-02", query.Until)
	if !until.After(from) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "until must be after from")
	}
	if int(until.Sub(from).Hours()/24) > s.maxRangeDays {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("range exceeds %d days", s.maxRangeDays))
	}
	return from, until, nil
}

func mapEngineError(err error) error {
	var outOfRange *timetable.OutOfRangeError
	if errors.As(err, &outOfRange) {
		return appErrors.Wrap(err, appErrors.ErrOutOfRange.Code, appErrors.ErrOutOfRange.Status, err.Error())
	}
	var unknownDay *timetable.UnknownDayIDError
	if errors.As(err, &unknownDay) {
		return appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, err.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate meetings")
}
