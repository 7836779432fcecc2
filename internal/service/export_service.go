package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mattva01/timetable-api/internal/dto"
	appErrors "github.com/mattva01/timetable-api/pkg/errors"
	"github.com/mattva01/timetable-api/pkg/export"
	"github.com/mattva01/timetable-api/pkg/jobs"
	"github.com/mattva01/timetable-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportStatus tracks the lifecycle of an asynchronous export job.
type ExportStatus string

const (
	ExportStatusQueued ExportStatus = "QUEUED"
	ExportStatusDone   ExportStatus = "DONE"
	ExportStatusFailed ExportStatus = "FAILED"
)

type exportJob struct {
	ID          string
	TimetableID string
	Format      string
	From        string
	Until       string
	Status      ExportStatus
	Token       string
	URL         string
	ExpiresAt   time.Time
	Err         string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	Workers   int
	Retries   int
}

// ExportService renders schedule exports asynchronously through a worker
// queue and serves them via signed download URLs.
type ExportService struct {
	timetables scheduleBuilder
	calendars  *CalendarService
	storage    fileStorage
	signer     *storage.SignedURLSigner
	renderers  map[string]documentRenderer
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ExportConfig

	queue *jobs.Queue

	mu   sync.RWMutex
	jobs map[string]*exportJob
}

// NewExportService constructs the service and its worker queue. Start must be
// called before exports are accepted.
func NewExportService(timetables scheduleBuilder, calendars *CalendarService, store fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}

	s := &ExportService{
		timetables: timetables,
		calendars:  calendars,
		storage:    store,
		signer:     signer,
		renderers: map[string]documentRenderer{
			"csv":  export.NewCSVExporter(),
			"pdf":  export.NewPDFExporter(),
			"xlsx": export.NewXLSXExporter(),
		},
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		jobs:      make(map[string]*exportJob),
	}
	s.queue = jobs.NewQueue("exports", s.handleJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Create validates the request and enqueues an export job.
func (s *ExportService) Create(ctx context.Context, timetableID string, req dto.CreateExportRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	// Fail fast on a broken definition before the job ever queues.
	if _, _, err := s.timetables.BuildSchedule(ctx, timetableID); err != nil {
		return nil, err
	}

	job := &exportJob{
		ID:          uuid.NewString(),
		TimetableID: timetableID,
		Format:      req.Format,
		From:        req.From,
		Until:       req.Until,
		Status:      ExportStatusQueued,
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "export", Payload: job.ID}); err != nil {
		s.mu.Lock()
		delete(s.jobs, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export")
	}
	return s.response(job), nil
}

// Get returns the state of an export job.
func (s *ExportService) Get(jobID string) (*dto.ExportJobResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return s.response(job), nil
}

// Open validates a download token and opens the referenced file.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file not found")
	}
	return file, relPath, nil
}

// Cleanup removes expired export files and forgets finished jobs whose
// results are gone. Wired to a cron schedule at startup.
func (s *ExportService) Cleanup() {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) == 0 {
		return
	}

	s.mu.Lock()
	for id, job := range s.jobs {
		if job.Status == ExportStatusDone && time.Now().After(job.ExpiresAt) {
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()
	s.logger.Info("export cleanup completed", zap.Int("deleted_files", len(deleted)))
}

func (s *ExportService) handleJob(ctx context.Context, job jobs.Job) error {
	jobID, _ := job.Payload.(string)

	s.mu.RLock()
	state, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	result, err := s.generate(ctx, state)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		state.Status = ExportStatusFailed
		state.Err = err.Error()
		s.metrics.RecordExport(state.Format, "failed")
		return err
	}
	s.metrics.RecordExport(state.Format, "done")
	state.Status = ExportStatusDone
	state.Token = result.Token
	state.URL = result.URL
	state.ExpiresAt = result.ExpiresAt
	state.Err = ""
	return nil
}

type exportResult struct {
	Token     string
	URL       string
	ExpiresAt time.Time
}

func (s *ExportService) generate(ctx context.Context, state *exportJob) (*exportResult, error) {
	meetings, err := s.calendars.Meetings(ctx, state.TimetableID, dto.CalendarQuery{From: state.From, Until: state.Until})
	if err != nil {
		return nil, err
	}

	doc := export.Document{Timezone: meetings.Timezone}
	if _, tt, berr := s.timetables.BuildSchedule(ctx, state.TimetableID); berr == nil {
		doc.Title = tt.Title
	}
	for _, day := range meetings.Days {
		section := export.DaySection{Date: day.Date, DayID: day.DayID, Holiday: day.Holiday}
		for _, m := range day.Meetings {
			section.Rows = append(section.Rows, export.Row{
				PeriodKey: m.PeriodKey,
				Start:     m.Start.Format("15:04"),
				End:       m.End.Format("15:04"),
				Duration:  fmt.Sprintf("%dm", m.DurationMinutes),
			})
		}
		doc.Days = append(doc.Days, section)
	}

	renderer, ok := s.renderers[state.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", state.Format)
	}
	payload, err := renderer.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", state.Format, err)
	}

	filename := fmt.Sprintf("%s/schedule.%s", state.ID, state.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(state.ID, relPath)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &exportResult{
		Token:     token,
		URL:       fmt.Sprintf("%s/exports/download/%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

func (s *ExportService) response(job *exportJob) *dto.ExportJobResponse {
	resp := &dto.ExportJobResponse{
		JobID:       job.ID,
		TimetableID: job.TimetableID,
		Format:      job.Format,
		Status:      string(job.Status),
		Error:       job.Err,
	}
	if job.Status == ExportStatusDone {
		resp.DownloadURL = job.URL
		resp.ExpiresAt = job.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}
