package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/recordsync/internal/dto"
	"github.com/noah-isme/recordsync/internal/models"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
	"github.com/noah-isme/recordsync/pkg/export"
	"github.com/noah-isme/recordsync/pkg/jobs"
	"github.com/noah-isme/recordsync/pkg/storage"
)

const exportJobType = "attendance_export"

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type exportRenderer interface {
	Write(w io.Writer, data export.Dataset) error
	Extension() string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	Workers         int
	MaxRetries      int
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ExportService renders the attendance table to CSV or PDF on a background
// queue and hands out signed download links.
type ExportService struct {
	records   recordReader
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[models.ReportFormat]exportRenderer
	metrics   *MetricsService
	queue     *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time

	mu   sync.RWMutex
	jobs map[string]*models.ReportJob
}

// NewExportService constructs an ExportService. Call Start before CreateJob.
func NewExportService(records recordReader, files fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	s := &ExportService{
		records: records,
		storage: files,
		signer:  signer,
		renderers: map[models.ReportFormat]exportRenderer{
			models.ReportFormatCSV: export.NewCSVExporter(),
			models.ReportFormatPDF: export.NewPDFExporter(),
		},
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		jobs:      make(map[string]*models.ReportJob),
	}
	s.queue = jobs.NewQueue("attendance-export", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers and the periodic cleanup of old files.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// Stop waits for in-flight exports and stops the workers.
func (s *ExportService) Stop() { s.queue.Stop() }

// CreateJob validates the request and queues an export.
func (s *ExportService) CreateJob(ctx context.Context, req dto.ExportRequest, actor string) (*models.ReportJob, error) {
	req.Format = models.ReportFormat(strings.ToLower(string(req.Format)))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}

	job := &models.ReportJob{
		ID:        uuid.NewString(),
		Format:    req.Format,
		Status:    models.ReportStatusQueued,
		CreatedBy: actor,
		CreatedAt: s.now().UTC(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: exportJobType}); err != nil {
		s.finish(job.ID, "", fmt.Errorf("enqueue: %w", err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.logger.Info("export queued", zap.String("job_id", job.ID), zap.String("format", string(job.Format)), zap.String("actor", actor))
	return s.snapshot(job.ID), nil
}

// GetJob returns a copy of the job state.
func (s *ExportService) GetJob(ctx context.Context, id string) (*models.ReportJob, error) {
	job := s.snapshot(id)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// Generate renders the current attendance records and stores the file,
// returning the signed download URL.
func (s *ExportService) Generate(ctx context.Context, id string, format models.ReportFormat) (string, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return "", fmt.Errorf("unsupported format %s", format)
	}
	records, _, err := s.records.ReadAll(ctx)
	if err != nil {
		return "", fmt.Errorf("read records: %w", err)
	}
	now := s.now().UTC()
	dataset := export.AttendanceDataset(fmt.Sprintf("Attendance %s", now.Format("2006-01-02 15:04")), records)

	var buf bytes.Buffer
	if err := renderer.Write(&buf, dataset); err != nil {
		return "", fmt.Errorf("render %s: %w", format, err)
	}
	filename := fmt.Sprintf("attendance_%s_%s.%s", now.Format("20060102_150405"), shortID(id), renderer.Extension())
	relPath, err := s.storage.Save(filename, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}

	token, _, err := s.signer.Generate(id, relPath)
	if err != nil {
		return "", fmt.Errorf("sign export: %w", err)
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/exports/download/%s", prefix, token), nil
}

// ResolveDownload validates token and opens the stored export file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	signed, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	if job := s.snapshot(signed.ReportID); job != nil && job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.storage.Open(signed.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	filename := filepath.Base(signed.Path)
	return &ExportDownload{
		File:      file,
		Filename:  filename,
		Format:    models.ReportFormat(strings.TrimPrefix(filepath.Ext(filename), ".")),
		ExpiresAt: signed.ExpiresAt,
	}, nil
}

// Cleanup removes export files older than the result TTL and forgets the
// jobs that produced them.
func (s *ExportService) Cleanup() {
	removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
	}
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	s.mu.Lock()
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()
	if len(removed) > 0 {
		s.logger.Info("export files removed", zap.Int("count", len(removed)))
	}
}

func (s *ExportService) handle(ctx context.Context, qjob jobs.Job) error {
	job := s.snapshot(qjob.ID)
	if job == nil {
		return fmt.Errorf("export job %s not found", qjob.ID)
	}
	s.setStatus(job.ID, models.ReportStatusProcessing)

	url, err := s.Generate(ctx, job.ID, job.Format)
	if err != nil && qjob.Attempt < s.cfg.MaxRetries {
		s.setStatus(job.ID, models.ReportStatusQueued)
		return err
	}
	s.finish(job.ID, url, err)
	if err != nil {
		s.logger.Error("export failed", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	s.logger.Info("export finished", zap.String("job_id", job.ID), zap.String("format", string(job.Format)))
	return nil
}

func (s *ExportService) setStatus(id string, status models.ReportStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = status
	}
}

func (s *ExportService) finish(id, url string, err error) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := s.now().UTC()
	job.FinishedAt = &now
	if err != nil {
		msg := err.Error()
		job.Status = models.ReportStatusFailed
		job.ErrorMessage = &msg
	} else {
		job.Status = models.ReportStatusFinished
		job.ResultURL = &url
	}
	format, status := job.Format, job.Status
	s.mu.Unlock()
	s.metrics.RecordExport(format, status)
}

func (s *ExportService) snapshot(id string) *models.ReportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	clone := *job
	return &clone
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
