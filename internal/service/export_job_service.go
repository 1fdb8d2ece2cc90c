package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avramart/tutorhub-api/internal/models"
	"github.com/avramart/tutorhub-api/internal/repository"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
	"github.com/avramart/tutorhub-api/pkg/jobs"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, after, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type accountReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type fileStore interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
	Remove(relPath string) error
	RemoveOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Sign(jobID, relPath string) (string, time.Time, error)
	Verify(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

// ExportJobConfig governs retry, recovery and cleanup behaviour.
type ExportJobConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ExportJobService manages asynchronous schedule export jobs: creation,
// status lookup, token-gated downloads and housekeeping of stored files.
type ExportJobService struct {
	store  exportJobStore
	queue  jobDispatcher
	access *AccessService
	files  fileStore
	signer downloadSigner
	cfg    ExportJobConfig
	logger *zap.Logger
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// NewExportJobService constructs an ExportJobService.
func NewExportJobService(store exportJobStore, queue jobDispatcher, files fileStore, signer downloadSigner, cfg ExportJobConfig, logger *zap.Logger) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ExportJobService{
		store:  store,
		queue:  queue,
		access: NewAccessService(),
		files:  files,
		signer: signer,
		cfg:    cfg,
		logger: logger,
	}
}

// CreateJob persists a queued export job for the user and hands it to the
// worker pool. An enqueue failure marks the job failed right away.
func (s *ExportJobService) CreateJob(ctx context.Context, user *models.User, format ExportFormat) (*models.ExportJob, error) {
	if err := s.access.RequireUser(user); err != nil {
		return nil, err
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	job := &models.ExportJob{
		UserID: user.ID,
		Format: string(format),
		Status: models.ExportJobQueued,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "schedule-export"}); err != nil {
		failed := models.ExportJobFailed
		progress := 100
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.store.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &failed,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return job, nil
}

// GetStatus returns job metadata. Jobs are only visible to their owner.
func (s *ExportJobService) GetStatus(ctx context.Context, user *models.User, id string) (*models.ExportJob, error) {
	if err := s.access.RequireUser(user); err != nil {
		return nil, err
	}
	job, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Export job does not exist.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.UserID != user.ID {
		return nil, appErrors.ErrForbidden
	}
	return job, nil
}

// ResolveDownload validates a download token and opens the stored file.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Verify(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.store.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Export job does not exist.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportJobFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:        file,
		Filename:    filepath.Base(relPath),
		ContentType: contentTypeForFormat(ExportFormat(job.Format)),
		ExpiresAt:   expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a process restart.
func (s *ExportJobService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.store.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued export jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "schedule-export"}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
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
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ExportJobService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	// Pages forward on finished_at so a row that cannot be cleaned is never
	// fetched twice in one pass.
	var cursor time.Time
	for {
		if ctx.Err() != nil {
			return
		}
		finished, err := s.store.ListFinishedBefore(ctx, cursor, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			return
		}
		if len(finished) == 0 {
			break
		}
		for _, job := range finished {
			if job.FinishedAt != nil {
				cursor = *job.FinishedAt
			}
			if job.ResultURL == nil {
				continue
			}
			parts := strings.Split(*job.ResultURL, "/")
			token := parts[len(parts)-1]
			if token != "" {
				if _, relPath, _, err := s.signer.Verify(token, true); err == nil {
					if err := s.files.Remove(relPath); err != nil {
						s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
					}
				}
			}
			cleaned := ""
			if err := s.store.Update(ctx, job.ID, repository.UpdateExportJobParams{ResultURL: &cleaned}); err != nil {
				s.logger.Sugar().Warnw("cleanup mark failed", "job_id", job.ID, "error", err)
			}
		}
		if len(finished) < 100 {
			break
		}
	}
	if _, err := s.files.RemoveOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func contentTypeForFormat(format ExportFormat) string {
	if format == ExportFormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// ExportWorker bridges queue jobs to the schedule export renderer.
type ExportWorker struct {
	store      exportJobStore
	accounts   accountReader
	exporter   *ScheduleExportService
	files      fileStore
	signer     downloadSigner
	maxRetries int
	logger     *zap.Logger
}

// NewExportWorker constructs a worker.
func NewExportWorker(store exportJobStore, accounts accountReader, exporter *ScheduleExportService, files fileStore, signer downloadSigner, maxRetries int, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ExportWorker{
		store:      store,
		accounts:   accounts,
		exporter:   exporter,
		files:      files,
		signer:     signer,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Handle renders one export job and records the signed download URL.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.store.FindByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ExportJobProcessing
	progress := 10
	if err := w.store.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}

	url, err := w.generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ExportJobFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.store.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
			}
		} else {
			queued := models.ExportJobQueued
			reset := 0
			if updateErr := w.store.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}

	finished := models.ExportJobFinished
	progress = 100
	now := time.Now().UTC()
	clear := ""
	if err := w.store.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	return nil
}

func (w *ExportWorker) generate(ctx context.Context, record *models.ExportJob) (string, error) {
	user, err := w.accounts.FindByID(ctx, record.UserID)
	if err != nil {
		return "", err
	}
	payload, _, err := w.exporter.Export(ctx, user, ExportFormat(record.Format))
	if err != nil {
		return "", err
	}
	relPath := filepath.Join(record.ID, "schedule."+record.Format)
	if _, err := w.files.Save(relPath, payload); err != nil {
		return "", err
	}
	token, _, err := w.signer.Sign(record.ID, relPath)
	if err != nil {
		return "", err
	}
	return "/exports/" + token, nil
}
