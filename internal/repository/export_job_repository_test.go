package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/avramart/tutorhub-api/internal/models"
)

func TestExportJobRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExportJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO export_jobs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{UserID: "u1", Format: "csv"}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)
	require.Equal(t, models.ExportJobQueued, job.Status)
	require.False(t, job.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryPartialUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExportJobRepository(db)

	status := models.ExportJobProcessing
	progress := 10
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, progress = $2 WHERE id = $3")).
		WithArgs(status, progress, "j1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "j1", UpdateExportJobParams{
		Status:   &status,
		Progress: &progress,
	}))

	// no fields set means no statement issued
	require.NoError(t, repo.Update(context.Background(), "j1", UpdateExportJobParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListFinishedBefore(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExportJobRepository(db)
	after := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	finished := cutoff.Add(-time.Hour)
	url := "/exports/token"
	rows := sqlmock.NewRows([]string{"id", "user_id", "format", "status", "progress", "result_url", "error_message", "created_at", "finished_at"}).
		AddRow("j1", "u1", "csv", "FINISHED", 100, url, nil, finished.Add(-time.Minute), finished)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'FINISHED' AND result_url IS NOT NULL AND finished_at IS NOT NULL AND finished_at > $1 AND finished_at < $2 ORDER BY finished_at ASC LIMIT $3")).
		WithArgs(after, cutoff, 100).
		WillReturnRows(rows)

	jobs, err := repo.ListFinishedBefore(context.Background(), after, cutoff, 100)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "j1", jobs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListQueued(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExportJobRepository(db)
	rows := sqlmock.NewRows([]string{"id", "user_id", "format", "status", "progress", "result_url", "error_message", "created_at", "finished_at"}).
		AddRow("j1", "u1", "csv", "QUEUED", 0, nil, nil, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1")).
		WithArgs(50).
		WillReturnRows(rows)

	jobs, err := repo.ListQueued(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, models.ExportJobQueued, jobs[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
