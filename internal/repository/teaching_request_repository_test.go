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

func TestTeachingRequestRepositoryUpdateStatusGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeachingRequestRepository(db)
	decidedAt := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE teaching_requests SET status = $2, decided_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("r1", models.TeachingRequestApproved, decidedAt, models.TeachingRequestPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.UpdateStatus(context.Background(), "r1", models.TeachingRequestApproved, decidedAt)
	require.NoError(t, err)
	require.True(t, won)

	// Already decided: guard misses, no rows affected.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE teaching_requests SET status = $2, decided_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("r1", models.TeachingRequestRejected, decidedAt, models.TeachingRequestPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err = repo.UpdateStatus(context.Background(), "r1", models.TeachingRequestRejected, decidedAt)
	require.NoError(t, err)
	require.False(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingRequestRepositoryExistsForUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeachingRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teaching_requests WHERE user_id = $1 LIMIT 1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsForUser(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teaching_requests WHERE user_id = $1 AND status = ANY($2) LIMIT 1")).
		WithArgs("s1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsForUser(context.Background(), "s1", models.TeachingRequestPending, models.TeachingRequestApproved)
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingRequestRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeachingRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teaching_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.TeachingRequest{UserID: "s1"}
	require.NoError(t, repo.Create(context.Background(), request))
	require.NotEmpty(t, request.ID)
	require.Equal(t, models.TeachingRequestPending, request.Status)
	require.False(t, request.RequestedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingRequestRepositoryFindAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeachingRequestRepository(db)
	rows := sqlmock.NewRows([]string{"id", "user_id", "status", "requested_at", "decided_at", "applicant_email", "applicant_name"}).
		AddRow("r1", "s1", "PENDING", time.Now(), nil, "jane@example.com", "Jane Doe")
	mock.ExpectQuery(regexp.QuoteMeta("FROM teaching_requests t")).
		WillReturnRows(rows)

	requests, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, "jane@example.com", requests[0].ApplicantEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}
