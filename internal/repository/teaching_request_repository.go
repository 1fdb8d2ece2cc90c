package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/avramart/tutorhub-api/internal/models"
)

// TeachingRequestRepository handles persistence of teaching applications.
type TeachingRequestRepository struct {
	db *sqlx.DB
}

// NewTeachingRequestRepository constructs the repository.
func NewTeachingRequestRepository(db *sqlx.DB) *TeachingRequestRepository {
	return &TeachingRequestRepository{db: db}
}

// FindByID returns a request by its ID.
func (r *TeachingRequestRepository) FindByID(ctx context.Context, id string) (*models.TeachingRequest, error) {
	const query = `SELECT id, user_id, status, requested_at, decided_at FROM teaching_requests WHERE id = $1`
	var request models.TeachingRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindAll returns every request with applicant identity, newest first.
func (r *TeachingRequestRepository) FindAll(ctx context.Context) ([]models.TeachingRequestDetail, error) {
	const query = `SELECT t.id, t.user_id, t.status, t.requested_at, t.decided_at,
        u.email AS applicant_email, u.first_name || ' ' || u.last_name AS applicant_name
        FROM teaching_requests t
        JOIN users u ON u.id = t.user_id
        ORDER BY t.requested_at DESC`
	var requests []models.TeachingRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list teaching requests: %w", err)
	}
	return requests, nil
}

// ExistsForUser reports whether the user has a request in any of the given
// statuses. An empty status list matches any request.
func (r *TeachingRequestRepository) ExistsForUser(ctx context.Context, userID string, statuses ...models.TeachingRequestStatus) (bool, error) {
	query := `SELECT 1 FROM teaching_requests WHERE user_id = $1`
	args := []interface{}{userID}
	if len(statuses) > 0 {
		query += " AND status = ANY($2)"
		converted := make([]string, len(statuses))
		for i, s := range statuses {
			converted[i] = string(s)
		}
		args = append(args, pq.Array(converted))
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teaching request: %w", err)
	}
	return true, nil
}

// Create persists a new PENDING request.
func (r *TeachingRequestRepository) Create(ctx context.Context, request *models.TeachingRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.RequestedAt.IsZero() {
		request.RequestedAt = time.Now().UTC()
	}
	if request.Status == "" {
		request.Status = models.TeachingRequestPending
	}
	const query = `INSERT INTO teaching_requests (id, user_id, status, requested_at, decided_at)
        VALUES (:id, :user_id, :status, :requested_at, :decided_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create teaching request: %w", err)
	}
	return nil
}

// UpdateStatus finalises a request. The guard on the current PENDING status
// makes concurrent decisions race-safe; the affected-row count tells the
// caller whether this decision won.
func (r *TeachingRequestRepository) UpdateStatus(ctx context.Context, id string, status models.TeachingRequestStatus, decidedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE teaching_requests SET status = $2, decided_at = $3 WHERE id = $1 AND status = $4`,
		id, status, decidedAt, models.TeachingRequestPending)
	if err != nil {
		return false, fmt.Errorf("update teaching request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update teaching request status: %w", err)
	}
	return affected == 1, nil
}
