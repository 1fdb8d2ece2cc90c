package models

import "time"

// TeachingRequestStatus tracks the request state machine:
// PENDING -> APPROVED | REJECTED, terminal thereafter.
type TeachingRequestStatus string

const (
	TeachingRequestPending  TeachingRequestStatus = "PENDING"
	TeachingRequestApproved TeachingRequestStatus = "APPROVED"
	TeachingRequestRejected TeachingRequestStatus = "REJECTED"
)

// TeachingRequest is a student's application to become a teacher.
type TeachingRequest struct {
	ID          string                `db:"id" json:"id"`
	UserID      string                `db:"user_id" json:"user_id"`
	Status      TeachingRequestStatus `db:"status" json:"status"`
	RequestedAt time.Time             `db:"requested_at" json:"requested_at"`
	DecidedAt   *time.Time            `db:"decided_at" json:"decided_at,omitempty"`
}

// TeachingRequestDetail joins applicant identity for admin listings.
type TeachingRequestDetail struct {
	TeachingRequest
	ApplicantEmail string `db:"applicant_email" json:"applicant_email"`
	ApplicantName  string `db:"applicant_name" json:"applicant_name"`
}
