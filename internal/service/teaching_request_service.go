package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avramart/tutorhub-api/internal/models"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
)

type teachingRequestRepository interface {
	FindByID(ctx context.Context, id string) (*models.TeachingRequest, error)
	FindAll(ctx context.Context) ([]models.TeachingRequestDetail, error)
	ExistsForUser(ctx context.Context, userID string, statuses ...models.TeachingRequestStatus) (bool, error)
	Create(ctx context.Context, request *models.TeachingRequest) error
	UpdateStatus(ctx context.Context, id string, status models.TeachingRequestStatus, decidedAt time.Time) (bool, error)
}

type applicantReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type courseCascader interface {
	FindByStudent(ctx context.Context, studentID string) ([]models.CourseDetail, error)
	FindByTeacher(ctx context.Context, teacherID string) ([]models.CourseDetail, error)
	RemoveStudent(ctx context.Context, courseID, studentID string, now time.Time) error
	DeleteWithMeetings(ctx context.Context, courseID string) error
}

type roleMutator interface {
	UpdateRoleByEmail(ctx context.Context, email string, role models.Role) (bool, error)
}

// TeachingRequestConfig tunes the workflow.
type TeachingRequestConfig struct {
	ReapplyAfterRejection bool
}

// TeachingRequestService runs the student-to-teacher promotion workflow:
// students apply, admins approve or reject, and the decision cascades through
// the target's enrollments or courses before the role flips.
type TeachingRequestService struct {
	requests teachingRequestRepository
	users    applicantReader
	courses  courseCascader
	roles    roleMutator
	cache    *CacheService
	config   TeachingRequestConfig
	logger   *zap.Logger
}

// NewTeachingRequestService constructs TeachingRequestService.
func NewTeachingRequestService(requests teachingRequestRepository, users applicantReader, courses courseCascader, roles roleMutator, cache *CacheService, config TeachingRequestConfig, logger *zap.Logger) *TeachingRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeachingRequestService{requests: requests, users: users, courses: courses, roles: roles, cache: cache, config: config, logger: logger}
}

// Apply files a teaching application for the calling student. By default any
// prior request, whatever its status, blocks re-application; with
// ReapplyAfterRejection enabled only a pending or approved request blocks.
func (s *TeachingRequestService) Apply(ctx context.Context, student *models.User) (*models.TeachingRequest, error) {
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "Only student can apply for teacher status.")
	}

	var blocking []models.TeachingRequestStatus
	if s.config.ReapplyAfterRejection {
		blocking = []models.TeachingRequestStatus{models.TeachingRequestPending, models.TeachingRequestApproved}
	}
	exists, err := s.requests.ExistsForUser(ctx, student.ID, blocking...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teaching request")
	}
	if exists {
		return nil, appErrors.CloneWithLog(appErrors.ErrConflict, "Teaching request already exists.",
			"teaching request: user "+student.ID+" has already applied for teacher status")
	}

	request := &models.TeachingRequest{
		UserID:      student.ID,
		Status:      models.TeachingRequestPending,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teaching request")
	}
	s.logger.Info("teaching request filed", zap.String("request_id", request.ID), zap.String("user_id", student.ID))
	return request, nil
}

// List returns every teaching request, any status, for admin review.
func (s *TeachingRequestService) List(ctx context.Context, admin *models.User) ([]models.TeachingRequestDetail, error) {
	if admin == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	if admin.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "Only admin can get teaching requests.")
	}
	requests, err := s.requests.FindAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching requests")
	}
	return requests, nil
}

// Decide finalises a pending request. Approval strips the applicant's student
// enrollments (vacating their claimed meetings course by course) and promotes
// them to teacher; rejection tears down any courses they teach and demotes
// them to student. The status is persisted before the cascade runs, so a crash
// mid-cascade leaves the request decided with cleanup incomplete; each
// per-course cascade is itself atomic.
func (s *TeachingRequestService) Decide(ctx context.Context, requestID string, admin *models.User, decision models.TeachingRequestStatus) (*models.TeachingRequest, error) {
	if admin == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	if admin.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "Only admin can update teaching request status.")
	}
	if decision != models.TeachingRequestApproved && decision != models.TeachingRequestRejected {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "Decision must be APPROVED or REJECTED.")
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Teaching request not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching request")
	}
	if request.Status != models.TeachingRequestPending {
		return nil, s.alreadyDecided(request)
	}

	target, err := s.users.FindByID(ctx, request.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicant")
	}

	decidedAt := time.Now().UTC()
	won, err := s.requests.UpdateStatus(ctx, requestID, decision, decidedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teaching request")
	}
	if !won {
		// Another admin finalised the request between the read and the write.
		request, reloadErr := s.requests.FindByID(ctx, requestID)
		if reloadErr != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Teaching request has already been decided.")
		}
		return nil, s.alreadyDecided(request)
	}
	request.Status = decision
	request.DecidedAt = &decidedAt

	switch decision {
	case models.TeachingRequestApproved:
		if err := s.promote(ctx, target); err != nil {
			return nil, err
		}
	case models.TeachingRequestRejected:
		if err := s.demote(ctx, target); err != nil {
			return nil, err
		}
	}

	s.logger.Info("teaching request decided",
		zap.String("request_id", requestID),
		zap.String("user_id", target.ID),
		zap.String("decision", string(decision)))
	return request, nil
}

func (s *TeachingRequestService) promote(ctx context.Context, target *models.User) error {
	courses, err := s.courses.FindByStudent(ctx, target.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applicant enrollments")
	}
	now := time.Now().UTC()
	for _, course := range courses {
		if err := s.courses.RemoveStudent(ctx, course.ID, target.ID, now); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll applicant")
		}
	}
	return s.setRole(ctx, target.Email, models.RoleTeacher)
}

func (s *TeachingRequestService) demote(ctx context.Context, target *models.User) error {
	courses, err := s.courses.FindByTeacher(ctx, target.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applicant courses")
	}
	for _, course := range courses {
		if err := s.courses.DeleteWithMeetings(ctx, course.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove applicant course")
		}
	}
	if len(courses) > 0 {
		s.cache.Invalidate(ctx, courseCatalogCacheKey)
	}
	return s.setRole(ctx, target.Email, models.RoleStudent)
}

func (s *TeachingRequestService) setRole(ctx context.Context, email string, role models.Role) error {
	updated, err := s.roles.UpdateRoleByEmail(ctx, email, role)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}
	if !updated {
		return appErrors.CloneWithLog(appErrors.ErrNotFound, "User does not exist.",
			"set role: user with email "+email+" does not exist")
	}
	return nil
}

func (s *TeachingRequestService) alreadyDecided(request *models.TeachingRequest) error {
	return appErrors.CloneWithLog(appErrors.ErrConflict,
		"Teaching request already "+strings.ToLower(string(request.Status))+".",
		"teaching request "+request.ID+" is already "+strings.ToLower(string(request.Status)))
}
