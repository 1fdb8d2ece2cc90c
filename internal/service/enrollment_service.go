package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/avramart/tutorhub-api/internal/models"
	"github.com/avramart/tutorhub-api/internal/repository"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
)

const courseCatalogCacheKey = "courses:catalog"

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindAll(ctx context.Context) ([]models.CourseDetail, error)
	FindByTeacher(ctx context.Context, teacherID string) ([]models.CourseDetail, error)
	FindByStudent(ctx context.Context, studentID string) ([]models.CourseDetail, error)
	Create(ctx context.Context, course *models.Course) error
	IsMember(ctx context.Context, courseID, studentID string) (bool, error)
	AddStudent(ctx context.Context, courseID, studentID string) error
	RemoveStudent(ctx context.Context, courseID, studentID string, now time.Time) error
	DeleteWithMeetings(ctx context.Context, courseID string) error
}

// CreateCourseRequest describes course creation payload.
type CreateCourseRequest struct {
	Name  string  `json:"name" validate:"required"`
	Price float64 `json:"price" validate:"gte=0"`
	Room  string  `json:"room" validate:"required"`
}

// EnrollmentService governs course membership: who may join a course, who may
// leave it, and how leaving cascades into the course's meeting slots.
type EnrollmentService struct {
	courses   courseRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(courses courseRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{courses: courses, cache: cache, validator: validate, logger: logger}
}

// ListAll returns the public course catalog, served from cache when warm.
func (s *EnrollmentService) ListAll(ctx context.Context) ([]models.CourseDetail, error) {
	var cached []models.CourseDetail
	if hit, err := s.cache.Get(ctx, courseCatalogCacheKey, &cached); err == nil && hit {
		return cached, nil
	}
	courses, err := s.courses.FindAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	s.cache.Set(ctx, courseCatalogCacheKey, courses, 0)
	return courses, nil
}

// Enroll appends a student to a course's membership.
func (s *EnrollmentService) Enroll(ctx context.Context, student *models.User, courseID string) (*models.Course, error) {
	course, err := s.findCourse(ctx, courseID, "assignment to course")
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, appErrors.CloneWithLog(appErrors.ErrNotFound, "User does not exist.",
			"assignment to course: user does not exist")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.CloneWithLog(appErrors.ErrInvalidRole, "Only student can assign to a course.",
			"assignment to course: only student can assign to course "+courseID)
	}
	member, err := s.courses.IsMember(ctx, courseID, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if member {
		return nil, appErrors.CloneWithLog(appErrors.ErrConflict, "User has already been assigned to this course.",
			"assignment to course: user "+student.ID+" already assigned to course "+courseID)
	}
	if err := s.courses.AddStudent(ctx, courseID, student.ID); err != nil {
		// lost a race with an identical enroll between the IsMember check and
		// the insert
		if errors.Is(err, repository.ErrDuplicateMembership) {
			return nil, appErrors.CloneWithLog(appErrors.ErrConflict, "User has already been assigned to this course.",
				"assignment to course: user "+student.ID+" already assigned to course "+courseID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	s.logger.Info("student enrolled", zap.String("course_id", courseID), zap.String("student_id", student.ID))
	return course, nil
}

// Unenroll removes a student from a course. Their claimed meetings in the
// course are released and the course's stale unclaimed slots purged, all as
// one atomic cascade.
func (s *EnrollmentService) Unenroll(ctx context.Context, student *models.User, courseID string) (*models.Course, error) {
	course, err := s.findCourse(ctx, courseID, "removal from course")
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, appErrors.CloneWithLog(appErrors.ErrNotFound, "User does not exist.",
			"removal from course: user does not exist")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.CloneWithLog(appErrors.ErrInvalidRole, "Only student can be removed from a course.",
			"removal from course: only student can be removed from course "+courseID)
	}
	member, err := s.courses.IsMember(ctx, courseID, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !member {
		return nil, appErrors.CloneWithLog(appErrors.ErrInvalidState, "User was not assigned to this course.",
			"removal from course: user "+student.ID+" was not assigned to course "+courseID)
	}
	if err := s.courses.RemoveStudent(ctx, courseID, student.ID, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll student")
	}
	s.logger.Info("student unenrolled", zap.String("course_id", courseID), zap.String("student_id", student.ID))
	return course, nil
}

// ListForTeacher returns the courses owned by the calling teacher.
func (s *EnrollmentService) ListForTeacher(ctx context.Context, teacher *models.User) ([]models.CourseDetail, error) {
	if teacher == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "Only teacher can use this endpoint.")
	}
	courses, err := s.courses.FindByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher courses")
	}
	return courses, nil
}

// ListForStudent returns the courses the calling student attends.
func (s *EnrollmentService) ListForStudent(ctx context.Context, student *models.User) ([]models.CourseDetail, error) {
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "Only student can use this endpoint.")
	}
	courses, err := s.courses.FindByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student courses")
	}
	return courses, nil
}

// CreateCourse registers a new course owned by the calling teacher.
func (s *EnrollmentService) CreateCourse(ctx context.Context, teacher *models.User, req *CreateCourseRequest) (*models.Course, error) {
	if req == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "Course is null.")
	}
	if teacher == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Teacher does not exist.")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "Only teacher can create course.")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{Name: req.Name, Price: req.Price, Room: req.Room, TeacherID: &teacher.ID}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.cache.Invalidate(ctx, courseCatalogCacheKey)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("teacher_id", teacher.ID))
	return course, nil
}

// RemoveCourse deletes a course together with all its meetings and
// memberships, as one atomic cascade. Only the owning teacher may do this.
func (s *EnrollmentService) RemoveCourse(ctx context.Context, courseID string, teacher *models.User) error {
	course, err := s.findCourse(ctx, courseID, "removal of course")
	if err != nil {
		return err
	}
	if teacher == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "Teacher does not exist.")
	}
	if teacher.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrInvalidRole, "Only teacher can delete course.")
	}
	if course.TeacherID == nil || *course.TeacherID != teacher.ID {
		return appErrors.CloneWithLog(appErrors.ErrForbidden, "Course does not belong to this teacher.",
			"removal of course: course "+courseID+" is not owned by teacher "+teacher.ID)
	}
	if err := s.courses.DeleteWithMeetings(ctx, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove course")
	}
	s.cache.Invalidate(ctx, courseCatalogCacheKey)
	s.logger.Info("course removed", zap.String("course_id", courseID), zap.String("teacher_id", teacher.ID))
	return nil
}

func (s *EnrollmentService) findCourse(ctx context.Context, courseID, op string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.CloneWithLog(appErrors.ErrNotFound, "Course does not exist.",
				op+": course with id "+courseID+" does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}
