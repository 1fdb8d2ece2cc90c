package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/avramart/tutorhub-api/internal/models"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
)

type meetingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Meeting, error)
	FindByTeacher(ctx context.Context, teacherID string) ([]models.Meeting, error)
	FindByStudent(ctx context.Context, studentID string) ([]models.Meeting, error)
	FindUnclaimedByCourse(ctx context.Context, courseID string) ([]models.Meeting, error)
	FindOverlappingByTeacher(ctx context.Context, teacherID string, start, end time.Time) ([]models.Meeting, error)
	FindOverlappingByStudent(ctx context.Context, studentID string, start, end time.Time) ([]models.Meeting, error)
	Create(ctx context.Context, meeting *models.Meeting) error
	Delete(ctx context.Context, id string) error
	AssignStudent(ctx context.Context, id, studentID string) (bool, error)
	ReleaseStudent(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateMeetingRequest describes a new meeting slot.
type CreateMeetingRequest struct {
	CourseID  string    `json:"course_id" validate:"required"`
	Beginning time.Time `json:"beginning" validate:"required"`
	Duration  int       `json:"duration" validate:"required,gt=0"`
}

// BookingService governs meeting slots: creation and removal by teachers,
// claiming and vacating by students, and the interval-overlap rules that keep
// any one teacher or student from being double-booked.
type BookingService struct {
	meetings  meetingRepository
	courses   courseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookingService constructs BookingService.
func NewBookingService(meetings meetingRepository, courses courseReader, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{meetings: meetings, courses: courses, validator: validate, logger: logger}
}

// CreateMeeting schedules a new unclaimed slot for the calling teacher.
// Two intervals [a, a+da) and [b, b+db) conflict iff a < b+db and b < a+da;
// slots that merely touch do not conflict.
func (s *BookingService) CreateMeeting(ctx context.Context, teacher *models.User, req *CreateMeetingRequest) (*models.Meeting, error) {
	if req == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "Meeting is null.")
	}
	if teacher == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "Only teacher can create meeting.")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting payload")
	}
	if req.Beginning.Before(time.Now()) {
		return nil, appErrors.CloneWithLog(appErrors.ErrInvalidState, "Cannot schedule meeting in the past.",
			"create meeting: beginning "+req.Beginning.String()+" is in the past")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Course does not exist.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.TeacherID == nil || *course.TeacherID != teacher.ID {
		return nil, appErrors.CloneWithLog(appErrors.ErrForbidden, "Course does not belong to this teacher.",
			"create meeting: course "+req.CourseID+" is not owned by teacher "+teacher.ID)
	}

	end := req.Beginning.Add(time.Duration(req.Duration) * time.Minute)
	overlapping, err := s.meetings.FindOverlappingByTeacher(ctx, teacher.ID, req.Beginning, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check meeting overlap")
	}
	if len(overlapping) > 0 {
		return nil, appErrors.CloneWithLog(appErrors.ErrConflict, "Teacher has another meeting at this time.",
			"create meeting: teacher "+teacher.ID+" already has a meeting overlapping the requested interval")
	}

	meeting := &models.Meeting{
		CourseID:  req.CourseID,
		TeacherID: teacher.ID,
		Beginning: req.Beginning,
		Duration:  req.Duration,
	}
	if err := s.meetings.Create(ctx, meeting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create meeting")
	}
	s.logger.Info("meeting created", zap.String("meeting_id", meeting.ID), zap.String("teacher_id", teacher.ID))
	return meeting, nil
}

// RemoveMeeting deletes a slot. Only the owning teacher may do this; the
// delete is unconditional, claimed or not.
func (s *BookingService) RemoveMeeting(ctx context.Context, meetingID string, teacher *models.User) error {
	meeting, err := s.findMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if teacher == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	if teacher.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrInvalidRole, "Only teacher can delete meeting.")
	}
	if meeting.TeacherID != teacher.ID {
		return appErrors.CloneWithLog(appErrors.ErrForbidden, "Meeting does not belong to this teacher.",
			"remove meeting: meeting "+meetingID+" is not owned by teacher "+teacher.ID)
	}
	if err := s.meetings.Delete(ctx, meetingID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete meeting")
	}
	s.logger.Info("meeting removed", zap.String("meeting_id", meetingID), zap.String("teacher_id", teacher.ID))
	return nil
}

// Claim books the slot for the calling student.
func (s *BookingService) Claim(ctx context.Context, meetingID string, student *models.User) (*models.Meeting, error) {
	meeting, err := s.findMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "Only student can book a meeting.")
	}
	if meeting.StudentID != nil {
		return nil, appErrors.CloneWithLog(appErrors.ErrConflict, "Meeting has already been booked.",
			"claim meeting: meeting "+meetingID+" is already claimed")
	}

	overlapping, err := s.meetings.FindOverlappingByStudent(ctx, student.ID, meeting.Beginning, meeting.End())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check meeting overlap")
	}
	if len(overlapping) > 0 {
		return nil, appErrors.CloneWithLog(appErrors.ErrConflict, "Student has another meeting at this time.",
			"claim meeting: student "+student.ID+" already has a meeting overlapping "+meetingID)
	}

	claimed, err := s.meetings.AssignStudent(ctx, meetingID, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim meeting")
	}
	if !claimed {
		// Lost the race to another student between the read and the write.
		return nil, appErrors.Clone(appErrors.ErrConflict, "Meeting has already been booked.")
	}
	meeting.StudentID = &student.ID
	s.logger.Info("meeting claimed", zap.String("meeting_id", meetingID), zap.String("student_id", student.ID))
	return meeting, nil
}

// Vacate releases the slot previously claimed by the calling student.
func (s *BookingService) Vacate(ctx context.Context, meetingID string, student *models.User) (*models.Meeting, error) {
	meeting, err := s.findMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "Only student can cancel a booking.")
	}
	if meeting.StudentID == nil || *meeting.StudentID != student.ID {
		return nil, appErrors.CloneWithLog(appErrors.ErrInvalidState, "User was not assigned to this meeting.",
			"vacate meeting: student "+student.ID+" is not assigned to meeting "+meetingID)
	}
	if err := s.meetings.ReleaseStudent(ctx, meetingID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to vacate meeting")
	}
	meeting.StudentID = nil
	s.logger.Info("meeting vacated", zap.String("meeting_id", meetingID), zap.String("student_id", student.ID))
	return meeting, nil
}

// ListUnclaimedForCourse returns the course's bookable slots.
func (s *BookingService) ListUnclaimedForCourse(ctx context.Context, courseID string, student *models.User) ([]models.Meeting, error) {
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "Only student can use this endpoint.")
	}
	meetings, err := s.meetings.FindUnclaimedByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course meetings")
	}
	return meetings, nil
}

// ListForTeacher returns all meetings owned by the calling teacher.
func (s *BookingService) ListForTeacher(ctx context.Context, teacher *models.User) ([]models.Meeting, error) {
	if teacher == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "Only teacher can use this endpoint.")
	}
	meetings, err := s.meetings.FindByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher meetings")
	}
	return meetings, nil
}

// ListForStudent returns all meetings claimed by the calling student.
func (s *BookingService) ListForStudent(ctx context.Context, student *models.User) ([]models.Meeting, error) {
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "User does not exist.")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "Only student can use this endpoint.")
	}
	meetings, err := s.meetings.FindByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student meetings")
	}
	return meetings, nil
}

func (s *BookingService) findMeeting(ctx context.Context, meetingID string) (*models.Meeting, error) {
	meeting, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Meeting does not exist.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meeting")
	}
	return meeting, nil
}
