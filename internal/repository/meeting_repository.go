package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avramart/tutorhub-api/internal/models"
)

const meetingColumns = `id, course_id, teacher_id, student_id, beginning, duration, created_at`

// MeetingRepository handles persistence of bookable meeting slots.
type MeetingRepository struct {
	db *sqlx.DB
}

// NewMeetingRepository constructs the repository.
func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// FindByID returns a meeting by its ID.
func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*models.Meeting, error) {
	query := fmt.Sprintf(`SELECT %s FROM meetings WHERE id = $1`, meetingColumns)
	var meeting models.Meeting
	if err := r.db.GetContext(ctx, &meeting, query, id); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// FindByTeacher returns all meetings owned by a teacher.
func (r *MeetingRepository) FindByTeacher(ctx context.Context, teacherID string) ([]models.Meeting, error) {
	query := fmt.Sprintf(`SELECT %s FROM meetings WHERE teacher_id = $1 ORDER BY beginning`, meetingColumns)
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher meetings: %w", err)
	}
	return meetings, nil
}

// FindByStudent returns all meetings claimed by a student.
func (r *MeetingRepository) FindByStudent(ctx context.Context, studentID string) ([]models.Meeting, error) {
	query := fmt.Sprintf(`SELECT %s FROM meetings WHERE student_id = $1 ORDER BY beginning`, meetingColumns)
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, studentID); err != nil {
		return nil, fmt.Errorf("list student meetings: %w", err)
	}
	return meetings, nil
}

// FindUnclaimedByCourse returns the course's bookable slots.
func (r *MeetingRepository) FindUnclaimedByCourse(ctx context.Context, courseID string) ([]models.Meeting, error) {
	query := fmt.Sprintf(`SELECT %s FROM meetings WHERE course_id = $1 AND student_id IS NULL ORDER BY beginning`, meetingColumns)
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, courseID); err != nil {
		return nil, fmt.Errorf("list unclaimed meetings: %w", err)
	}
	return meetings, nil
}

// FindScheduleByUser returns the user's meetings joined with course and
// participant names, as teacher or as student, ordered chronologically.
func (r *MeetingRepository) FindScheduleByUser(ctx context.Context, userID string) ([]models.ScheduleEntry, error) {
	const query = `SELECT m.id, m.course_id, m.teacher_id, m.student_id, m.beginning, m.duration, m.created_at,
            c.name AS course_name, c.room AS room,
            t.first_name || ' ' || t.last_name AS teacher_name,
            CASE WHEN s.id IS NULL THEN NULL ELSE s.first_name || ' ' || s.last_name END AS student_name
        FROM meetings m
        JOIN courses c ON c.id = m.course_id
        JOIN users t ON t.id = m.teacher_id
        LEFT JOIN users s ON s.id = m.student_id
        WHERE m.teacher_id = $1 OR m.student_id = $1
        ORDER BY m.beginning`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	return entries, nil
}

// FindOverlappingByTeacher returns the teacher's meetings intersecting the
// half-open interval [start, end). Touching endpoints do not intersect.
func (r *MeetingRepository) FindOverlappingByTeacher(ctx context.Context, teacherID string, start, end time.Time) ([]models.Meeting, error) {
	query := fmt.Sprintf(`SELECT %s FROM meetings
        WHERE teacher_id = $1 AND beginning < $3 AND beginning + duration * interval '1 minute' > $2`, meetingColumns)
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, teacherID, start, end); err != nil {
		return nil, fmt.Errorf("find overlapping teacher meetings: %w", err)
	}
	return meetings, nil
}

// FindOverlappingByStudent returns the student's claimed meetings intersecting
// the half-open interval [start, end).
func (r *MeetingRepository) FindOverlappingByStudent(ctx context.Context, studentID string, start, end time.Time) ([]models.Meeting, error) {
	query := fmt.Sprintf(`SELECT %s FROM meetings
        WHERE student_id = $1 AND beginning < $3 AND beginning + duration * interval '1 minute' > $2`, meetingColumns)
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, studentID, start, end); err != nil {
		return nil, fmt.Errorf("find overlapping student meetings: %w", err)
	}
	return meetings, nil
}

// Create persists a new meeting slot. The exclusion constraint on
// (teacher_id, tstzrange) backs the no-overlap invariant against concurrent
// inserts.
func (r *MeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.NewString()
	}
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO meetings (id, course_id, teacher_id, student_id, beginning, duration, created_at)
        VALUES (:id, :course_id, :teacher_id, :student_id, :beginning, :duration, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, meeting); err != nil {
		return fmt.Errorf("create meeting: %w", err)
	}
	return nil
}

// Delete removes a meeting row.
func (r *MeetingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	return nil
}

// AssignStudent claims the slot for a student. The write is guarded so a
// concurrently claimed slot is not overwritten; the affected-row count tells
// the caller whether the claim took effect.
func (r *MeetingRepository) AssignStudent(ctx context.Context, id, studentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE meetings SET student_id = $2 WHERE id = $1 AND student_id IS NULL`, id, studentID)
	if err != nil {
		return false, fmt.Errorf("assign meeting student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign meeting student: %w", err)
	}
	return affected == 1, nil
}

// ReleaseStudent vacates the slot.
func (r *MeetingRepository) ReleaseStudent(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE meetings SET student_id = NULL WHERE id = $1`, id); err != nil {
		return fmt.Errorf("release meeting student: %w", err)
	}
	return nil
}
