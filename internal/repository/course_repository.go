package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/avramart/tutorhub-api/internal/models"
)

// ErrDuplicateMembership reports a membership insert that lost a race with an
// identical insert, surfaced by the (course_id, student_id) primary key.
var ErrDuplicateMembership = errors.New("membership already exists")

const courseDetailColumns = `c.id, c.name, c.price, c.room, c.teacher_id, c.created_at,
        CASE WHEN u.id IS NULL THEN NULL ELSE u.first_name || ' ' || u.last_name END AS teacher_name,
        (SELECT COUNT(*) FROM course_students cs WHERE cs.course_id = c.id) AS student_count`

// CourseRepository handles persistence of courses and their student membership.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, price, room, teacher_id, created_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindAll returns every course with teacher name and enrollment count.
func (r *CourseRepository) FindAll(ctx context.Context) ([]models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c LEFT JOIN users u ON u.id = c.teacher_id ORDER BY c.name`, courseDetailColumns)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByTeacher returns the courses owned by a teacher.
func (r *CourseRepository) FindByTeacher(ctx context.Context, teacherID string) ([]models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c LEFT JOIN users u ON u.id = c.teacher_id WHERE c.teacher_id = $1 ORDER BY c.name`, courseDetailColumns)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher courses: %w", err)
	}
	return courses, nil
}

// FindByStudent returns the courses a student is enrolled in.
func (r *CourseRepository) FindByStudent(ctx context.Context, studentID string) ([]models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c
        LEFT JOIN users u ON u.id = c.teacher_id
        JOIN course_students cs ON cs.course_id = c.id
        WHERE cs.student_id = $1 ORDER BY c.name`, courseDetailColumns)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO courses (id, name, price, room, teacher_id, created_at)
        VALUES (:id, :name, :price, :room, :teacher_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// IsMember reports whether the student is enrolled in the course.
func (r *CourseRepository) IsMember(ctx context.Context, courseID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM course_students WHERE course_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course membership: %w", err)
	}
	return true, nil
}

// AddStudent inserts a membership row. The primary key on
// (course_id, student_id) backs the no-duplicate-enrollment invariant against
// concurrent inserts.
func (r *CourseRepository) AddStudent(ctx context.Context, courseID, studentID string) error {
	const query = `INSERT INTO course_students (course_id, student_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, courseID, studentID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateMembership
		}
		return fmt.Errorf("add course student: %w", err)
	}
	return nil
}

// RemoveStudent detaches a student from a course as one transaction: their
// claimed meetings in the course are released, the course's past unclaimed
// meetings are purged, and the membership row is deleted. A partial cascade is
// never observable.
func (r *CourseRepository) RemoveStudent(ctx context.Context, courseID, studentID string, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unenroll: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE meetings SET student_id = NULL WHERE course_id = $1 AND student_id = $2`,
		courseID, studentID); err != nil {
		return fmt.Errorf("release course meetings: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM meetings WHERE course_id = $1 AND student_id IS NULL AND beginning < $2`,
		courseID, now); err != nil {
		return fmt.Errorf("purge past meetings: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM course_students WHERE course_id = $1 AND student_id = $2`,
		courseID, studentID); err != nil {
		return fmt.Errorf("remove course student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unenroll: %w", err)
	}
	return nil
}

// DeleteWithMeetings removes a course together with its meetings and
// memberships in one transaction.
func (r *CourseRepository) DeleteWithMeetings(ctx context.Context, courseID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin course delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM meetings WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("delete course meetings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_students WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("delete course memberships: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, courseID); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit course delete: %w", err)
	}
	return nil
}
