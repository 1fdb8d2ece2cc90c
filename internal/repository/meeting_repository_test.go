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

func TestMeetingRepositoryFindOverlappingByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMeetingRepository(db)
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	rows := sqlmock.NewRows([]string{"id", "course_id", "teacher_id", "student_id", "beginning", "duration", "created_at"}).
		AddRow("m1", "c1", "t1", nil, start.Add(-30*time.Minute), 60, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("beginning < $3 AND beginning + duration * interval '1 minute' > $2")).
		WithArgs("t1", start, end).
		WillReturnRows(rows)

	meetings, err := repo.FindOverlappingByTeacher(context.Background(), "t1", start, end)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	require.Equal(t, "m1", meetings[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryAssignStudentGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMeetingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE meetings SET student_id = $2 WHERE id = $1 AND student_id IS NULL")).
		WithArgs("m1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.AssignStudent(context.Background(), "m1", "s1")
	require.NoError(t, err)
	require.True(t, claimed)

	// Slot already claimed: the guarded update touches no rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE meetings SET student_id = $2 WHERE id = $1 AND student_id IS NULL")).
		WithArgs("m1", "s2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err = repo.AssignStudent(context.Background(), "m1", "s2")
	require.NoError(t, err)
	require.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMeetingRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO meetings")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	meeting := &models.Meeting{CourseID: "c1", TeacherID: "t1", Beginning: time.Now().Add(time.Hour), Duration: 45}
	require.NoError(t, repo.Create(context.Background(), meeting))
	require.NotEmpty(t, meeting.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryFindScheduleByUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMeetingRepository(db)
	rows := sqlmock.NewRows([]string{"id", "course_id", "teacher_id", "student_id", "beginning", "duration", "created_at", "course_name", "room", "teacher_name", "student_name"}).
		AddRow("m1", "c1", "t1", "s1", time.Now(), 60, time.Now(), "Algebra", "101", "John Smith", "Jane Doe")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.teacher_id = $1 OR m.student_id = $1")).
		WithArgs("t1").
		WillReturnRows(rows)

	entries, err := repo.FindScheduleByUser(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Algebra", entries[0].CourseName)
	require.NotNil(t, entries[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryReleaseStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMeetingRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE meetings SET student_id = NULL WHERE id = $1")).
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReleaseStudent(context.Background(), "m1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
