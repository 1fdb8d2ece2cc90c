package models

import "time"

// Meeting is a bookable time slot owned by a teacher within a course. A NULL
// StudentID means the slot is unclaimed. The slot occupies the half-open
// interval [Beginning, Beginning+Duration minutes).
type Meeting struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	StudentID *string   `db:"student_id" json:"student_id,omitempty"`
	Beginning time.Time `db:"beginning" json:"beginning"`
	Duration  int       `db:"duration" json:"duration"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ScheduleEntry is a meeting joined with the names an exported timetable shows.
type ScheduleEntry struct {
	Meeting
	CourseName  string  `db:"course_name" json:"course_name"`
	Room        string  `db:"room" json:"room"`
	TeacherName string  `db:"teacher_name" json:"teacher_name"`
	StudentName *string `db:"student_name" json:"student_name,omitempty"`
}

// End returns the exclusive end of the meeting's interval.
func (m Meeting) End() time.Time {
	return m.Beginning.Add(time.Duration(m.Duration) * time.Minute)
}

// Overlaps reports whether two meetings share at least one instant under
// half-open semantics: touching endpoints do not conflict.
func (m Meeting) Overlaps(other Meeting) bool {
	return m.Beginning.Before(other.End()) && other.Beginning.Before(m.End())
}
