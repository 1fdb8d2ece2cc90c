package models

import "time"

// Course is a teacher-owned offering students enroll into. TeacherID is
// nullable only transiently while a rejected teacher's courses are torn down.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Price     float64   `db:"price" json:"price"`
	Room      string    `db:"room" json:"room"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseDetail augments a course with its teacher's display name and the
// enrolled student count for listings.
type CourseDetail struct {
	Course
	TeacherName  *string `db:"teacher_name" json:"teacher_name,omitempty"`
	StudentCount int     `db:"student_count" json:"student_count"`
}
