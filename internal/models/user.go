package models

import "time"

// Role is the single mutable role attached to a user. Promotion and demotion
// through the teaching-request workflow move users between STUDENT and TEACHER.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Degree       *string   `db:"degree" json:"degree,omitempty"`
	PhoneNumber  *string   `db:"phone_number" json:"phone_number,omitempty"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
