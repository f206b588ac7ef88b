package models

import "time"

// Student represents a learner registered in the institution. GPA is a
// denormalized cache recomputed from completed enrollments, never a source
// of truth.
type Student struct {
	ID             string    `db:"id" json:"student_id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Email          string    `db:"email" json:"email"`
	Major          string    `db:"major" json:"major"`
	GPA            float64   `db:"gpa" json:"gpa"`
	EnrollmentDate time.Time `db:"enrollment_date" json:"enrollment_date"`
	DateOfBirth    time.Time `db:"date_of_birth" json:"date_of_birth"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins the name parts the way the portal displays them.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
