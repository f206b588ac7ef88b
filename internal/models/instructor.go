package models

// Instructor teaches sections; joined into listings for display only.
type Instructor struct {
	ID             string `db:"id" json:"instructor_id"`
	FirstName      string `db:"first_name" json:"first_name"`
	LastName       string `db:"last_name" json:"last_name"`
	Email          string `db:"email" json:"email"`
	OfficeHours    string `db:"office_hours" json:"office_hours"`
	OfficeLocation string `db:"office_location" json:"office_location"`
}

// StudentInstructor pairs an instructor with the course they teach the student.
type StudentInstructor struct {
	Instructor
	CourseID   string `db:"course_id" json:"course_id"`
	CourseName string `db:"course_name" json:"course_name"`
}
