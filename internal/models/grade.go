package models

import "time"

// GradePoints maps letter grades onto the 4.0 scale. Grades absent from the
// map (W, I, P and typos) are excluded from GPA entirely.
var GradePoints = map[string]float64{
	"A+": 4.0, "A": 4.0, "A-": 3.7,
	"B+": 3.3, "B": 3.0, "B-": 2.7,
	"C+": 2.3, "C": 2.0, "C-": 1.7,
	"D+": 1.3, "D": 1.0, "F": 0.0,
}

// PassingGrade reports whether a letter grade satisfies a prerequisite.
func PassingGrade(grade string) bool {
	points, ok := GradePoints[grade]
	return ok && points > 0
}

// GradeRow is one line of a student's grade report.
type GradeRow struct {
	EnrollmentID   string           `db:"enrollment_id" json:"enrollment_id"`
	CourseID       string           `db:"course_id" json:"course_id"`
	CourseName     string           `db:"course_name" json:"course_name"`
	Credits        int              `db:"credits" json:"credits"`
	Grade          string           `db:"grade" json:"grade"`
	Status         EnrollmentStatus `db:"status" json:"-"`
	Semester       string           `db:"semester" json:"semester"`
	Year           int              `db:"year" json:"year"`
	InstructorName string           `db:"instructor_name" json:"instructor_name"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"-"`
}

// GradeReport bundles grade rows with the freshly recomputed GPA.
type GradeReport struct {
	Grades []GradeRow `json:"grades"`
	GPA    float64    `json:"gpa"`
}

// CompletedGrade is the GPA calculator's input row.
type CompletedGrade struct {
	Grade   string `db:"grade"`
	Credits int    `db:"credits"`
}
