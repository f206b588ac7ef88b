package models

// Course is a catalog entry. PrerequisiteID references another course; the
// model permits chains but the decision engine checks only the direct edge.
type Course struct {
	ID             string  `db:"id" json:"course_id"`
	Name           string  `db:"name" json:"course_name"`
	Credits        int     `db:"credits" json:"credits"`
	Department     string  `db:"department" json:"department"`
	PrerequisiteID *string `db:"prerequisite_id" json:"prerequisite_id,omitempty"`
}

// CourseRef is a lightweight course reference for embedding in listings.
type CourseRef struct {
	ID   string `db:"id" json:"course_id"`
	Name string `db:"name" json:"course_name"`
}
