package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/opencampus/sis-api/internal/models"
)

// InstructorRepository reads instructor records for display.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs the repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// ListForStudent returns instructors of the sections the student is enrolled
// in for the active term.
func (r *InstructorRepository) ListForStudent(ctx context.Context, studentID, semester string, year int) ([]models.StudentInstructor, error) {
	const query = `SELECT i.id, i.first_name, i.last_name, i.email, i.office_hours, i.office_location,
        c.id AS course_id, c.name AS course_name
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        JOIN instructors i ON i.id = s.instructor_id
        WHERE e.student_id = $1 AND e.status = $2 AND s.semester = $3 AND s.year = $4
        ORDER BY c.id`
	var instructors []models.StudentInstructor
	if err := r.db.SelectContext(ctx, &instructors, query, studentID, models.EnrollmentStatusEnrolled, semester, year); err != nil {
		return nil, fmt.Errorf("list student instructors: %w", err)
	}
	return instructors, nil
}
