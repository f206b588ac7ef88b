package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/opencampus/sis-api/internal/models"
)

// SectionRepository answers catalog queries. Strictly read-only: occupancy is
// always derived live by counting active enrollment rows, never stored.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns a section by its ID.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, course_id, instructor_id, semester, year, max_capacity, max_waitlist, schedule, status
        FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// ListAvailable returns every non-cancelled section of the term with live
// seat and waitlist counts. When studentID is non-empty the student's
// relationship flags are populated. Schedule bytes are returned raw so a
// malformed row degrades per-row in the service instead of failing the scan.
func (r *SectionRepository) ListAvailable(ctx context.Context, semester string, year int, studentID string) ([]models.SectionListing, error) {
	const query = `SELECT
        s.id AS section_id,
        c.id AS course_id,
        c.name AS course_name,
        c.credits,
        c.department,
        i.first_name || ' ' || i.last_name AS instructor_name,
        s.semester,
        s.year,
        s.status,
        s.max_capacity,
        s.max_waitlist,
        s.schedule,
        COUNT(e.id) FILTER (WHERE e.status = 'ENROLLED') AS enrolled_count,
        COUNT(e.id) FILTER (WHERE e.status = 'WAITLISTED') AS waitlist_count,
        COALESCE(BOOL_OR(e.status = 'ENROLLED' AND e.student_id = $3), FALSE) AS is_enrolled,
        COALESCE(BOOL_OR(e.status = 'WAITLISTED' AND e.student_id = $3), FALSE) AS is_waitlisted,
        p.id AS prereq_id,
        p.name AS prereq_name
        FROM sections s
        JOIN courses c ON c.id = s.course_id
        JOIN instructors i ON i.id = s.instructor_id
        LEFT JOIN courses p ON p.id = c.prerequisite_id
        LEFT JOIN enrollments e ON e.section_id = s.id
        WHERE s.semester = $1 AND s.year = $2 AND s.status <> 'CANCELLED'
        GROUP BY s.id, c.id, c.name, c.credits, c.department, i.first_name, i.last_name, p.id, p.name
        ORDER BY c.id, s.id`
	var listings []models.SectionListing
	if err := r.db.SelectContext(ctx, &listings, query, semester, year, studentID); err != nil {
		return nil, fmt.Errorf("list available sections: %w", err)
	}
	return listings, nil
}

// StudentCourses returns the student's active-term courses. ENROLLED rows sort
// before WAITLISTED, then by course id, matching the portal dashboard order.
func (r *SectionRepository) StudentCourses(ctx context.Context, studentID, semester string, year int, includeWaitlisted bool) ([]models.StudentCourse, error) {
	query := `SELECT c.id AS course_id, c.name AS course_name, c.credits, c.department,
        i.first_name || ' ' || i.last_name AS instructor_name,
        e.status AS enrollment_status, s.schedule
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        JOIN instructors i ON i.id = s.instructor_id
        WHERE e.student_id = $1 AND s.semester = $2 AND s.year = $3`
	args := []interface{}{studentID, semester, year}
	if includeWaitlisted {
		query += ` AND e.status IN ($4, $5)`
		args = append(args, models.EnrollmentStatusEnrolled, models.EnrollmentStatusWaitlisted)
	} else {
		query += ` AND e.status = $4`
		args = append(args, models.EnrollmentStatusEnrolled)
	}
	query += ` ORDER BY CASE e.status WHEN 'ENROLLED' THEN 1 WHEN 'WAITLISTED' THEN 2 ELSE 3 END, c.id`

	var courses []models.StudentCourse
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}
