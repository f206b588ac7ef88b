package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/opencampus/sis-api/internal/models"
)

// Sentinel errors surfaced by the registration transaction. The service maps
// them onto the HTTP error taxonomy.
var (
	ErrDuplicateEnrollment = errors.New("active enrollment already exists for course")
	ErrSectionFull         = errors.New("section and waitlist full")
)

// EnrollmentRepository owns the enrollment ledger. All mutations run inside a
// single transaction; no path may leave occupancy inconsistent on error.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

type sectionRow struct {
	ID          string               `db:"id"`
	CourseID    string               `db:"course_id"`
	MaxCapacity int                  `db:"max_capacity"`
	MaxWaitlist int                  `db:"max_waitlist"`
	Status      models.SectionStatus `db:"status"`
}

type occupancyRow struct {
	Enrolled   int `db:"enrolled"`
	Waitlisted int `db:"waitlisted"`
}

// Register atomically decides ENROLLED vs WAITLISTED for the student and
// section and writes the ledger row. The section row is locked before
// occupancy is counted so two racing requests for the last seat serialise:
// one enrolls, the other waitlists or fails with ErrSectionFull.
//
// A DROPPED row for the same course is reused instead of inserting a
// duplicate, keeping one history row per student and course across
// drop/re-register cycles.
func (r *EnrollmentRepository) Register(ctx context.Context, studentID, sectionID string) (result *models.RegistrationResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var section sectionRow
	const lockQuery = `SELECT id, course_id, max_capacity, max_waitlist, status FROM sections WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &section, lockQuery, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("lock section: %w", err)
	}

	var existing models.Enrollment
	const activeQuery = `SELECT e.id, e.student_id, e.section_id, e.status, e.grade, e.enrollment_date, e.updated_at
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        WHERE e.student_id = $1 AND s.course_id = $2 AND e.status IN ($3, $4)
        LIMIT 1`
	err = tx.GetContext(ctx, &existing, activeQuery, studentID, section.CourseID,
		models.EnrollmentStatusEnrolled, models.EnrollmentStatusWaitlisted)
	if err == nil {
		err = ErrDuplicateEnrollment
		return nil, err
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("check active enrollment: %w", err)
	}

	var occupancy occupancyRow
	const countQuery = `SELECT
        COUNT(*) FILTER (WHERE status = $2) AS enrolled,
        COUNT(*) FILTER (WHERE status = $3) AS waitlisted
        FROM enrollments WHERE section_id = $1`
	if err = tx.GetContext(ctx, &occupancy, countQuery, sectionID,
		models.EnrollmentStatusEnrolled, models.EnrollmentStatusWaitlisted); err != nil {
		return nil, fmt.Errorf("count occupancy: %w", err)
	}

	var outcome models.RegistrationOutcome
	var status models.EnrollmentStatus
	switch {
	case occupancy.Enrolled < section.MaxCapacity:
		outcome, status = models.OutcomeEnrolled, models.EnrollmentStatusEnrolled
	case occupancy.Waitlisted < section.MaxWaitlist:
		outcome, status = models.OutcomeWaitlisted, models.EnrollmentStatusWaitlisted
	default:
		err = ErrSectionFull
		return nil, err
	}

	now := time.Now().UTC()
	enrollment := models.Enrollment{
		StudentID:      studentID,
		SectionID:      sectionID,
		Status:         status,
		EnrollmentDate: now,
		UpdatedAt:      now,
	}

	var droppedID string
	const droppedQuery = `SELECT e.id FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        WHERE e.student_id = $1 AND s.course_id = $2 AND e.status = $3
        ORDER BY e.updated_at DESC LIMIT 1 FOR UPDATE`
	err = tx.GetContext(ctx, &droppedID, droppedQuery, studentID, section.CourseID, models.EnrollmentStatusDropped)
	switch err {
	case nil:
		enrollment.ID = droppedID
		const reuseQuery = `UPDATE enrollments
            SET section_id = $2, status = $3, grade = NULL, enrollment_date = $4, updated_at = $4
            WHERE id = $1`
		if _, err = tx.ExecContext(ctx, reuseQuery, droppedID, sectionID, status, now); err != nil {
			return nil, fmt.Errorf("reuse dropped enrollment: %w", err)
		}
	case sql.ErrNoRows:
		enrollment.ID = uuid.NewString()
		const insertQuery = `INSERT INTO enrollments (id, student_id, section_id, status, grade, enrollment_date, updated_at)
            VALUES ($1, $2, $3, $4, NULL, $5, $5)`
		if _, err = tx.ExecContext(ctx, insertQuery, enrollment.ID, studentID, sectionID, status, now); err != nil {
			if isUniqueViolation(err) {
				err = ErrDuplicateEnrollment
			} else {
				err = fmt.Errorf("insert enrollment: %w", err)
			}
			return nil, err
		}
	default:
		return nil, fmt.Errorf("find dropped enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateEnrollment
		}
		return nil, fmt.Errorf("commit registration: %w", err)
	}

	return &models.RegistrationResult{Outcome: outcome, Enrollment: enrollment}, nil
}

// Drop transitions the student's active enrollment for the section to
// DROPPED. When autoPromote is set and the drop frees an enrolled seat, the
// oldest waitlisted enrollment is promoted within the same transaction.
func (r *EnrollmentRepository) Drop(ctx context.Context, studentID, sectionID string, autoPromote bool) (result *models.DropResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin drop: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Lock the section first so drops serialise against registrations.
	var section sectionRow
	const lockQuery = `SELECT id, course_id, max_capacity, max_waitlist, status FROM sections WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &section, lockQuery, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("lock section: %w", err)
	}

	var enrollment models.Enrollment
	const activeQuery = `SELECT id, student_id, section_id, status, grade, enrollment_date, updated_at
        FROM enrollments
        WHERE student_id = $1 AND section_id = $2 AND status IN ($3, $4)
        FOR UPDATE`
	if err = tx.GetContext(ctx, &enrollment, activeQuery, studentID, sectionID,
		models.EnrollmentStatusEnrolled, models.EnrollmentStatusWaitlisted); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find active enrollment: %w", err)
	}

	now := time.Now().UTC()
	const dropQuery = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, dropQuery, enrollment.ID, models.EnrollmentStatusDropped, now); err != nil {
		return nil, fmt.Errorf("drop enrollment: %w", err)
	}
	wasEnrolled := enrollment.Status == models.EnrollmentStatusEnrolled
	enrollment.Status = models.EnrollmentStatusDropped
	enrollment.UpdatedAt = now

	result = &models.DropResult{Enrollment: enrollment}

	if autoPromote && wasEnrolled {
		var next models.Enrollment
		const nextQuery = `SELECT id, student_id, section_id, status, grade, enrollment_date, updated_at
            FROM enrollments
            WHERE section_id = $1 AND status = $2
            ORDER BY enrollment_date ASC LIMIT 1
            FOR UPDATE`
		err = tx.GetContext(ctx, &next, nextQuery, sectionID, models.EnrollmentStatusWaitlisted)
		switch err {
		case nil:
			const promoteQuery = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
			if _, err = tx.ExecContext(ctx, promoteQuery, next.ID, models.EnrollmentStatusEnrolled, now); err != nil {
				return nil, fmt.Errorf("promote waitlisted enrollment: %w", err)
			}
			next.Status = models.EnrollmentStatusEnrolled
			next.UpdatedAt = now
			result.Promoted = &next
		case sql.ErrNoRows:
			err = nil
		default:
			return nil, fmt.Errorf("find waitlisted enrollment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit drop: %w", err)
	}
	return result, nil
}

// HasCompletedCourse reports whether the student holds a COMPLETED enrollment
// in the course with a passing grade. Checks the direct prerequisite edge
// only; chains are not traversed.
func (r *EnrollmentRepository) HasCompletedCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT e.grade FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        WHERE e.student_id = $1 AND s.course_id = $2 AND e.status = $3 AND e.grade IS NOT NULL`
	var grades []string
	if err := r.db.SelectContext(ctx, &grades, query, studentID, courseID, models.EnrollmentStatusCompleted); err != nil {
		return false, fmt.Errorf("check completed course: %w", err)
	}
	for _, grade := range grades {
		if models.PassingGrade(grade) {
			return true, nil
		}
	}
	return false, nil
}

// FindForStudent returns an enrollment by id scoped to the student.
func (r *EnrollmentRepository) FindForStudent(ctx context.Context, enrollmentID, studentID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, section_id, status, grade, enrollment_date, updated_at
        FROM enrollments WHERE id = $1 AND student_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, enrollmentID, studentID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// UpdateGrade sets the grade on an enrollment row.
func (r *EnrollmentRepository) UpdateGrade(ctx context.Context, enrollmentID, grade string) error {
	const query = `UPDATE enrollments SET grade = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, enrollmentID, grade, time.Now().UTC()); err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	return nil
}

// GradeRows returns the student's grade report rows, most recent term first.
func (r *EnrollmentRepository) GradeRows(ctx context.Context, studentID string) ([]models.GradeRow, error) {
	const query = `SELECT e.id AS enrollment_id, c.id AS course_id, c.name AS course_name, c.credits,
        COALESCE(e.grade, '') AS grade, e.status, s.semester, s.year,
        i.first_name || ' ' || i.last_name AS instructor_name, e.enrollment_date
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        JOIN instructors i ON i.id = s.instructor_id
        WHERE e.student_id = $1 AND e.status IN ($2, $3)
        ORDER BY s.year DESC,
            CASE s.semester WHEN 'FALL' THEN 3 WHEN 'SUMMER' THEN 2 WHEN 'SPRING' THEN 1 ELSE 0 END DESC,
            e.enrollment_date DESC`
	var rows []models.GradeRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID,
		models.EnrollmentStatusEnrolled, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("list grade rows: %w", err)
	}
	return rows, nil
}

// CompletedGrades returns the GPA calculator's inputs: completed, graded,
// credit-bearing enrollments.
func (r *EnrollmentRepository) CompletedGrades(ctx context.Context, studentID string) ([]models.CompletedGrade, error) {
	const query = `SELECT e.grade, c.credits
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        WHERE e.student_id = $1 AND e.status = $2 AND e.grade IS NOT NULL`
	var grades []models.CompletedGrade
	if err := r.db.SelectContext(ctx, &grades, query, studentID, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("list completed grades: %w", err)
	}
	return grades, nil
}

// InsertEvent appends an activity record to the enrollment event log.
func (r *EnrollmentRepository) InsertEvent(ctx context.Context, event *models.EnrollmentEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollment_events (id, enrollment_id, student_id, section_id, action, outcome, created_at)
        VALUES (:id, :enrollment_id, :student_id, :section_id, :action, :outcome, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert enrollment event: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
