package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opencampus/sis-api/internal/models"
	appErrors "github.com/opencampus/sis-api/pkg/errors"
	"github.com/opencampus/sis-api/pkg/export"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type studentCourseReader interface {
	StudentCourses(ctx context.Context, studentID, semester string, year int, includeWaitlisted bool) ([]models.StudentCourse, error)
}

type gradeLedgerReader interface {
	GradeRows(ctx context.Context, studentID string) ([]models.GradeRow, error)
	FindForStudent(ctx context.Context, enrollmentID, studentID string) (*models.Enrollment, error)
	UpdateGrade(ctx context.Context, enrollmentID, grade string) error
}

type instructorReader interface {
	ListForStudent(ctx context.Context, studentID, semester string, year int) ([]models.StudentInstructor, error)
}

type gpaRecalculator interface {
	Recalculate(ctx context.Context, studentID string) (float64, error)
}

// UpdateGradeRequest carries a grade mutation.
type UpdateGradeRequest struct {
	Grade string `json:"grade" validate:"required"`
}

// TermConfig pins the active term the dashboard views query.
type TermConfig struct {
	Semester string
	Year     int
}

// StudentService serves the student-facing read endpoints and the grade
// mutation. Registration mutations live in RegistrationService.
type StudentService struct {
	students    studentRepository
	sections    studentCourseReader
	ledger      gradeLedgerReader
	instructors instructorReader
	gpa         gpaRecalculator
	term        TermConfig
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(students studentRepository, sections studentCourseReader, ledger gradeLedgerReader, instructors instructorReader, gpa gpaRecalculator, term TermConfig, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		students:    students,
		sections:    sections,
		ledger:      ledger,
		instructors: instructors,
		gpa:         gpa,
		term:        term,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		validator:   validate,
		logger:      logger,
	}
}

// Get returns the student profile.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Courses returns the student's active-term courses with schedules.
func (s *StudentService) Courses(ctx context.Context, id string, includeWaitlisted bool) ([]models.StudentCourse, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	courses, err := s.sections.StudentCourses(ctx, id, s.term.Semester, s.term.Year, includeWaitlisted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	for i := range courses {
		row := &courses[i]
		schedule, parseErr := models.ParseSchedule(row.ScheduleRaw)
		if parseErr != nil {
			row.ScheduleError = "malformed schedule"
			s.logger.Warn("course schedule unparseable", zap.String("course_id", row.CourseID), zap.Error(parseErr))
		} else {
			row.Schedule = schedule
		}
		row.ScheduleRaw = nil
	}
	return courses, nil
}

// Grades returns the grade report with a freshly recomputed GPA. In-progress
// enrollments surface as "In Progress" rather than an empty grade.
func (s *StudentService) Grades(ctx context.Context, id string) (*models.GradeReport, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.ledger.GradeRows(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	for i := range rows {
		if rows[i].Status == models.EnrollmentStatusEnrolled {
			rows[i].Grade = "In Progress"
		}
	}
	gpa, err := s.gpa.Recalculate(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.GradeReport{Grades: rows, GPA: gpa}, nil
}

// UpdateGrade sets a grade on the student's enrollment and returns the
// recomputed GPA.
func (s *StudentService) UpdateGrade(ctx context.Context, studentID, enrollmentID string, req UpdateGradeRequest) (float64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	grade := strings.ToUpper(strings.TrimSpace(req.Grade))
	if _, ok := models.GradePoints[grade]; !ok {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unrecognized grade %q", req.Grade))
	}
	if _, err := s.Get(ctx, studentID); err != nil {
		return 0, err
	}
	if _, err := s.ledger.FindForStudent(ctx, enrollmentID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.ledger.UpdateGrade(ctx, enrollmentID, grade); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}
	return s.gpa.Recalculate(ctx, studentID)
}

// Instructors returns instructors for the student's enrolled sections.
func (s *StudentService) Instructors(ctx context.Context, id string) ([]models.StudentInstructor, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	instructors, err := s.instructors.ListForStudent(ctx, id, s.term.Semester, s.term.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	return instructors, nil
}

// Transcript renders the grade report as a downloadable document.
func (s *StudentService) Transcript(ctx context.Context, id, format string) ([]byte, string, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	report, err := s.Grades(ctx, id)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Course", "Title", "Credits", "Term", "Grade", "Instructor"},
		Footer:  []string{fmt.Sprintf("Cumulative GPA: %.2f", report.GPA)},
	}
	for _, row := range report.Grades {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course":     row.CourseID,
			"Title":      row.CourseName,
			"Credits":    fmt.Sprintf("%d", row.Credits),
			"Term":       fmt.Sprintf("%s %d", row.Semester, row.Year),
			"Grade":      row.Grade,
			"Instructor": row.InstructorName,
		})
	}

	title := fmt.Sprintf("Transcript - %s", student.FullName())
	switch strings.ToLower(format) {
	case "", "pdf":
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
		}
		return payload, fmt.Sprintf("transcript-%s.pdf", id), nil
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
		}
		return payload, fmt.Sprintf("transcript-%s.csv", id), nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported format")
	}
}
