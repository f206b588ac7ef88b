package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/opencampus/sis-api/internal/models"
	appErrors "github.com/opencampus/sis-api/pkg/errors"
)

type completedGradesReader interface {
	CompletedGrades(ctx context.Context, studentID string) ([]models.CompletedGrade, error)
}

type gpaWriter interface {
	UpdateGPA(ctx context.Context, id string, gpa float64) error
}

// GPAService derives a student's GPA from the enrollment ledger and persists
// it into the student row. The stored value is a cache: it is recomputed from
// the ledger on every call and never read back as input.
type GPAService struct {
	grades   completedGradesReader
	students gpaWriter
	logger   *zap.Logger
}

// NewGPAService constructs GPAService.
func NewGPAService(grades completedGradesReader, students gpaWriter, logger *zap.Logger) *GPAService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GPAService{grades: grades, students: students, logger: logger}
}

// Recalculate computes the credit-weighted GPA over completed, graded
// enrollments and persists it. Idempotent.
func (s *GPAService) Recalculate(ctx context.Context, studentID string) (float64, error) {
	rows, err := s.grades.CompletedGrades(ctx, studentID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed grades")
	}

	gpa := Compute(rows)

	if err := s.students.UpdateGPA(ctx, studentID, gpa); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist gpa")
	}
	return gpa, nil
}

// Compute applies the 4.0 scale over credit-bearing completed grades and
// rounds to two decimals. Unrecognized letter grades are excluded from both
// numerator and denominator. No qualifying courses yields 0.00.
func Compute(rows []models.CompletedGrade) float64 {
	totalPoints := 0.0
	totalCredits := 0
	for _, row := range rows {
		points, ok := models.GradePoints[row.Grade]
		if !ok || row.Credits <= 0 {
			continue
		}
		totalPoints += points * float64(row.Credits)
		totalCredits += row.Credits
	}
	if totalCredits == 0 {
		return 0
	}
	return math.Round(totalPoints/float64(totalCredits)*100) / 100
}
