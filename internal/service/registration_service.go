package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/opencampus/sis-api/internal/models"
	"github.com/opencampus/sis-api/internal/repository"
	appErrors "github.com/opencampus/sis-api/pkg/errors"
)

type registrationLedger interface {
	Register(ctx context.Context, studentID, sectionID string) (*models.RegistrationResult, error)
	Drop(ctx context.Context, studentID, sectionID string, autoPromote bool) (*models.DropResult, error)
	HasCompletedCourse(ctx context.Context, studentID, courseID string) (bool, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type sectionFinder interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type catalogInvalidator interface {
	Invalidate(ctx context.Context)
}

type eventPublisher interface {
	Publish(event models.EnrollmentEvent)
}

type outcomeRecorder interface {
	RecordRegistration(outcome string)
	ObserveDBQuery(label string, duration time.Duration)
}

// RegistrationPolicy holds the decision engine's configurable behaviour.
type RegistrationPolicy struct {
	// AutoPromote moves the oldest waitlisted student into a seat vacated by
	// a drop. Off by default: promotion is a policy decision, not assumed.
	AutoPromote bool
}

// RegistrationService is the enrollment decision engine. It validates a
// registration or drop request, delegates the atomic read-decide-write to the
// ledger repository and maps its sentinels onto the error taxonomy. Only this
// service mutates the enrollment ledger.
type RegistrationService struct {
	ledger   registrationLedger
	students studentFinder
	sections sectionFinder
	courses  courseFinder
	catalog  catalogInvalidator
	events   eventPublisher
	metrics  outcomeRecorder
	policy   RegistrationPolicy
	logger   *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(ledger registrationLedger, students studentFinder, sections sectionFinder, courses courseFinder, catalog catalogInvalidator, events eventPublisher, metrics outcomeRecorder, policy RegistrationPolicy, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		ledger:   ledger,
		students: students,
		sections: sections,
		courses:  courses,
		catalog:  catalog,
		events:   events,
		metrics:  metrics,
		policy:   policy,
		logger:   logger,
	}
}

// Register decides ENROLLED vs WAITLISTED for the student and section.
// Validation failures come back as typed outcomes; only unexpected
// persistence errors surface as internal.
func (s *RegistrationService) Register(ctx context.Context, studentID, sectionID string) (*models.RegistrationResult, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if section.Status == models.SectionStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section is cancelled")
	}

	course, err := s.courses.FindByID(ctx, section.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "section has no catalog course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.PrerequisiteID != nil {
		satisfied, err := s.ledger.HasCompletedCourse(ctx, studentID, *course.PrerequisiteID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisite")
		}
		if !satisfied {
			return nil, appErrors.Clone(appErrors.ErrRejected, "prerequisites not met")
		}
	}

	start := time.Now()
	result, err := s.ledger.Register(ctx, studentID, sectionID)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("enrollment_register", time.Since(start))
	}
	if err != nil {
		switch err {
		case repository.ErrDuplicateEnrollment:
			return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled or waitlisted in this course")
		case repository.ErrSectionFull:
			if s.metrics != nil {
				s.metrics.RecordRegistration("REJECTED")
			}
			return nil, appErrors.Clone(appErrors.ErrRejected, "section and waitlist full")
		case sql.ErrNoRows:
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "registration failed")
	}

	switch result.Outcome {
	case models.OutcomeEnrolled:
		result.Message = "Successfully enrolled in " + course.Name
	case models.OutcomeWaitlisted:
		result.Message = "Added to waitlist for " + course.Name
	}
	if s.metrics != nil {
		s.metrics.RecordRegistration(string(result.Outcome))
	}
	s.publish(models.EnrollmentEvent{
		EnrollmentID: result.Enrollment.ID,
		StudentID:    studentID,
		SectionID:    sectionID,
		Action:       models.EventActionRegister,
		Outcome:      string(result.Outcome),
	})
	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}

	s.logger.Info("registration decided",
		zap.String("student_id", studentID),
		zap.String("section_id", sectionID),
		zap.String("outcome", string(result.Outcome)),
	)
	return result, nil
}

// Drop transitions the student's active enrollment for the section to
// DROPPED, promoting the next waitlisted student when the policy allows it.
func (s *RegistrationService) Drop(ctx context.Context, studentID, sectionID string) (*models.DropResult, error) {
	start := time.Now()
	result, err := s.ledger.Drop(ctx, studentID, sectionID, s.policy.AutoPromote)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("enrollment_drop", time.Since(start))
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "active enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "drop failed")
	}

	s.publish(models.EnrollmentEvent{
		EnrollmentID: result.Enrollment.ID,
		StudentID:    studentID,
		SectionID:    sectionID,
		Action:       models.EventActionDrop,
		Outcome:      string(models.EnrollmentStatusDropped),
	})
	if result.Promoted != nil {
		s.publish(models.EnrollmentEvent{
			EnrollmentID: result.Promoted.ID,
			StudentID:    result.Promoted.StudentID,
			SectionID:    sectionID,
			Action:       models.EventActionPromote,
			Outcome:      string(models.EnrollmentStatusEnrolled),
		})
	}
	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}

	s.logger.Info("enrollment dropped",
		zap.String("student_id", studentID),
		zap.String("section_id", sectionID),
		zap.Bool("promoted", result.Promoted != nil),
	)
	return result, nil
}

func (s *RegistrationService) publish(event models.EnrollmentEvent) {
	if s.events != nil {
		s.events.Publish(event)
	}
}
