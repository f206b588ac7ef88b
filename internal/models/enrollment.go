package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. ENROLLED and WAITLISTED are "active": they
// hold a claim on the section. At most one active row exists per student and
// course at a time.
const (
	EnrollmentStatusEnrolled   EnrollmentStatus = "ENROLLED"
	EnrollmentStatusWaitlisted EnrollmentStatus = "WAITLISTED"
	EnrollmentStatusDropped    EnrollmentStatus = "DROPPED"
	EnrollmentStatusCompleted  EnrollmentStatus = "COMPLETED"
)

// Active reports whether the status holds a claim on a section seat.
func (s EnrollmentStatus) Active() bool {
	return s == EnrollmentStatusEnrolled || s == EnrollmentStatusWaitlisted
}

// Enrollment captures a student's evolving relationship to a section.
// Rows transition rather than duplicate: dropping keeps the row, and
// re-registering for the same course reuses it.
type Enrollment struct {
	ID             string           `db:"id" json:"enrollment_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	SectionID      string           `db:"section_id" json:"section_id"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	Grade          *string          `db:"grade" json:"grade,omitempty"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// RegistrationOutcome is the decision produced by the enrollment engine.
type RegistrationOutcome string

// Registration outcomes.
const (
	OutcomeEnrolled   RegistrationOutcome = "ENROLLED"
	OutcomeWaitlisted RegistrationOutcome = "WAITLISTED"
)

// RegistrationResult reports what the engine decided and the resulting row.
type RegistrationResult struct {
	Outcome    RegistrationOutcome `json:"outcome"`
	Enrollment Enrollment          `json:"enrollment"`
	Message    string              `json:"message"`
}

// DropResult reports the dropped row and, when promotion is enabled, the
// waitlisted enrollment moved into the vacated seat.
type DropResult struct {
	Enrollment Enrollment  `json:"enrollment"`
	Promoted   *Enrollment `json:"promoted,omitempty"`
}

// StudentCourse is an active-term course row for the student dashboard.
type StudentCourse struct {
	CourseID         string           `db:"course_id" json:"course_id"`
	CourseName       string           `db:"course_name" json:"course_name"`
	Credits          int              `db:"credits" json:"credits"`
	Department       string           `db:"department" json:"department"`
	InstructorName   string           `db:"instructor_name" json:"instructor_name"`
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	ScheduleRaw      []byte           `db:"schedule" json:"-"`
	Schedule         *Schedule        `db:"-" json:"schedule"`
	ScheduleError    string           `db:"-" json:"schedule_error,omitempty"`
}

// EnrollmentEventAction enumerates ledger activity kinds.
type EnrollmentEventAction string

// Enrollment event actions.
const (
	EventActionRegister EnrollmentEventAction = "REGISTER"
	EventActionDrop     EnrollmentEventAction = "DROP"
	EventActionPromote  EnrollmentEventAction = "PROMOTE"
)

// EnrollmentEvent is an append-only activity record written asynchronously
// after registration mutations.
type EnrollmentEvent struct {
	ID           string                `db:"id" json:"id"`
	EnrollmentID string                `db:"enrollment_id" json:"enrollment_id"`
	StudentID    string                `db:"student_id" json:"student_id"`
	SectionID    string                `db:"section_id" json:"section_id"`
	Action       EnrollmentEventAction `db:"action" json:"action"`
	Outcome      string                `db:"outcome" json:"outcome"`
	CreatedAt    time.Time             `db:"created_at" json:"created_at"`
}
