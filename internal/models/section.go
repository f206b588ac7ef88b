package models

import "encoding/json"

// SectionStatus represents the lifecycle of a scheduled section.
type SectionStatus string

// Possible section statuses.
const (
	SectionStatusOpen              SectionStatus = "OPEN"
	SectionStatusClosed            SectionStatus = "CLOSED"
	SectionStatusWaitlistAvailable SectionStatus = "WAITLIST_AVAILABLE"
	SectionStatusCancelled         SectionStatus = "CANCELLED"
)

// Meeting is a single scheduled meeting block.
type Meeting struct {
	Days      []string `json:"days"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Room      string   `json:"room"`
}

// Schedule is the structured meeting-time payload persisted as JSON.
type Schedule struct {
	Meetings []Meeting `json:"meetings"`
}

// ParseSchedule decodes the raw schedule column. Callers treat a failure as a
// per-row condition so a single malformed section never aborts a listing.
func ParseSchedule(raw []byte) (*Schedule, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s Schedule
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Section is one scheduled offering of a course in a term.
type Section struct {
	ID           string        `db:"id" json:"section_id"`
	CourseID     string        `db:"course_id" json:"course_id"`
	InstructorID string        `db:"instructor_id" json:"instructor_id"`
	Semester     string        `db:"semester" json:"semester"`
	Year         int           `db:"year" json:"year"`
	MaxCapacity  int           `db:"max_capacity" json:"max_capacity"`
	MaxWaitlist  int           `db:"max_waitlist" json:"max_waitlist"`
	ScheduleRaw  []byte        `db:"schedule" json:"-"`
	Status       SectionStatus `db:"status" json:"status"`
}

// SectionListing is a catalog row with live occupancy and the requesting
// student's relationship to the section.
type SectionListing struct {
	SectionID       string        `db:"section_id" json:"section_id"`
	CourseID        string        `db:"course_id" json:"course_id"`
	CourseName      string        `db:"course_name" json:"course_name"`
	Credits         int           `db:"credits" json:"credits"`
	Department      string        `db:"department" json:"department"`
	InstructorName  string        `db:"instructor_name" json:"instructor_name"`
	Semester        string        `db:"semester" json:"semester"`
	Year            int           `db:"year" json:"year"`
	Status          SectionStatus `db:"status" json:"status"`
	MaxCapacity     int           `db:"max_capacity" json:"max_capacity"`
	EnrolledCount   int           `db:"enrolled_count" json:"-"`
	AvailableSeats  int           `db:"-" json:"available_seats"`
	MaxWaitlist     int           `db:"max_waitlist" json:"max_waitlist"`
	CurrentWaitlist int           `db:"waitlist_count" json:"current_waitlist"`
	IsEnrolled      bool          `db:"is_enrolled" json:"is_enrolled"`
	IsWaitlisted    bool          `db:"is_waitlisted" json:"is_waitlisted"`
	ScheduleRaw     []byte        `db:"schedule" json:"-"`
	Schedule        *Schedule     `db:"-" json:"schedule"`
	ScheduleError   string        `db:"-" json:"schedule_error,omitempty"`
	PrereqID        *string       `db:"prereq_id" json:"-"`
	PrereqName      *string       `db:"prereq_name" json:"-"`
	Prerequisite    *CourseRef    `db:"-" json:"prerequisite,omitempty"`
}
