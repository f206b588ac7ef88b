package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opencampus/sis-api/internal/models"
	"github.com/opencampus/sis-api/internal/service"
	appErrors "github.com/opencampus/sis-api/pkg/errors"
	"github.com/opencampus/sis-api/pkg/response"
)

type studentPortal interface {
	Get(ctx context.Context, id string) (*models.Student, error)
	Courses(ctx context.Context, id string, includeWaitlisted bool) ([]models.StudentCourse, error)
	Grades(ctx context.Context, id string) (*models.GradeReport, error)
	UpdateGrade(ctx context.Context, studentID, enrollmentID string, req service.UpdateGradeRequest) (float64, error)
	Instructors(ctx context.Context, id string) ([]models.StudentInstructor, error)
	Transcript(ctx context.Context, id, format string) ([]byte, string, error)
}

// StudentHandler serves the student record endpoints.
type StudentHandler struct {
	service studentPortal
}

// NewStudentHandler creates a new handler.
func NewStudentHandler(svc studentPortal) *StudentHandler {
	return &StudentHandler{service: svc}
}

// Profile godoc
// @Summary Get student profile
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Profile(c *gin.Context) {
	studentID, ok := authorizedStudentID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.service.Get(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, student, nil)
}

// Courses godoc
// @Summary List the student's active-term courses
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param includeWaitlisted query bool false "Include waitlisted courses"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/courses [get]
func (h *StudentHandler) Courses(c *gin.Context) {
	studentID, ok := authorizedStudentID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	includeWaitlisted, _ := strconv.ParseBool(c.DefaultQuery("includeWaitlisted", "false"))
	courses, err := h.service.Courses(c.Request.Context(), studentID, includeWaitlisted)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, courses, nil)
}

// Grades godoc
// @Summary Get the student's grade report and GPA
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grades [get]
func (h *StudentHandler) Grades(c *gin.Context) {
	studentID, ok := authorizedStudentID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	report, err := h.service.Grades(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, nil)
}

// UpdateGrade godoc
// @Summary Set a grade on an enrollment
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param enrollmentId path string true "Enrollment ID"
// @Param payload body service.UpdateGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/grades/{enrollmentId} [put]
func (h *StudentHandler) UpdateGrade(c *gin.Context) {
	studentID, ok := authorizedStudentID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	gpa, err := h.service.UpdateGrade(c.Request.Context(), studentID, c.Param("enrollmentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"gpa": gpa}, nil)
}

// Instructors godoc
// @Summary List instructors for the student's enrolled sections
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/instructors [get]
func (h *StudentHandler) Instructors(c *gin.Context) {
	studentID, ok := authorizedStudentID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	instructors, err := h.service.Instructors(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, instructors, nil)
}

// Transcript godoc
// @Summary Download the student's grade transcript
// @Tags Students
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param format query string false "pdf or csv" default(pdf)
// @Success 200 {file} binary
// @Router /students/{id}/grades/transcript [get]
func (h *StudentHandler) Transcript(c *gin.Context) {
	studentID, ok := authorizedStudentID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", "pdf")
	payload, filename, err := h.service.Transcript(c.Request.Context(), studentID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "application/pdf"
	if format == "csv" {
		contentType = "text/csv"
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, payload)
}
