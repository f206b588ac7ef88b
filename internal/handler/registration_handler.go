package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencampus/sis-api/internal/models"
	appErrors "github.com/opencampus/sis-api/pkg/errors"
	"github.com/opencampus/sis-api/pkg/response"
)

type registrationEngine interface {
	Register(ctx context.Context, studentID, sectionID string) (*models.RegistrationResult, error)
	Drop(ctx context.Context, studentID, sectionID string) (*models.DropResult, error)
}

type catalogReader interface {
	ListAvailableSections(ctx context.Context, studentID string) ([]models.SectionListing, error)
}

// RegistrationHandler exposes the catalog listing and the two registration
// mutations.
type RegistrationHandler struct {
	registrations registrationEngine
	catalog       catalogReader
}

// NewRegistrationHandler creates a new handler.
func NewRegistrationHandler(registrations registrationEngine, catalog catalogReader) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, catalog: catalog}
}

// AvailableSections godoc
// @Summary List available sections
// @Description List the active term's sections with live seat counts. With a token (or a studentId query), each row also reports that student's enrollment flags.
// @Tags Catalog
// @Produce json
// @Param studentId query string false "Student ID for personalized flags"
// @Success 200 {object} response.Envelope
// @Router /students/available-sections [get]
func (h *RegistrationHandler) AvailableSections(c *gin.Context) {
	studentID := c.Query("studentId")
	if claims := claimsFromContext(c); claims != nil {
		studentID = claims.StudentID
	}

	listings, err := h.catalog.ListAvailableSections(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, listings, nil)
}

// Register godoc
// @Summary Register for a section
// @Description Enroll the student in a section, or waitlist them when the section is full
// @Tags Registration
// @Produce json
// @Param id path string true "Student ID"
// @Param sectionId path string true "Section ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/courses/{sectionId} [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	studentID, ok := authorizedStudentID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.registrations.Register(c.Request.Context(), studentID, c.Param("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Drop godoc
// @Summary Drop a section
// @Description Drop the student's active enrollment or waitlist spot for a section
// @Tags Registration
// @Produce json
// @Param id path string true "Student ID"
// @Param sectionId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/courses/{sectionId}/drop [put]
func (h *RegistrationHandler) Drop(c *gin.Context) {
	studentID, ok := authorizedStudentID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.registrations.Drop(c.Request.Context(), studentID, c.Param("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}
