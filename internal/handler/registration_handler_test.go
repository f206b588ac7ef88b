package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/sis-api/internal/middleware"
	"github.com/opencampus/sis-api/internal/models"
	appErrors "github.com/opencampus/sis-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type fakeRegistrationEngine struct {
	registerResult *models.RegistrationResult
	registerErr    error
	dropResult     *models.DropResult
	dropErr        error
	lastStudent    string
	lastSection    string
}

func (f *fakeRegistrationEngine) Register(_ context.Context, studentID, sectionID string) (*models.RegistrationResult, error) {
	f.lastStudent, f.lastSection = studentID, sectionID
	return f.registerResult, f.registerErr
}

func (f *fakeRegistrationEngine) Drop(_ context.Context, studentID, sectionID string) (*models.DropResult, error) {
	f.lastStudent, f.lastSection = studentID, sectionID
	return f.dropResult, f.dropErr
}

type fakeCatalogReader struct {
	listings    []models.SectionListing
	lastStudent string
}

func (f *fakeCatalogReader) ListAvailableSections(_ context.Context, studentID string) ([]models.SectionListing, error) {
	f.lastStudent = studentID
	return f.listings, nil
}

// authedContext builds a test context holding the claims of studentID and the
// matching :id path parameter. An empty studentID leaves the context anonymous.
func authedContext(rec *httptest.ResponseRecorder, studentID string) (*gin.Context, *gin.Engine) {
	c, r := gin.CreateTestContext(rec)
	if studentID != "" {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", StudentID: studentID})
		c.Params = append(c.Params, gin.Param{Key: "id", Value: studentID})
	}
	return c, r
}

func setParam(c *gin.Context, key, value string) {
	c.Params = append(c.Params, gin.Param{Key: key, Value: value})
}

func TestRegistrationHandlerRegisterCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := &fakeRegistrationEngine{registerResult: &models.RegistrationResult{
		Outcome:    models.OutcomeEnrolled,
		Enrollment: models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusEnrolled},
		Message:    "Successfully enrolled in Intro to CS",
	}}
	handler := NewRegistrationHandler(engine, &fakeCatalogReader{})

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Request = httptest.NewRequest(http.MethodPost, "/students/student-1/courses/section-1", nil)
	setParam(c, "sectionId", "section-1")

	handler.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "student-1", engine.lastStudent)
	assert.Equal(t, "section-1", engine.lastSection)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "ENROLLED", envelope.Data["outcome"])
}

func TestRegistrationHandlerRegisterConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := &fakeRegistrationEngine{
		registerErr: appErrors.Clone(appErrors.ErrConflict, "already enrolled or waitlisted in this course"),
	}
	handler := NewRegistrationHandler(engine, &fakeCatalogReader{})

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Request = httptest.NewRequest(http.MethodPost, "/students/student-1/courses/section-1", nil)
	setParam(c, "sectionId", "section-1")

	handler.Register(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CONFLICT", envelope.Error.Code)
}

func TestRegistrationHandlerRegisterRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := &fakeRegistrationEngine{
		registerErr: appErrors.Clone(appErrors.ErrRejected, "prerequisites not met"),
	}
	handler := NewRegistrationHandler(engine, &fakeCatalogReader{})

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Request = httptest.NewRequest(http.MethodPost, "/students/student-1/courses/section-2", nil)
	setParam(c, "sectionId", "section-2")

	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "REGISTRATION_REJECTED", envelope.Error.Code)
}

func TestRegistrationHandlerRegisterUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := &fakeRegistrationEngine{}
	handler := NewRegistrationHandler(engine, &fakeCatalogReader{})

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "")
	c.Request = httptest.NewRequest(http.MethodPost, "/students/student-1/courses/section-1", nil)
	setParam(c, "id", "student-1")
	setParam(c, "sectionId", "section-1")

	handler.Register(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, engine.lastStudent)
}

func TestRegistrationHandlerRegisterForeignStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := &fakeRegistrationEngine{}
	handler := NewRegistrationHandler(engine, &fakeCatalogReader{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", StudentID: "student-1"})
	setParam(c, "id", "student-2")
	setParam(c, "sectionId", "section-1")
	c.Request = httptest.NewRequest(http.MethodPost, "/students/student-2/courses/section-1", nil)

	handler.Register(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, engine.lastStudent)
}

func TestRegistrationHandlerDrop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := &fakeRegistrationEngine{dropResult: &models.DropResult{
		Enrollment: models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusDropped},
	}}
	handler := NewRegistrationHandler(engine, &fakeCatalogReader{})

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Request = httptest.NewRequest(http.MethodPut, "/students/student-1/courses/section-1/drop", nil)
	setParam(c, "sectionId", "section-1")

	handler.Drop(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "section-1", engine.lastSection)
}

func TestRegistrationHandlerDropNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := &fakeRegistrationEngine{
		dropErr: appErrors.Clone(appErrors.ErrNotFound, "active enrollment not found"),
	}
	handler := NewRegistrationHandler(engine, &fakeCatalogReader{})

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Request = httptest.NewRequest(http.MethodPut, "/students/student-1/courses/section-9/drop", nil)
	setParam(c, "sectionId", "section-9")

	handler.Drop(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegistrationHandlerAvailableSectionsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	catalog := &fakeCatalogReader{listings: []models.SectionListing{{SectionID: "section-1"}}}
	handler := NewRegistrationHandler(&fakeRegistrationEngine{}, catalog)

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "")
	c.Request = httptest.NewRequest(http.MethodGet, "/students/available-sections", nil)

	handler.AvailableSections(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", catalog.lastStudent)
}

func TestRegistrationHandlerAvailableSectionsStudentQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	catalog := &fakeCatalogReader{}
	handler := NewRegistrationHandler(&fakeRegistrationEngine{}, catalog)

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "")
	c.Request = httptest.NewRequest(http.MethodGet, "/students/available-sections?studentId=student-2", nil)

	handler.AvailableSections(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student-2", catalog.lastStudent)
}

func TestRegistrationHandlerAvailableSectionsTokenWinsOverQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	catalog := &fakeCatalogReader{}
	handler := NewRegistrationHandler(&fakeRegistrationEngine{}, catalog)

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Request = httptest.NewRequest(http.MethodGet, "/students/available-sections?studentId=student-2", nil)

	handler.AvailableSections(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student-1", catalog.lastStudent)
}
