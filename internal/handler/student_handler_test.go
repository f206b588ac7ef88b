package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/sis-api/internal/models"
	"github.com/opencampus/sis-api/internal/service"
	appErrors "github.com/opencampus/sis-api/pkg/errors"
)

type fakeStudentPortal struct {
	student      *models.Student
	studentErr   error
	courses      []models.StudentCourse
	report       *models.GradeReport
	gpa          float64
	updateErr    error
	lastFormat   string
	lastWaitlist bool
}

func (f *fakeStudentPortal) Get(context.Context, string) (*models.Student, error) {
	return f.student, f.studentErr
}

func (f *fakeStudentPortal) Courses(_ context.Context, _ string, includeWaitlisted bool) ([]models.StudentCourse, error) {
	f.lastWaitlist = includeWaitlisted
	return f.courses, nil
}

func (f *fakeStudentPortal) Grades(context.Context, string) (*models.GradeReport, error) {
	return f.report, nil
}

func (f *fakeStudentPortal) UpdateGrade(context.Context, string, string, service.UpdateGradeRequest) (float64, error) {
	return f.gpa, f.updateErr
}

func (f *fakeStudentPortal) Instructors(context.Context, string) ([]models.StudentInstructor, error) {
	return nil, nil
}

func (f *fakeStudentPortal) Transcript(_ context.Context, id, format string) ([]byte, string, error) {
	f.lastFormat = format
	return []byte("transcript"), "transcript-" + id + "." + format, nil
}

func TestStudentHandlerProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	portal := &fakeStudentPortal{student: &models.Student{ID: "student-1", FirstName: "Ada", LastName: "Lovelace", GPA: 3.5}}
	handler := NewStudentHandler(portal)

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Request = httptest.NewRequest(http.MethodGet, "/students/student-1", nil)

	handler.Profile(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "student-1", envelope.Data["student_id"])
}

func TestStudentHandlerProfileNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	portal := &fakeStudentPortal{studentErr: appErrors.Clone(appErrors.ErrNotFound, "student not found")}
	handler := NewStudentHandler(portal)

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-9")
	c.Request = httptest.NewRequest(http.MethodGet, "/students/student-9", nil)

	handler.Profile(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentHandlerProfileUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStudentHandler(&fakeStudentPortal{})

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "")
	setParam(c, "id", "student-1")
	c.Request = httptest.NewRequest(http.MethodGet, "/students/student-1", nil)

	handler.Profile(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStudentHandlerProfileForeignStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStudentHandler(&fakeStudentPortal{})

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Params = gin.Params{{Key: "id", Value: "student-2"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/students/student-2", nil)

	handler.Profile(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStudentHandlerCoursesWaitlistFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	portal := &fakeStudentPortal{}
	handler := NewStudentHandler(portal)

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Request = httptest.NewRequest(http.MethodGet, "/students/student-1/courses?includeWaitlisted=true", nil)

	handler.Courses(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, portal.lastWaitlist)
}

func TestStudentHandlerGrades(t *testing.T) {
	gin.SetMode(gin.TestMode)
	portal := &fakeStudentPortal{report: &models.GradeReport{
		Grades: []models.GradeRow{{CourseID: "CS101", Grade: "In Progress"}},
		GPA:    3.5,
	}}
	handler := NewStudentHandler(portal)

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Request = httptest.NewRequest(http.MethodGet, "/students/student-1/grades", nil)

	handler.Grades(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 3.5, envelope.Data["gpa"])
}

func TestStudentHandlerUpdateGradeInvalid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	portal := &fakeStudentPortal{updateErr: appErrors.Clone(appErrors.ErrValidation, `unrecognized grade "E"`)}
	handler := NewStudentHandler(portal)

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Request = httptest.NewRequest(http.MethodPut, "/students/student-1/grades/enr-1", strings.NewReader(`{"grade":"E"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	setParam(c, "enrollmentId", "enr-1")

	handler.UpdateGrade(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerUpdateGradeReturnsGPA(t *testing.T) {
	gin.SetMode(gin.TestMode)
	portal := &fakeStudentPortal{gpa: 3.24}
	handler := NewStudentHandler(portal)

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Request = httptest.NewRequest(http.MethodPut, "/students/student-1/grades/enr-1", strings.NewReader(`{"grade":"B+"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	setParam(c, "enrollmentId", "enr-1")

	handler.UpdateGrade(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 3.24, envelope.Data["gpa"])
}

func TestStudentHandlerTranscriptCSVContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	portal := &fakeStudentPortal{}
	handler := NewStudentHandler(portal)

	rec := httptest.NewRecorder()
	c, _ := authedContext(rec, "student-1")
	c.Request = httptest.NewRequest(http.MethodGet, "/students/student-1/grades/transcript?format=csv", nil)

	handler.Transcript(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", portal.lastFormat)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transcript-student-1.csv")
}
