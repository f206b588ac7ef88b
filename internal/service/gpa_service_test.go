package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/sis-api/internal/models"
)

type mockGradesReader struct {
	rows []models.CompletedGrade
}

func (m *mockGradesReader) CompletedGrades(ctx context.Context, studentID string) ([]models.CompletedGrade, error) {
	return m.rows, nil
}

type mockGPAWriter struct {
	saved map[string]float64
}

func (m *mockGPAWriter) UpdateGPA(ctx context.Context, id string, gpa float64) error {
	if m.saved == nil {
		m.saved = make(map[string]float64)
	}
	m.saved[id] = gpa
	return nil
}

func TestComputeWeightedAverage(t *testing.T) {
	// (4.0*3 + 2.7*4) / 7 = 3.2571... -> 3.26
	rows := []models.CompletedGrade{
		{Grade: "A", Credits: 3},
		{Grade: "B-", Credits: 4},
	}
	assert.Equal(t, 3.26, Compute(rows))
}

func TestComputeEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Compute(nil))
}

func TestComputeSkipsUnrecognizedGrades(t *testing.T) {
	rows := []models.CompletedGrade{
		{Grade: "A", Credits: 3},
		{Grade: "W", Credits: 3},
		{Grade: "P", Credits: 4},
	}
	assert.Equal(t, 4.0, Compute(rows))
}

func TestComputeSkipsZeroCreditCourses(t *testing.T) {
	rows := []models.CompletedGrade{
		{Grade: "A", Credits: 3},
		{Grade: "F", Credits: 0},
	}
	assert.Equal(t, 4.0, Compute(rows))
}

func TestComputeIncludesFailingGrades(t *testing.T) {
	// F counts as 0.0 in the average, unlike unrecognized grades.
	rows := []models.CompletedGrade{
		{Grade: "A", Credits: 3},
		{Grade: "F", Credits: 3},
	}
	assert.Equal(t, 2.0, Compute(rows))
}

func TestGPAServiceRecalculatePersists(t *testing.T) {
	reader := &mockGradesReader{rows: []models.CompletedGrade{
		{Grade: "B+", Credits: 3},
		{Grade: "A-", Credits: 3},
	}}
	writer := &mockGPAWriter{}
	svc := NewGPAService(reader, writer, nil)

	gpa, err := svc.Recalculate(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, 3.5, gpa)
	assert.Equal(t, 3.5, writer.saved["student-1"])
}
