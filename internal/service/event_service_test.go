package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/sis-api/internal/models"
	"github.com/opencampus/sis-api/pkg/jobs"
)

type mockEventWriter struct {
	mu     sync.Mutex
	events []models.EnrollmentEvent
	done   chan struct{}
}

func (m *mockEventWriter) InsertEvent(ctx context.Context, event *models.EnrollmentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	return nil
}

func TestEventServicePublishPersistsAsync(t *testing.T) {
	writer := &mockEventWriter{done: make(chan struct{})}
	done := writer.done
	svc := NewEventService(writer, jobs.QueueConfig{Workers: 1, BufferSize: 4}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Publish(models.EnrollmentEvent{
		EnrollmentID: "enr-1",
		StudentID:    "student-1",
		SectionID:    "section-1",
		Action:       models.EventActionRegister,
		Outcome:      "ENROLLED",
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not persisted in time")
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	require.Len(t, writer.events, 1)
	event := writer.events[0]
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.Equal(t, models.EventActionRegister, event.Action)
	assert.Equal(t, "ENROLLED", event.Outcome)
}

func TestEventServicePublishBeforeStartDoesNotPanic(t *testing.T) {
	writer := &mockEventWriter{}
	svc := NewEventService(writer, jobs.QueueConfig{Workers: 1}, nil)

	// Dropped with a warning; mutations never block on the event log.
	svc.Publish(models.EnrollmentEvent{EnrollmentID: "enr-1", Action: models.EventActionDrop})
}
