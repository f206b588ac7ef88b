package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opencampus/sis-api/internal/models"
	"github.com/opencampus/sis-api/pkg/jobs"
)

type eventWriter interface {
	InsertEvent(ctx context.Context, event *models.EnrollmentEvent) error
}

// EventService records enrollment ledger activity asynchronously. Mutating
// requests never wait on the event insert; failures are retried by the queue
// and at worst logged, never surfaced to the caller.
type EventService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewEventService builds the service and its backing worker queue.
func NewEventService(writer eventWriter, cfg jobs.QueueConfig, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EventService{logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s.queue = jobs.NewQueue("enrollment-events", func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.EnrollmentEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return writer.InsertEvent(ctx, &event)
	}, cfg)
	return s
}

// Start launches the worker pool.
func (s *EventService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains workers.
func (s *EventService) Stop() {
	s.queue.Stop()
}

// Publish enqueues an enrollment event for asynchronous persistence.
func (s *EventService) Publish(event models.EnrollmentEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := s.queue.Enqueue(jobs.Job{
		ID:      event.ID,
		Type:    string(event.Action),
		Payload: event,
	}); err != nil {
		s.logger.Warn("failed to enqueue enrollment event",
			zap.String("enrollment_id", event.EnrollmentID),
			zap.String("action", string(event.Action)),
			zap.Error(err),
		)
	}
}
