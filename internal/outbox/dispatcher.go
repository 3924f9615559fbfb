package outbox

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"project-review-api/internal/metrics"
	"project-review-api/internal/repository"
)

const (
	// batchSize limits how many pending events one dispatch run handles
	batchSize = 50

	// maxAttempts is the retry budget before an event is parked as failed
	maxAttempts = 5
)

// Sink delivers one event to an external system. The HTTP notification
// client and the AMQP publisher both implement it.
type Sink interface {
	Publish(ctx context.Context, eventName string, projectID uuid.UUID, payload json.RawMessage) error
}

// Dispatcher drains pending outbox rows through a sink. Workflow
// transactions only insert rows; delivery happens here, after commit, so a
// sink outage never rolls back a review transition.
type Dispatcher struct {
	outboxRepo repository.OutboxRepository
	sink       Sink
	logger     *zap.Logger
}

// NewDispatcher creates a new outbox dispatcher
func NewDispatcher(outboxRepo repository.OutboxRepository, sink Sink, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		outboxRepo: outboxRepo,
		sink:       sink,
		logger:     logger,
	}
}

// Dispatch delivers one batch of pending events. Failed deliveries keep
// their row pending until the attempt budget runs out.
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	events, err := d.outboxRepo.FindPending(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, event := range events {
		if err := d.sink.Publish(ctx, event.EventName, event.ProjectID, json.RawMessage(event.Payload)); err != nil {
			metrics.IncrementOutboxFailed()
			terminal := event.Attempts+1 >= maxAttempts
			if terminal {
				d.logger.Error("Outbox event exhausted its retry budget",
					zap.String("event_id", event.ID.String()),
					zap.String("event", event.EventName),
					zap.Int("attempts", event.Attempts+1),
					zap.Error(err))
			} else {
				d.logger.Warn("Outbox delivery failed, will retry",
					zap.String("event_id", event.ID.String()),
					zap.String("event", event.EventName),
					zap.Error(err))
			}
			if markErr := d.outboxRepo.MarkFailedAttempt(ctx, event.ID, terminal); markErr != nil {
				d.logger.Error("Failed to record outbox attempt", zap.Error(markErr))
			}
			continue
		}

		if err := d.outboxRepo.MarkPublished(ctx, event.ID); err != nil {
			// The sink got the event; on the next run it would be sent
			// again. Consumers must tolerate duplicates.
			d.logger.Error("Failed to mark outbox event published",
				zap.String("event_id", event.ID.String()),
				zap.Error(err))
			continue
		}
		metrics.IncrementOutboxPublished()
		delivered++
	}
	return delivered, nil
}
