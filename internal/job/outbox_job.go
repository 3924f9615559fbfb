package job

import (
	"context"

	"go.uber.org/zap"

	"project-review-api/internal/outbox"
)

// OutboxJob drains pending outbox events through the configured sink
type OutboxJob struct {
	dispatcher *outbox.Dispatcher
	logger     *zap.Logger
}

// NewOutboxJob creates a new outbox dispatch job
func NewOutboxJob(dispatcher *outbox.Dispatcher, logger *zap.Logger) *OutboxJob {
	return &OutboxJob{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run delivers one batch of pending events
func (j *OutboxJob) Run() {
	ctx := context.Background()

	delivered, err := j.dispatcher.Dispatch(ctx)
	if err != nil {
		j.logger.Error("Outbox dispatch run failed", zap.Error(err))
		return
	}
	if delivered > 0 {
		j.logger.Info("Outbox dispatch run completed",
			zap.Int("delivered", delivered))
	}
}
