package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
	"project-review-api/internal/repository"
)

// mockOutboxRepository is a configurable mock of repository.OutboxRepository
type mockOutboxRepository struct {
	findPendingFunc       func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	markPublishedFunc     func(ctx context.Context, id uuid.UUID) error
	markFailedAttemptFunc func(ctx context.Context, id uuid.UUID, terminal bool) error
}

func (m *mockOutboxRepository) WithTx(tx *gorm.DB) repository.OutboxRepository { return m }

func (m *mockOutboxRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	return nil
}

func (m *mockOutboxRepository) FindPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if m.findPendingFunc != nil {
		return m.findPendingFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	if m.markPublishedFunc != nil {
		return m.markPublishedFunc(ctx, id)
	}
	return nil
}

func (m *mockOutboxRepository) MarkFailedAttempt(ctx context.Context, id uuid.UUID, terminal bool) error {
	if m.markFailedAttemptFunc != nil {
		return m.markFailedAttemptFunc(ctx, id, terminal)
	}
	return nil
}

// mockSink records published events and can fail selectively
type mockSink struct {
	publishFunc func(ctx context.Context, eventName string, projectID uuid.UUID, payload json.RawMessage) error
	published   []string
}

func (m *mockSink) Publish(ctx context.Context, eventName string, projectID uuid.UUID, payload json.RawMessage) error {
	if m.publishFunc != nil {
		if err := m.publishFunc(ctx, eventName, projectID, payload); err != nil {
			return err
		}
	}
	m.published = append(m.published, eventName)
	return nil
}

func pendingEvent(name string, attempts int) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:        uuid.New(),
		EventName: name,
		ProjectID: uuid.New(),
		Payload:   datatypes.JSON([]byte(`{}`)),
		Status:    domain.OutboxStatusPending,
		Attempts:  attempts,
	}
}

func TestDispatch_DeliversAndMarksPublished(t *testing.T) {
	events := []*domain.OutboxEvent{
		pendingEvent(domain.EventProjectSubmitted, 0),
		pendingEvent(domain.EventStageCompleted, 0),
	}
	var publishedIDs []uuid.UUID
	repo := &mockOutboxRepository{
		findPendingFunc: func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
			return events, nil
		},
		markPublishedFunc: func(ctx context.Context, id uuid.UUID) error {
			publishedIDs = append(publishedIDs, id)
			return nil
		},
	}
	sink := &mockSink{}

	dispatcher := NewDispatcher(repo, sink, zap.NewNop())
	delivered, err := dispatcher.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, delivered)
	assert.Equal(t, []string{domain.EventProjectSubmitted, domain.EventStageCompleted}, sink.published)
	assert.ElementsMatch(t, []uuid.UUID{events[0].ID, events[1].ID}, publishedIDs)
}

func TestDispatch_FailedDeliveryStaysPending(t *testing.T) {
	event := pendingEvent(domain.EventFeedbackAdded, 0)
	var failedTerminal *bool
	repo := &mockOutboxRepository{
		findPendingFunc: func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
			return []*domain.OutboxEvent{event}, nil
		},
		markPublishedFunc: func(ctx context.Context, id uuid.UUID) error {
			t.Fatal("failed event must not be marked published")
			return nil
		},
		markFailedAttemptFunc: func(ctx context.Context, id uuid.UUID, terminal bool) error {
			failedTerminal = &terminal
			return nil
		},
	}
	sink := &mockSink{
		publishFunc: func(ctx context.Context, eventName string, projectID uuid.UUID, payload json.RawMessage) error {
			return errors.New("connection refused")
		},
	}

	dispatcher := NewDispatcher(repo, sink, zap.NewNop())
	delivered, err := dispatcher.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Zero(t, delivered)
	require.NotNil(t, failedTerminal)
	assert.False(t, *failedTerminal)
}

func TestDispatch_ExhaustedRetryBudgetIsTerminal(t *testing.T) {
	event := pendingEvent(domain.EventProjectApproved, 4)
	var failedTerminal *bool
	repo := &mockOutboxRepository{
		findPendingFunc: func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
			return []*domain.OutboxEvent{event}, nil
		},
		markFailedAttemptFunc: func(ctx context.Context, id uuid.UUID, terminal bool) error {
			failedTerminal = &terminal
			return nil
		},
	}
	sink := &mockSink{
		publishFunc: func(ctx context.Context, eventName string, projectID uuid.UUID, payload json.RawMessage) error {
			return errors.New("still down")
		},
	}

	dispatcher := NewDispatcher(repo, sink, zap.NewNop())
	delivered, err := dispatcher.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Zero(t, delivered)
	require.NotNil(t, failedTerminal)
	assert.True(t, *failedTerminal)
}

func TestDispatch_OneFailureDoesNotBlockTheBatch(t *testing.T) {
	bad := pendingEvent(domain.EventProjectRejected, 0)
	good := pendingEvent(domain.EventDocumentUploaded, 0)
	repo := &mockOutboxRepository{
		findPendingFunc: func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
			return []*domain.OutboxEvent{bad, good}, nil
		},
	}
	sink := &mockSink{
		publishFunc: func(ctx context.Context, eventName string, projectID uuid.UUID, payload json.RawMessage) error {
			if eventName == domain.EventProjectRejected {
				return errors.New("rejected by broker")
			}
			return nil
		},
	}

	dispatcher := NewDispatcher(repo, sink, zap.NewNop())
	delivered, err := dispatcher.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{domain.EventDocumentUploaded}, sink.published)
}

func TestDispatch_FindPendingError(t *testing.T) {
	repo := &mockOutboxRepository{
		findPendingFunc: func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
			return nil, errors.New("database unavailable")
		},
	}

	dispatcher := NewDispatcher(repo, &mockSink{}, zap.NewNop())
	_, err := dispatcher.Dispatch(context.Background())
	assert.Error(t, err)
}
