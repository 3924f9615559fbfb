package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"project-review-api/internal/metrics"
	"project-review-api/internal/outbox"
)

// notificationEnvelope is the wire format sent to the notification service
type notificationEnvelope struct {
	Event      string          `json:"event"`
	ProjectID  uuid.UUID       `json:"projectId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt string          `json:"occurredAt"`
}

// NotificationClient delivers outbox events to the notification service over
// HTTP. It is one of the sinks the outbox dispatcher can use.
type NotificationClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

var _ outbox.Sink = (*NotificationClient)(nil)

// NewNotificationClient creates a new notification service client
func NewNotificationClient(baseURL string, apiKey string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *NotificationClient {
	return &NotificationClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: m,
	}
}

// Publish sends one event to the notification service
func (c *NotificationClient) Publish(ctx context.Context, eventName string, projectID uuid.UUID, payload json.RawMessage) error {
	url := fmt.Sprintf("%s/api/internal/notifications", c.baseURL)

	jsonBody, err := json.Marshal(notificationEnvelope{
		Event:      eventName,
		ProjectID:  projectID,
		Payload:    payload,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-API-Key", c.apiKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	if c.metrics != nil {
		c.metrics.RecordExternalAPICall(url, "POST", statusCode, duration, err)
	}

	if err != nil {
		c.logger.Error("Failed to send notification",
			zap.String("event", eventName),
			zap.Error(err))
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		c.logger.Error("Notification service returned an error",
			zap.String("event", eventName),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}

	c.logger.Debug("Notification delivered",
		zap.String("event", eventName),
		zap.String("project_id", projectID.String()))
	return nil
}
