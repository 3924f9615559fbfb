package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"project-review-api/internal/outbox"
)

const (
	// ExchangeName is the topic exchange review events are published to
	ExchangeName = "review.events"
)

// Publisher delivers outbox events to RabbitMQ. Routing keys are the event
// names (project_submitted, stage_completed, ...), so consumers can bind
// with topic patterns.
type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

var _ outbox.Sink = (*Publisher)(nil)

// NewPublisher connects to RabbitMQ and declares the events exchange
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:    conn,
		channel: ch,
	}, nil
}

// Close releases the channel and connection
func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Publish sends one event to the exchange using the event name as routing key
func (p *Publisher) Publish(ctx context.Context, eventName string, projectID uuid.UUID, payload json.RawMessage) error {
	body, err := json.Marshal(map[string]interface{}{
		"event":      eventName,
		"project_id": projectID,
		"payload":    payload,
	})
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx,
		ExchangeName,
		eventName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
		},
	)
}
