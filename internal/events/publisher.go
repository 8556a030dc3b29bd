package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends booking events
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, event BookingEvent) error
	PublishBookingCancelled(ctx context.Context, event BookingEvent) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishBookingConfirmed(ctx context.Context, event BookingEvent) error {
	return nil
}

func (NoopPublisher) PublishBookingCancelled(ctx context.Context, event BookingEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

// RabbitPublisher publishes persistent JSON messages to durable queues on the
// default exchange. The connection is opened lazily and re-dialled after a
// failure.
type RabbitPublisher struct {
	url    string
	logger *logrus.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitPublisher creates a RabbitPublisher for the broker at url
func NewRabbitPublisher(url string, logger *logrus.Logger) *RabbitPublisher {
	return &RabbitPublisher{url: url, logger: logger}
}

func (p *RabbitPublisher) PublishBookingConfirmed(ctx context.Context, event BookingEvent) error {
	return p.publish(ctx, QueueBookingConfirmed, event)
}

func (p *RabbitPublisher) PublishBookingCancelled(ctx context.Context, event BookingEvent) error {
	return p.publish(ctx, QueueBookingCancelled, event)
}

func (p *RabbitPublisher) publish(ctx context.Context, queue string, event BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", queue, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	// Durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.reset()
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    event.BookingID,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("failed to publish %s event: %w", queue, err)
	}

	p.logger.WithFields(logrus.Fields{
		"queue":      queue,
		"booking_id": event.BookingID,
	}).Debug("Booking event published")

	return nil
}

// channel returns the open channel, dialling if needed. Caller holds p.mu.
func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	p.conn = conn
	p.ch = ch
	return ch, nil
}

// reset drops the current connection. Caller holds p.mu.
func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close closes the broker connection
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
