package events

import (
	"context"       // Publish deadline
	"encoding/json" // JSON encoding
	"errors"        // Error joining
	"sync"          // Connection guard
	"time"          // Message timestamp

	amqp "github.com/rabbitmq/amqp091-go" // RabbitMQ client
)

// Publisher sends booking events somewhere.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev BookingConfirmed) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishBookingConfirmed(context.Context, BookingConfirmed) error { return nil }
func (NopPublisher) Close() error { return nil }

// AMQPPublisher publishes persistent JSON messages to BookingConfirmedQueue on
// the default exchange. The connection is dialed lazily and re-dialed after
// it drops.
type AMQPPublisher struct {
	url string // Broker URL

	mu   sync.Mutex       // Guards conn and ch
	conn *amqp.Connection // Lazily dialed connection
	ch   *amqp.Channel    // Channel on conn
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

// PublishBookingConfirmed marshals ev and publishes it.
func (p *AMQPPublisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmed) error {
	body, err := json.Marshal(ev) // Encode the event
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel() // Dial if needed
	if err != nil {
		return err // Broker unreachable
	}
	err = ch.PublishWithContext(ctx,
		"",                    // default exchange
		BookingConfirmedQueue, // routing key = queue name
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json", // JSON body
			DeliveryMode: amqp.Persistent,    // Survive broker restarts
			Timestamp:    time.Now().UTC(),   // Publish time
			Body:         body,               // Encoded event
		})
	if err != nil {
		p.reset() // Re-dial on the next publish
	}
	return err
}

// channel returns an open channel, dialing and declaring the queue if needed.
// Callers hold p.mu.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil // Reuse the open channel
	}
	p.reset() // Drop any half-closed state

	conn, err := amqp.Dial(p.url) // Connect to the broker
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel() // Open a channel
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	// Durable queue, shared with the consumer
	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	p.ch, p.conn = nil, nil
	return err
}
