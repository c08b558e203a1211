package events

import (
	"context"       // Cancellation on shutdown
	"encoding/json" // JSON decoding
	"errors"        // Error values
	"fmt"           // Error wrapping
	"time"          // Reconnect backoff

	amqp "github.com/rabbitmq/amqp091-go" // RabbitMQ client
	"github.com/sirupsen/logrus"          // Logging library
)

// Handler processes one decoded event. Returning an error rejects the message
// without requeueing it.
type Handler func(ctx context.Context, ev BookingConfirmed) error

// Consume reads BookingConfirmedQueue until ctx is canceled, reconnecting
// with exponential backoff (capped at 30s) whenever the broker goes away.
func Consume(ctx context.Context, url string, handle Handler) error {
	backoff := time.Second // First reconnect delay
	for {
		conn, err := amqp.Dial(url) // Connect to the broker
		if err == nil {
			backoff = time.Second                // Reset after a successful connect
			err = consumeLoop(ctx, conn, handle) // Runs until the connection or ctx ends
			_ = conn.Close()                     // Release the connection
		}
		if ctx.Err() != nil {
			return ctx.Err() // Shutting down
		}
		logrus.WithFields(logrus.Fields{
			"retry_in": backoff.String(), // Delay before reconnecting
			"error":    fmt.Sprint(err),  // Error message
		}).Warn("Booking consumer disconnected")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second) // Exponential backoff, capped at 30s
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, handle Handler) error {
	ch, err := conn.Channel() // Open a channel
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Limit unacknowledged deliveries in flight
	if err := ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	// Durable queue, shared with the publisher
	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	// Manual acknowledgements
	msgs, err := ch.ConsumeWithContext(ctx, BookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err() // Shutting down
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed") // Broker went away
			}
			if err := Dispatch(ctx, d.Body, handle); err != nil {
				logrus.WithFields(logrus.Fields{
					"delivery_tag": d.DeliveryTag, // Delivery tag
					"error":        err.Error(),   // Error message
				}).Error("Booking event rejected")
				_ = d.Nack(false, false) // Reject without requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false) // Handled
		}
	}
}

// Dispatch decodes one message body and hands it to handle.
func Dispatch(ctx context.Context, body []byte, handle Handler) error {
	var ev BookingConfirmed // Decoded event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err) // Not JSON
	}
	if ev.BookingID == 0 {
		return errors.New("event without booking id") // Not a booking event
	}
	return handle(ctx, ev) // Hand off to the caller
}
