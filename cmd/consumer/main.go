package main

import (
	"context"                       // Cancellation on shutdown
	"errors"                        // Error comparisons
	"os"                            // Signals
	"os/signal"                     // Signal handling
	"syscall"                       // SIGTERM
	"train_booking/internal/config" // Custom package for configuration
	"train_booking/internal/events" // Custom package for booking events

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for the booking event consumer
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.AMQPURL == "" {
		logrus.Fatal("RABBITMQ_URL must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.Info("Consuming " + events.BookingConfirmedQueue)
	err := events.Consume(ctx, cfg.AMQPURL, func(_ context.Context, ev events.BookingConfirmed) error {
		logrus.WithFields(logrus.Fields{
			"booking_id":   ev.BookingID,   // Booking ID
			"user_id":      ev.UserID,      // User ID
			"train_id":     ev.TrainID,     // Train ID
			"train_name":   ev.TrainName,   // Train name
			"source":       ev.Source,      // Departure station
			"destination":  ev.Destination, // Arrival station
			"seats_booked": ev.SeatsBooked, // Seats reserved
			"confirmed_at": ev.ConfirmedAt, // Commit time
		}).Info("Booking confirmed")
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logrus.Fatalf("consumer stopped: %v", err)
	}
}
