// Package booking turns available seats into bookings and answers questions
// about existing bookings.
package booking

import (
	"context"                       // Cancellation and deadlines
	"time"                          // Time durations
	"train_booking/internal/domain" // Importing domain models
	"train_booking/internal/ledger" // Inventory ledger

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Options tune the reservation unit of work.
type Options struct {
	MaxAttempts int           // Runs per Reserve call when the database reports a lock conflict
	TxTimeout   time.Duration // Deadline for a single run, lock wait included
	RetryDelay  time.Duration // Base backoff between runs, multiplied by the attempt number
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3 // Default retry budget
	}
	if o.TxTimeout <= 0 {
		o.TxTimeout = 5 * time.Second // Default unit of work deadline
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 20 * time.Millisecond // Default backoff step
	}
	return o
}

// Engine is the only writer of train seat counters and the only creator of
// bookings.
type Engine struct {
	ledger *ledger.Ledger // Seat counters
	opts   Options        // Retry and timeout policy
}

// NewEngine returns an Engine working against db.
func NewEngine(db *gorm.DB, opts Options) *Engine {
	return &Engine{ledger: ledger.New(db), opts: opts.withDefaults()}
}

// Reserve books seats on a train for a user. On success the train's counter
// has dropped by exactly seats and the returned booking is committed. On any
// error neither the counter nor the bookings table has changed.
func (e *Engine) Reserve(ctx context.Context, userID, trainID uint, seats int) (*domain.Booking, error) {
	if seats <= 0 {
		return nil, ErrInvalidArgument // Nothing to reserve
	}

	var lastErr error // Failure of the latest attempt
	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		booking, err := e.reserveOnce(ctx, userID, trainID, seats) // One unit of work
		if err == nil {
			return booking, nil // Committed
		}
		lastErr = err
		// Only lock conflicts are worth another run
		if !transient(ctx, err) || attempt == e.opts.MaxAttempts {
			break
		}
		logrus.WithFields(logrus.Fields{
			"user_id":  userID,      // User ID
			"train_id": trainID,     // Train ID
			"seats":    seats,       // Seats requested
			"attempt":  attempt,     // Attempt number
			"error":    err.Error(), // Error message
		}).Warn("Reservation hit a lock conflict, retrying")

		// Linear backoff, cut short if the caller goes away
		select {
		case <-ctx.Done():
			return nil, classify(ctx.Err())
		case <-time.After(time.Duration(attempt) * e.opts.RetryDelay):
		}
	}
	return nil, classify(lastErr) // Map to the error taxonomy
}

// reserveOnce is one run of the unit of work: lock, check, decrement, insert,
// commit.
func (e *Engine) reserveOnce(ctx context.Context, userID, trainID uint, seats int) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.TxTimeout) // Bound the lock wait
	defer cancel()

	var created domain.Booking // Booking row to insert
	err := e.ledger.InUnitOfWork(ctx, func(tx *ledger.Tx) error {
		available, err := tx.Availability(trainID) // Lock the train row
		if err != nil {
			return err // Missing train or storage failure
		}
		if available < seats {
			return ErrInsufficientCapacity // Roll back, releasing the lock
		}
		if err := tx.Decrement(trainID, seats); err != nil {
			return err // Guarded decrement failed
		}
		created = domain.Booking{UserID: userID, TrainID: trainID, SeatsBooked: seats}
		if err := tx.Session().Create(&created).Error; err != nil {
			return err // Insert failed, the decrement rolls back with it
		}
		// A caller that has gone away must not get a silent commit
		return ctx.Err()
	})
	if err != nil {
		return nil, err // Nothing was committed
	}
	return &created, nil
}
