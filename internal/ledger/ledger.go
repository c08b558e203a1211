// Package ledger owns the trains table: the per-train remaining seat counters.
//
// Locking reads and decrements are only reachable through a Tx, which exists
// only inside InUnitOfWork. Listing reads go through Ledger and never lock.
package ledger

import (
	"context"                       // Request-scoped cancellation
	"errors"                        // Error comparisons
	"strings"                       // String manipulation
	"train_booking/internal/domain" // Importing domain models

	"gorm.io/gorm"        // GORM ORM library
	"gorm.io/gorm/clause" // Row locking clause
)

var (
	// ErrTrainNotFound is returned when no train row matches the id.
	ErrTrainNotFound = errors.New("train not found")
	// ErrInsufficientSeats is returned when a decrement would push the
	// counter below zero.
	ErrInsufficientSeats = errors.New("insufficient seats")
	// ErrInvalidTrain is returned by AddTrain for incomplete input.
	ErrInvalidTrain = errors.New("invalid train")
)

// Ledger reads and creates trains.
type Ledger struct {
	db *gorm.DB // Database handle
}

// New returns a Ledger bound to db.
func New(db *gorm.DB) *Ledger { return &Ledger{db: db} }

// Tx is the ledger as seen from inside one unit of work.
type Tx struct {
	db *gorm.DB // Transaction handle
}

// InUnitOfWork runs fn inside a database transaction. The transaction commits
// only if fn returns nil; any error, or a panic, rolls it back.
func (l *Ledger) InUnitOfWork(ctx context.Context, fn func(tx *Tx) error) error {
	return l.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&Tx{db: db}) // Commit on nil, roll back otherwise
	})
}

// Availability reads the train's remaining seats and holds an exclusive lock
// on its row (SELECT ... FOR UPDATE) until the unit of work ends.
func (t *Tx) Availability(trainID uint) (int, error) {
	var train domain.Train // Fetch the counter
	// SELECT ... FOR UPDATE, held until commit or rollback
	err := t.db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Select("id", "available_seats").
		Where("id = ?", trainID).
		Take(&train).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrTrainNotFound // No such train
	}
	if err != nil {
		return 0, err // Storage failure
	}
	return train.AvailableSeats, nil
}

// Decrement takes n seats off the train's counter. The update is guarded so
// the counter can never go negative even if called without a prior check.
func (t *Tx) Decrement(trainID uint, n int) error {
	res := t.db.Model(&domain.Train{}).
		Where("id = ? AND available_seats >= ?", trainID, n).                // Guard against going negative
		UpdateColumn("available_seats", gorm.Expr("available_seats - ?", n)) // Decrement in place
	if res.Error != nil {
		return res.Error // Storage failure
	}
	if res.RowsAffected != 1 {
		return ErrInsufficientSeats // Guard rejected the update
	}
	return nil
}

// Session exposes the unit of work so other rows can be written in it.
func (t *Tx) Session() *gorm.DB { return t.db }

// FindTrains lists trains on a route. The read is a plain snapshot; the seat
// counts it returns may already be stale.
func (l *Ledger) FindTrains(ctx context.Context, source, destination string) ([]domain.Train, error) {
	var trains []domain.Train // Trains on the route
	err := l.db.WithContext(ctx).
		Where("source = ? AND destination = ?", source, destination). // Match the route
		Order("id").                                                  // Stable order
		Find(&trains).Error
	return trains, err
}

// Get loads one train without locking.
func (l *Ledger) Get(ctx context.Context, trainID uint) (*domain.Train, error) {
	var train domain.Train                                   // Fetch train from database
	err := l.db.WithContext(ctx).Take(&train, trainID).Error // Plain read, no lock
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTrainNotFound // No such train
	}
	if err != nil {
		return nil, err // Storage failure
	}
	return &train, nil
}

// AddTrain creates a train with every seat available.
func (l *Ledger) AddTrain(ctx context.Context, train *domain.Train) error {
	train.Name = strings.TrimSpace(train.Name)               // Normalise name
	train.Source = strings.TrimSpace(train.Source)           // Normalise departure station
	train.Destination = strings.TrimSpace(train.Destination) // Normalise arrival station
	// Reject incomplete input
	if train.Name == "" || train.Source == "" || train.Destination == "" || train.Capacity < 0 {
		return ErrInvalidTrain
	}
	train.ID = 0                                     // Always a new row
	train.AvailableSeats = train.Capacity            // Every seat starts available
	return l.db.WithContext(ctx).Create(train).Error // Insert the train
}
