package booking

import (
	"context"                       // Request-scoped cancellation
	"errors"                        // Error comparisons
	"train_booking/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// View is a booking joined with its train, as shown to the booking's owner.
type View struct {
	ID          uint   `json:"id"`
	TrainID     uint   `json:"trainId"`
	TrainName   string `json:"trainName"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	SeatsBooked int    `json:"seatsBooked"`
}

// Query reads bookings. It never writes.
type Query struct {
	db *gorm.DB // Database handle
}

// NewQuery returns a Query bound to db.
func NewQuery(db *gorm.DB) *Query { return &Query{db: db} }

func (q *Query) views(ctx context.Context) *gorm.DB {
	return q.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Select("bookings.id, bookings.train_id, trains.name AS train_name, trains.source, trains.destination, bookings.seats_booked").
		Joins("JOIN trains ON trains.id = bookings.train_id")
}

// GetBooking returns the booking if it belongs to userID. A booking owned by
// someone else is reported as ErrNotFound, exactly like a missing one.
func (q *Query) GetBooking(ctx context.Context, bookingID, userID uint) (*View, error) {
	var v View // Joined booking view
	err := q.views(ctx).
		Where("bookings.id = ? AND bookings.user_id = ?", bookingID, userID). // Ownership is part of the lookup
		Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound // Missing and foreign look the same
	}
	if err != nil {
		return nil, classify(err) // Storage failure
	}
	return &v, nil
}

// ListBookings returns the user's bookings, newest first.
func (q *Query) ListBookings(ctx context.Context, userID uint) ([]View, error) {
	views := make([]View, 0) // Empty list, not null, when there are none
	err := q.views(ctx).
		Where("bookings.user_id = ?", userID). // Caller's bookings only
		Order("bookings.id DESC").             // Newest first
		Scan(&views).Error
	if err != nil {
		return nil, classify(err) // Storage failure
	}
	return views, nil
}
