// Package events carries booking notifications over RabbitMQ. Publishing
// happens after the reservation has committed and never affects its outcome.
package events

// BookingConfirmedQueue is the durable queue booking events are routed to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmed is published once per committed booking.
type BookingConfirmed struct {
	BookingID   uint   `json:"booking_id"`
	UserID      uint   `json:"user_id"`
	TrainID     uint   `json:"train_id"`
	TrainName   string `json:"train_name"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	SeatsBooked int    `json:"seats_booked"`
	ConfirmedAt string `json:"confirmed_at"`
}
