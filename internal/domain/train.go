package domain

// Train Model
//
// AvailableSeats is the live remaining-seat counter and is written only by the
// booking engine. Capacity keeps the seat count the train was created with, so
// AvailableSeats == Capacity - sum(SeatsBooked) over the train's bookings.
type Train struct {
	ID             uint      `gorm:"primaryKey" json:"id"`                                      // Primary key
	Name           string    `gorm:"size:128;not null" json:"name"`                             // Train name
	Source         string    `gorm:"size:128;not null;index:idx_route" json:"source"`           // Departure station
	Destination    string    `gorm:"size:128;not null;index:idx_route" json:"destination"`      // Arrival station
	Capacity       int       `gorm:"not null" json:"-"`                                         // Seats at creation
	AvailableSeats int       `gorm:"not null;check:available_seats >= 0" json:"availableSeats"` // Remaining seats
	Bookings       []Booking `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`   // Bookings on this train
}
