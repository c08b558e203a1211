package domain

// Booking Model
type Booking struct {
	ID          uint  `gorm:"primaryKey"`           // Primary key
	UserID      uint  `gorm:"not null;index"`       // Foreign key to User
	TrainID     uint  `gorm:"not null;index"`       // Foreign key to Train
	SeatsBooked int   `gorm:"not null"`             // Number of seats reserved
	CreatedAt   int64 `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
