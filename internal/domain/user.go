package domain

// Roles a user can hold
const (
	RoleUser  = "user"  // Regular customer
	RoleAdmin = "admin" // Allowed to manage the train catalog
)

// User Model
type User struct {
	ID       uint      `gorm:"primaryKey"`                                     // Primary key
	Name     string    `gorm:"size:128;not null"`                              // Display name
	Email    string    `gorm:"size:191;uniqueIndex;not null"`                  // Unique email
	Password string    `gorm:"not null"`                                       // Hashed password
	Role     string    `gorm:"size:16;not null;default:user"`                  // Role: user or admin
	Bookings []Booking `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"` // Bookings made by the user
}
