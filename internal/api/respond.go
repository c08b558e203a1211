package api

import (
	"errors"   // Error comparisons
	"net/http" // HTTP status codes

	"train_booking/internal/booking" // Booking error taxonomy

	"github.com/gin-gonic/gin" // Gin web framework
)

// respond writes the standard status body. Error details never reach clients.
func respond(c *gin.Context, code int, status string) {
	c.JSON(code, gin.H{"status": status, "status_code": code})
}

// bookingErrorStatus maps a booking package error to its response.
// Insufficient capacity is a definitive 400; only internal errors are 500s and
// therefore worth retrying.
func bookingErrorStatus(err error, notFound string) (int, string) {
	switch {
	case errors.Is(err, booking.ErrInvalidArgument):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound, notFound
	case errors.Is(err, booking.ErrInsufficientCapacity):
		return http.StatusBadRequest, "Not enough seats available"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}
