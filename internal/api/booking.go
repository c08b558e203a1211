package api

import (
	"context"                        // Context for post-commit work
	"net/http"                       // HTTP status codes
	"strconv"                        // String conversion
	"time"                           // Time durations
	"train_booking/internal/booking" // Booking engine and queries
	"train_booking/internal/events"  // Booking events
	"train_booking/internal/ledger"  // Inventory ledger
	"train_booking/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// bookingViewTTL bounds how long a booking view is cached; bookings never change
const bookingViewTTL = 5 * time.Minute

// BookRequest is the body of POST /book
type BookRequest struct {
	TrainID uint `json:"trainId" binding:"required"` // Train to book on
	Seats   int  `json:"seats"`                      // Seats requested, validated by the engine
}

// BookHandler reserves seats for the authenticated user
func BookHandler(engine *booking.Engine, trains *ledger.Ledger, rdb *redis.Client, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID") // Set by JWTAuthMiddleware
		if userID == 0 {
			respond(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		var req BookRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respond(c, http.StatusBadRequest, "Invalid request")
			return
		}
		created, err := engine.Reserve(c.Request.Context(), userID, req.TrainID, req.Seats)
		if err != nil {
			code, status := bookingErrorStatus(err, "Train not found")
			entry := logrus.WithFields(logrus.Fields{
				"user_id":  userID,      // User ID
				"train_id": req.TrainID, // Train ID
				"seats":    req.Seats,   // Seats requested
				"error":    err.Error(), // Error message
			})
			if code == http.StatusInternalServerError {
				entry.Error("Booking failed")
			} else {
				entry.Info("Booking rejected")
			}
			respond(c, code, status)
			return
		}
		logrus.WithFields(logrus.Fields{
			"booking_id": created.ID,                      // Booking ID
			"user_id":    userID,                          // User ID
			"train_id":   req.TrainID,                     // Train ID
			"seats":      created.SeatsBooked,             // Seats reserved
			"timestamp":  time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Seats booked")
		afterBooking(c.Request.Context(), trains, rdb, pub, created.ID, userID, req.TrainID, created.SeatsBooked)
		c.JSON(http.StatusOK, gin.H{
			"status":      "Seat booked successfully",
			"status_code": http.StatusOK,
			"booking_id":  created.ID,
		})
	}
}

// afterBooking invalidates reads made stale by a committed booking and
// publishes the booking event. Failures here are logged only: the booking is
// already durable.
func afterBooking(reqCtx context.Context, trains *ledger.Ledger, rdb *redis.Client, pub events.Publisher, bookingID, userID, trainID uint, seats int) {
	ctx := context.WithoutCancel(reqCtx) // Outlive a client that hung up after the commit
	train, err := trains.Get(ctx, trainID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"train_id": trainID, "error": err.Error()}).Warn("Post-booking train lookup failed")
		_ = utils.DeleteCache(ctx, rdb, utils.BookingListCacheKey(userID))
		return
	}
	_ = utils.DeleteCache(ctx, rdb,
		utils.TrainsCacheKey(train.Source, train.Destination), // Seat count changed
		utils.BookingListCacheKey(userID),                     // New entry in the user's list
	)
	ev := events.BookingConfirmed{
		BookingID:   bookingID,
		UserID:      userID,
		TrainID:     trainID,
		TrainName:   train.Name,
		Source:      train.Source,
		Destination: train.Destination,
		SeatsBooked: seats,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	// Publish off the request path; a slow broker must not delay the response
	go func() {
		pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := pub.PublishBookingConfirmed(pubCtx, ev); err != nil {
			logrus.WithFields(logrus.Fields{"booking_id": bookingID, "error": err.Error()}).Warn("Failed to publish booking event")
		}
	}()
}

// GetBookingHandler returns one of the caller's bookings
func GetBookingHandler(query *booking.Query, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID") // Set by JWTAuthMiddleware
		if userID == 0 {
			respond(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		id, err := strconv.ParseUint(c.Param("bookingId"), 10, 64)
		if err != nil || id == 0 {
			respond(c, http.StatusBadRequest, "Invalid booking id")
			return
		}
		bookingID := uint(id)
		ctx := c.Request.Context()
		cacheKey := utils.BookingCacheKey(bookingID, userID) // Scoped to the owner
		var view booking.View
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &view); err == nil && found {
			c.JSON(http.StatusOK, view) // Cached view
			return
		}
		v, err := query.GetBooking(ctx, bookingID, userID)
		if err != nil {
			code, status := bookingErrorStatus(err, "Booking not found")
			if code == http.StatusInternalServerError {
				logrus.WithFields(logrus.Fields{"booking_id": bookingID, "error": err.Error()}).Error("Failed to load booking")
			}
			respond(c, code, status)
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, v, bookingViewTTL) // Cache the view
		c.JSON(http.StatusOK, v)
	}
}

// ListBookingsHandler returns all of the caller's bookings, newest first
func ListBookingsHandler(query *booking.Query, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID") // Set by JWTAuthMiddleware
		if userID == 0 {
			respond(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx := c.Request.Context()
		cacheKey := utils.BookingListCacheKey(userID)
		var views []booking.View
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &views); err == nil && found {
			c.JSON(http.StatusOK, views) // Cached list
			return
		}
		views, err := query.ListBookings(ctx, userID)
		if err != nil {
			logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Error("Failed to list bookings")
			respond(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, views, ttl) // Cache the list
		c.JSON(http.StatusOK, views)
	}
}
