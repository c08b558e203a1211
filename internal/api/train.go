package api

import (
	"errors"                        // Error comparisons
	"net/http"                      // HTTP status codes
	"strings"                       // String manipulation
	"time"                          // Time durations
	"train_booking/internal/domain" // Importing domain models
	"train_booking/internal/ledger" // Inventory ledger
	"train_booking/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// AddTrainRequest is the body of POST /addtrain
type AddTrainRequest struct {
	Name        string `json:"name" binding:"required"`        // Train name
	Source      string `json:"source" binding:"required"`      // Departure station
	Destination string `json:"destination" binding:"required"` // Arrival station
	TotalSeats  *int   `json:"totalSeats" binding:"required"`  // Seats on offer
}

// TrainsQuery selects a route for GET /trains
type TrainsQuery struct {
	Source      string `form:"source" json:"source"`           // Departure station
	Destination string `form:"destination" json:"destination"` // Arrival station
}

// AddTrainHandler creates a train with all of its seats available
func AddTrainHandler(trains *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddTrainRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || *req.TotalSeats < 0 {
			respond(c, http.StatusBadRequest, "Invalid request")
			return
		}
		train := domain.Train{
			Name:        req.Name,        // Train name
			Source:      req.Source,      // Departure station
			Destination: req.Destination, // Arrival station
			Capacity:    *req.TotalSeats, // Seats at creation
		}
		ctx := c.Request.Context()
		if err := trains.AddTrain(ctx, &train); err != nil {
			if errors.Is(err, ledger.ErrInvalidTrain) {
				respond(c, http.StatusBadRequest, "Invalid request")
				return
			}
			logrus.WithFields(logrus.Fields{
				"name":  req.Name,    // Train name
				"error": err.Error(), // Error message
			}).Error("Failed to add train")
			respond(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		logrus.WithFields(logrus.Fields{
			"train_id":    train.ID,             // Train ID
			"source":      train.Source,         // Departure station
			"destination": train.Destination,    // Arrival station
			"seats":       train.AvailableSeats, // Seats on offer
			"admin_id":    c.GetUint("userID"),  // Creating admin
		}).Info("Train added")
		// The route listing now has one more train
		_ = utils.DeleteCache(ctx, rdb, utils.TrainsCacheKey(train.Source, train.Destination))
		c.JSON(http.StatusOK, gin.H{
			"status":      "Train added successfully",
			"status_code": http.StatusOK,
			"train_id":    train.ID,
		})
	}
}

// ListTrainsHandler lists the trains of a route with their remaining seats.
// Seat counts are a snapshot and may be up to ttl old when Redis is enabled.
func ListTrainsHandler(trains *ledger.Ledger, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q TrainsQuery
		_ = c.ShouldBindQuery(&q) // Query string first
		// Fall back to a JSON body
		if (q.Source == "" || q.Destination == "") && c.Request.ContentLength > 0 {
			_ = c.ShouldBindJSON(&q)
		}
		q.Source, q.Destination = strings.TrimSpace(q.Source), strings.TrimSpace(q.Destination)
		if q.Source == "" || q.Destination == "" {
			respond(c, http.StatusBadRequest, "source and destination are required")
			return
		}
		ctx := c.Request.Context()
		cacheKey := utils.TrainsCacheKey(q.Source, q.Destination)
		var list []domain.Train
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &list); err == nil && found && len(list) > 0 {
			c.JSON(http.StatusOK, list) // Cached listing
			return
		}
		list, err := trains.FindTrains(ctx, q.Source, q.Destination)
		if err != nil {
			logrus.WithField("error", err.Error()).Error("Failed to list trains")
			respond(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if len(list) == 0 {
			respond(c, http.StatusNotFound, "No trains found")
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, list, ttl) // Cache the listing
		c.JSON(http.StatusOK, list)
	}
}
