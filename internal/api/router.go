package api

import (
	"net/http"                          // HTTP status codes
	"train_booking/internal/booking"    // Booking engine and queries
	"train_booking/internal/config"     // Application configuration
	"train_booking/internal/events"     // Booking events
	"train_booking/internal/ledger"     // Inventory ledger
	"train_booking/internal/middleware" // Access gate

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// RegisterRoutes wires every endpoint onto r. rdb may be nil to run without a
// cache; pub may be events.NopPublisher{}.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, db *gorm.DB, rdb *redis.Client, pub events.Publisher) {
	trains := ledger.New(db) // Inventory ledger
	engine := booking.NewEngine(db, booking.Options{
		MaxAttempts: cfg.BookingMaxAttempts, // Retry budget for lock conflicts
		TxTimeout:   cfg.BookingTxTimeout,   // Unit of work deadline
	})
	query := booking.NewQuery(db) // Booking reads

	identity := middleware.JWTAuthMiddleware(cfg.JWTSecret) // requireIdentity
	serviceKey := middleware.APIKeyMiddleware(cfg.APIKey)   // requireServiceCredential

	// Health check
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Auth routes
	r.POST("/register", RegisterHandler(db))                                           // Registration endpoint
	r.POST("/login", LoginHandler(db, cfg.JWTSecret, cfg.APIKey, cfg.AdminKeyInLogin)) // Login endpoint

	// Catalog routes
	r.POST("/addtrain", identity, serviceKey, AddTrainHandler(trains, rdb)) // Admin train creation
	r.GET("/trains", ListTrainsHandler(trains, rdb, cfg.TrainsCacheTTL))    // Route listing

	// Booking routes (protected by JWT)
	r.POST("/book", identity, BookHandler(engine, trains, rdb, pub))                    // Reserve seats
	r.GET("/bookings", identity, ListBookingsHandler(query, rdb, cfg.BookingsCacheTTL)) // Caller's bookings
	r.GET("/bookings/:bookingId", identity, GetBookingHandler(query, rdb))              // One booking
}
