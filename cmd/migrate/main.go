package main

import (
	"train_booking/internal/config" // Custom import path (Config)
	"train_booking/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg.DSN())      // Create users, trains and bookings tables
}
