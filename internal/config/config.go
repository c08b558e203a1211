package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	APIKey     string // Static service credential for admin-only mutations
	RedisAddr  string // Redis server address, empty disables caching
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	AMQPURL    string // RabbitMQ URL, empty disables booking events
	IsProd     bool   // Is production environment

	BookingMaxAttempts int           // Attempts per reservation on deadlock or lock wait timeout
	BookingTxTimeout   time.Duration // Upper bound for one reservation unit of work
	TrainsCacheTTL     time.Duration // Lifetime of cached train listings
	BookingsCacheTTL   time.Duration // Lifetime of a user's cached booking list
	AdminKeyInLogin    bool          // Return the service credential to admins on login
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    envStr("APP_PORT", "3000"),     // Application port
		DBUser:     os.Getenv("DB_USER"),           // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:     envStr("DB_HOST", "127.0.0.1"), // Database host
		DBPort:     envStr("DB_PORT", "3306"),      // Database port
		DBName:     os.Getenv("DB_NAME"),           // Database name
		JWTSecret:  os.Getenv("JWT_SECRET"),        // JWT secret key
		APIKey:     os.Getenv("API_KEY"),           // Service credential
		RedisAddr:  os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:    redisDB,                        // Redis database number
		AMQPURL:    os.Getenv("RABBITMQ_URL"),      // RabbitMQ URL
		IsProd:     os.Getenv("IS_PROD") == "true", // Is production environment

		BookingMaxAttempts: envInt("BOOKING_MAX_ATTEMPTS", 3),           // Retry budget for transient lock failures
		BookingTxTimeout:   envDur("BOOKING_TX_TIMEOUT", 5*time.Second), // Unit of work deadline
		TrainsCacheTTL:     envDur("TRAINS_CACHE_TTL", 30*time.Second),  // Listing cache lifetime
		BookingsCacheTTL:   envDur("BOOKINGS_CACHE_TTL", time.Minute),   // Booking list cache lifetime
		AdminKeyInLogin:    os.Getenv("ADMIN_KEY_IN_LOGIN") != "false",  // Defaults to on
	}
}

// DSN builds the MySQL Data Source Name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
		return dur
	}
	return d
}
