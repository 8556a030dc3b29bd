package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Booking  BookingConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Reminder ReminderConfig
	SMS      SMSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string
	Environment  string // development, staging, production
	LogLevel     string // debug, info, warn, error
	StoreBackend string // postgres or memory
	CatalogSeed  string // YAML catalog file for the memory backend
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	SimpleProtocol     bool
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// BookingConfig tunes seat allocation
type BookingConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
	LockBackend  string // local or redis
	LockTTL      time.Duration
	LockWait     time.Duration
	Timezone     string // zone of journey dates and departure times, empty for local
}

// RedisConfig holds the connection used by the distributed seat lock
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig holds the broker used for booking events. An empty URL
// disables publishing.
type RabbitMQConfig struct {
	URL string
}

// ReminderConfig schedules journey reminders
type ReminderConfig struct {
	Enabled  bool
	Schedule string // cron spec with seconds
	Window   time.Duration
}

// SMSConfig holds SMS gateway configuration
type SMSConfig struct {
	Mode   string // "dev" logs messages, "production" sends through Dialog
	ESMSQK string // Dialog URL message key
	Mask   string // Dialog SMS mask/source address
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			StoreBackend: getEnv("STORE_BACKEND", "postgres"),
			CatalogSeed:  getEnv("CATALOG_SEED_FILE", ""),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			SimpleProtocol:     getEnvAsBool("DATABASE_SIMPLE_PROTOCOL", false),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			Issuer:            getEnv("JWT_ISSUER", "nextstop"),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Booking: BookingConfig{
			MaxAttempts:  getEnvAsInt("BOOKING_MAX_ATTEMPTS", 3),
			RetryBackoff: getEnvAsDuration("BOOKING_RETRY_BACKOFF_MS", 25*time.Millisecond, time.Millisecond),
			LockBackend:  getEnv("SEAT_LOCK_BACKEND", "local"),
			LockTTL:      getEnvAsDuration("SEAT_LOCK_TTL_MS", 5*time.Second, time.Millisecond),
			LockWait:     getEnvAsDuration("SEAT_LOCK_WAIT_MS", 3*time.Second, time.Millisecond),
			Timezone:     getEnv("BOOKING_TIMEZONE", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL: getEnv("RABBITMQ_URL", ""),
		},
		Reminder: ReminderConfig{
			Enabled:  getEnvAsBool("REMINDER_ENABLED", true),
			Schedule: getEnv("REMINDER_CRON", "0 */15 * * * *"),
			Window:   getEnvAsDuration("REMINDER_WINDOW_MINUTES", 2*time.Hour, time.Minute),
		},
		SMS: SMSConfig{
			Mode:   getEnv("SMS_MODE", "dev"),
			ESMSQK: getEnv("DIALOG_SMS_ESMSQK", ""),
			Mask:   getEnv("DIALOG_SMS_MASK", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Server.StoreBackend {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid STORE_BACKEND: %s (must be 'postgres' or 'memory')", c.Server.StoreBackend)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Booking.MaxAttempts < 1 {
		return fmt.Errorf("BOOKING_MAX_ATTEMPTS must be at least 1")
	}

	switch c.Booking.LockBackend {
	case "local":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when SEAT_LOCK_BACKEND is redis")
		}
	default:
		return fmt.Errorf("invalid SEAT_LOCK_BACKEND: %s (must be 'local' or 'redis')", c.Booking.LockBackend)
	}

	if c.Booking.Timezone != "" {
		if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
			return fmt.Errorf("invalid BOOKING_TIMEZONE: %w", err)
		}
	}

	if c.SMS.Mode == "production" && c.SMS.ESMSQK == "" {
		return fmt.Errorf("DIALOG_SMS_ESMSQK is required in production SMS mode")
	}

	return nil
}

// Location returns the booking time zone
func (c *BookingConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration reads an integer count of unit
func getEnvAsDuration(key string, defaultValue, unit time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 0 {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return time.Duration(value) * unit
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
