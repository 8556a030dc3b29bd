package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/nextstop/booking-backend/internal/config"
)

// DB interface defines database operations
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	PingContext(ctx context.Context) error
	Close() error
}

// PostgresDB implements the DB interface using sqlx
type PostgresDB struct {
	*sqlx.DB
}

// NewConnection creates a new database connection
func NewConnection(cfg config.DatabaseConfig) (*PostgresDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	// Connection poolers (Supavisor, pgbouncer) reject the extended protocol
	// for some statements.
	connectionURL := cfg.URL
	if !strings.Contains(connectionURL, "prefer_simple_protocol") && cfg.SimpleProtocol {
		separator := "?"
		if strings.Contains(connectionURL, "?") {
			separator = "&"
		}
		connectionURL = connectionURL + separator + "prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

// schema is applied on startup. Catalog tables are owned by the catalog
// service and only created here so a fresh database can boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_km DOUBLE PRECISION,
		duration_minutes INTEGER,
		base_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS buses (
		id TEXT PRIMARY KEY,
		bus_number TEXT NOT NULL UNIQUE,
		route_id TEXT NOT NULL REFERENCES routes(id),
		bus_type TEXT NOT NULL DEFAULT 'normal',
		seat_rows INTEGER NOT NULL CHECK (seat_rows > 0),
		seat_columns INTEGER NOT NULL CHECK (seat_columns > 0),
		departure_time TEXT NOT NULL DEFAULT '00:00',
		operating_days TEXT[] NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS seat_inventories (
		bus_id TEXT NOT NULL,
		travel_date DATE NOT NULL,
		seat_rows INTEGER NOT NULL,
		seat_columns INTEGER NOT NULL,
		total_seats INTEGER NOT NULL,
		available_seats TEXT[] NOT NULL,
		booked_seats JSONB NOT NULL DEFAULT '{}'::jsonb,
		available_count INTEGER NOT NULL,
		version BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (bus_id, travel_date)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL,
		bus_id TEXT NOT NULL,
		route_id TEXT NOT NULL,
		journey_date DATE NOT NULL,
		departs_at TIMESTAMPTZ NOT NULL,
		boarding_point TEXT NOT NULL,
		seat_numbers TEXT[] NOT NULL,
		passenger_details JSONB NOT NULL,
		total_fare DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		cancelled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_username ON bookings (username, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_departs_at ON bookings (departs_at) WHERE status = 'Confirmed'`,
	`CREATE TABLE IF NOT EXISTS booking_reminders (
		booking_id UUID PRIMARY KEY,
		reminded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS booking_audit_events (
		id UUID PRIMARY KEY,
		booking_id TEXT,
		username TEXT NOT NULL,
		action TEXT NOT NULL,
		ip_address TEXT,
		user_agent TEXT,
		device_info JSONB,
		details JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables this service needs if they do not exist
func EnsureSchema(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
