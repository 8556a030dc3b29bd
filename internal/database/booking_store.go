package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nextstop/booking-backend/internal/models"
)

// PostgresStore is the Postgres-backed seat inventory store and booking
// ledger. Inventory and ledger writes for one booking commit in a single
// transaction.
type PostgresStore struct {
	db          DB
	inventories *SeatInventoryRepository
	bookings    *BookingRepository
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{
		db:          db,
		inventories: NewSeatInventoryRepository(db),
		bookings:    NewBookingRepository(db),
	}
}

func (s *PostgresStore) GetOrCreateInventory(ctx context.Context, busID, travelDate string, grid models.SeatGrid) (*models.SeatInventory, error) {
	return s.inventories.GetOrCreate(ctx, busID, travelDate, grid)
}

func (s *PostgresStore) GetInventory(ctx context.Context, busID, travelDate string) (*models.SeatInventory, error) {
	return s.inventories.Get(ctx, busID, travelDate)
}

func (s *PostgresStore) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

func (s *PostgresStore) ListBookingsByUsername(ctx context.Context, username string) ([]*models.Booking, error) {
	return s.bookings.ListByUsername(ctx, username)
}

func (s *PostgresStore) ListConfirmedDepartingBetween(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	return s.bookings.ListConfirmedDepartingBetween(ctx, from, to)
}

// CommitAllocation writes the mutated inventory (compare-and-swap on
// expectedVersion) and appends the booking in one transaction
func (s *PostgresStore) CommitAllocation(ctx context.Context, inv *models.SeatInventory, expectedVersion int64, booking *models.Booking) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.inventories.updateTx(ctx, tx, inv, expectedVersion); err != nil {
		return err
	}
	if err := s.bookings.insertTx(ctx, tx, booking); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit allocation: %w", err)
	}

	inv.Version = expectedVersion + 1
	return nil
}

// CommitCancellation writes the released inventory (compare-and-swap on
// expectedVersion) and marks the booking cancelled in one transaction
func (s *PostgresStore) CommitCancellation(ctx context.Context, inv *models.SeatInventory, expectedVersion int64, booking *models.Booking) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.inventories.updateTx(ctx, tx, inv, expectedVersion); err != nil {
		return err
	}
	if err := s.bookings.cancelTx(ctx, tx, booking); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	inv.Version = expectedVersion + 1
	return nil
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
