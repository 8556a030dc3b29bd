package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nextstop/booking-backend/internal/domain"
	"github.com/nextstop/booking-backend/internal/models"
)

// ErrVersionConflict is returned when a compare-and-swap write finds that the
// stored row changed since it was read
var ErrVersionConflict = errors.New("version conflict")

// ErrInvariantViolation is returned when a write would persist an inconsistent
// seat partition
var ErrInvariantViolation = errors.New("seat inventory invariant violation")

type bookedSeatsColumn = models.JSONB[map[string]models.BookedSeat]

// seatInventoryRow is the seat_inventories column layout
type seatInventoryRow struct {
	BusID          string               `db:"bus_id"`
	TravelDate     time.Time            `db:"travel_date"`
	Rows           int                  `db:"seat_rows"`
	Columns        int                  `db:"seat_columns"`
	TotalSeats     int                  `db:"total_seats"`
	AvailableSeats models.SeatCodeArray `db:"available_seats"`
	BookedSeats    bookedSeatsColumn    `db:"booked_seats"`
	AvailableCount int                  `db:"available_count"`
	Version        int64                `db:"version"`
	CreatedAt      time.Time            `db:"created_at"`
	UpdatedAt      time.Time            `db:"updated_at"`
}

func (r *seatInventoryRow) toModel() *models.SeatInventory {
	booked := r.BookedSeats.Data
	if booked == nil {
		booked = make(map[string]models.BookedSeat)
	}
	available := []models.SeatCode(r.AvailableSeats)
	if available == nil {
		available = []models.SeatCode{}
	}
	return &models.SeatInventory{
		BusID:          r.BusID,
		TravelDate:     r.TravelDate.Format(models.DateLayout),
		Grid:           models.SeatGrid{Rows: r.Rows, Columns: r.Columns},
		TotalSeats:     r.TotalSeats,
		AvailableSeats: available,
		BookedSeats:    booked,
		AvailableCount: r.AvailableCount,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

const seatInventoryColumns = `bus_id, travel_date, seat_rows, seat_columns, total_seats,
	available_seats, booked_seats, available_count, version, created_at, updated_at`

// SeatInventoryRepository handles seat_inventories rows
type SeatInventoryRepository struct {
	db DB
}

// NewSeatInventoryRepository creates a new SeatInventoryRepository
func NewSeatInventoryRepository(db DB) *SeatInventoryRepository {
	return &SeatInventoryRepository{db: db}
}

// Get returns the inventory for a bus and travel date
func (r *SeatInventoryRepository) Get(ctx context.Context, busID, travelDate string) (*models.SeatInventory, error) {
	query := `SELECT ` + seatInventoryColumns + `
		FROM seat_inventories
		WHERE bus_id = $1 AND travel_date = $2`

	var row seatInventoryRow
	err := r.db.GetContext(ctx, &row, query, busID, travelDate)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError{Resource: "seat inventory", ID: models.InventoryKey(busID, travelDate)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seat inventory: %w", err)
	}

	return row.toModel(), nil
}

// GetOrCreate returns the inventory, seeding it with every grid seat available
// if none exists. Concurrent creators race on the primary key; the loser's
// insert is a no-op.
func (r *SeatInventoryRepository) GetOrCreate(ctx context.Context, busID, travelDate string, grid models.SeatGrid) (*models.SeatInventory, error) {
	seed := models.NewSeatInventory(busID, travelDate, grid)

	query := `
		INSERT INTO seat_inventories (
			bus_id, travel_date, seat_rows, seat_columns, total_seats,
			available_seats, booked_seats, available_count, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, '{}'::jsonb, $7, 0, NOW(), NOW())
		ON CONFLICT (bus_id, travel_date) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		busID,
		travelDate,
		grid.Rows,
		grid.Columns,
		seed.TotalSeats,
		models.SeatCodeArray(seed.AvailableSeats),
		seed.AvailableCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create seat inventory: %w", err)
	}

	return r.Get(ctx, busID, travelDate)
}

// updateTx writes the inventory if its stored version still equals
// expectedVersion, bumping the version by one
func (r *SeatInventoryRepository) updateTx(ctx context.Context, tx *sqlx.Tx, inv *models.SeatInventory, expectedVersion int64) error {
	if err := inv.CheckInvariants(); err != nil {
		return wrapInvariant(err)
	}

	query := `
		UPDATE seat_inventories
		SET available_seats = $1,
			booked_seats = $2,
			available_count = $3,
			version = version + 1,
			updated_at = $4
		WHERE bus_id = $5 AND travel_date = $6 AND version = $7`

	result, err := tx.ExecContext(ctx, query,
		models.SeatCodeArray(inv.AvailableSeats),
		bookedSeatsColumn{Data: inv.BookedSeats},
		inv.AvailableCount,
		inv.UpdatedAt,
		inv.BusID,
		inv.TravelDate,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update seat inventory: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	return nil
}

func wrapInvariant(err error) error {
	return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
}
