package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nextstop/booking-backend/internal/domain"
	"github.com/nextstop/booking-backend/internal/models"
)

type passengersColumn = models.JSONB[[]models.Passenger]

// bookingRow is the bookings column layout
type bookingRow struct {
	ID               string               `db:"id"`
	Username         string               `db:"username"`
	BusID            string               `db:"bus_id"`
	RouteID          string               `db:"route_id"`
	JourneyDate      time.Time            `db:"journey_date"`
	DepartsAt        time.Time            `db:"departs_at"`
	BoardingPoint    string               `db:"boarding_point"`
	SeatNumbers      models.SeatCodeArray `db:"seat_numbers"`
	PassengerDetails passengersColumn     `db:"passenger_details"`
	TotalFare        float64              `db:"total_fare"`
	Status           string               `db:"status"`
	CancelledAt      sql.NullTime         `db:"cancelled_at"`
	CreatedAt        time.Time            `db:"created_at"`
	UpdatedAt        time.Time            `db:"updated_at"`
}

func (r *bookingRow) toModel() *models.Booking {
	b := &models.Booking{
		ID:               r.ID,
		Username:         r.Username,
		BusID:            r.BusID,
		RouteID:          r.RouteID,
		JourneyDate:      r.JourneyDate.Format(models.DateLayout),
		DepartsAt:        r.DepartsAt,
		BoardingPoint:    r.BoardingPoint,
		SeatNumbers:      []models.SeatCode(r.SeatNumbers),
		PassengerDetails: r.PassengerDetails.Data,
		TotalFare:        r.TotalFare,
		Status:           models.BookingStatus(r.Status),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.CancelledAt.Valid {
		at := r.CancelledAt.Time
		b.CancelledAt = &at
	}
	return b
}

const bookingColumns = `id, username, bus_id, route_id, journey_date, departs_at, boarding_point,
	seat_numbers, passenger_details, total_fare, status, cancelled_at, created_at, updated_at`

// BookingRepository handles database operations for the bookings ledger
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var row bookingRow
	err := r.db.GetContext(ctx, &row, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError{Resource: "booking", ID: bookingID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return row.toModel(), nil
}

// ListByUsername retrieves all bookings of a user, newest first
func (r *BookingRepository) ListByUsername(ctx context.Context, username string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE username = $1
		ORDER BY created_at DESC`

	return r.selectBookings(ctx, query, username)
}

// ListConfirmedDepartingBetween retrieves confirmed bookings whose departure
// falls in [from, to]
func (r *BookingRepository) ListConfirmedDepartingBetween(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = $1 AND departs_at BETWEEN $2 AND $3
		ORDER BY departs_at ASC`

	return r.selectBookings(ctx, query, string(models.BookingStatusConfirmed), from, to)
}

func (r *BookingRepository) selectBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]*models.Booking, len(rows))
	for i := range rows {
		bookings[i] = rows[i].toModel()
	}
	return bookings, nil
}

// insertTx appends a booking to the ledger inside tx
func (r *BookingRepository) insertTx(ctx context.Context, tx *sqlx.Tx, b *models.Booking) error {
	if err := b.CheckAlignment(); err != nil {
		return wrapInvariant(err)
	}

	query := `
		INSERT INTO bookings (
			id, username, bus_id, route_id, journey_date, departs_at, boarding_point,
			seat_numbers, passenger_details, total_fare, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.ExecContext(ctx, query,
		b.ID, b.Username, b.BusID, b.RouteID, b.JourneyDate, b.DepartsAt, b.BoardingPoint,
		models.SeatCodeArray(b.SeatNumbers),
		passengersColumn{Data: b.PassengerDetails},
		b.TotalFare, string(b.Status), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	return nil
}

// cancelTx marks a confirmed booking as cancelled inside tx. A booking that is
// no longer confirmed is reported as ErrVersionConflict.
func (r *BookingRepository) cancelTx(ctx context.Context, tx *sqlx.Tx, b *models.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, cancelled_at = $2, updated_at = $3
		WHERE id = $4 AND status = $5`

	result, err := tx.ExecContext(ctx, query,
		string(models.BookingStatusCancelled),
		b.CancelledAt,
		b.UpdatedAt,
		b.ID,
		string(models.BookingStatusConfirmed),
	)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
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
