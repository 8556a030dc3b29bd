package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/nextstop/booking-backend/internal/domain"
	"github.com/nextstop/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingColumnNames = []string{
	"id", "username", "bus_id", "route_id", "journey_date", "departs_at", "boarding_point",
	"seat_numbers", "passenger_details", "total_fare", "status", "cancelled_at", "created_at", "updated_at",
}

func addBookingRow(rows *sqlmock.Rows, id, status string, cancelledAt interface{}) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, "alice", "bus-1", "route-1",
		time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 10, 8, 30, 0, 0, time.UTC),
		"Colombo Fort",
		[]byte(`{1-1,1-2}`),
		[]byte(`[{"seat_number":"1-1","name":"Nimal","age":40,"gender":"Male","phone":"+94771234567"},`+
			`{"seat_number":"1-2","name":"Kamala","age":38,"gender":"Female","phone":"+94771234568"}]`),
		2400.0, status, cancelledAt, now, now,
	)
}

func TestBookingRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id = \$1`).
			WithArgs("b1").
			WillReturnRows(addBookingRow(sqlmock.NewRows(bookingColumnNames), "b1", "Confirmed", nil))

		b, err := repo.GetByID(context.Background(), "b1")
		require.NoError(t, err)
		assert.Equal(t, "2026-01-10", b.JourneyDate)
		assert.Equal(t, models.BookingStatusConfirmed, b.Status)
		assert.Nil(t, b.CancelledAt)
		assert.NoError(t, b.CheckAlignment())
		assert.Equal(t, "Kamala", b.PassengerDetails[1].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cancelled", func(t *testing.T) {
		at := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`SELECT .+ FROM bookings`).
			WithArgs("b2").
			WillReturnRows(addBookingRow(sqlmock.NewRows(bookingColumnNames), "b2", "Cancelled", at))

		b, err := repo.GetByID(context.Background(), "b2")
		require.NoError(t, err)
		require.NotNil(t, b.CancelledAt)
		assert.Equal(t, at, *b.CancelledAt)
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM bookings`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(bookingColumnNames))

		_, err := repo.GetByID(context.Background(), "missing")
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestBookingRepository_ListByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	rows := sqlmock.NewRows(bookingColumnNames)
	addBookingRow(rows, "b2", "Confirmed", nil)
	addBookingRow(rows, "b1", "Confirmed", nil)

	mock.ExpectQuery(`SELECT .+ FROM bookings\s+WHERE username = \$1\s+ORDER BY created_at DESC`).
		WithArgs("alice").
		WillReturnRows(rows)

	bookings, err := repo.ListByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "b2", bookings[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListConfirmedDepartingBetween(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	from := time.Date(2026, 1, 10, 7, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Hour)

	mock.ExpectQuery(`SELECT .+ FROM bookings\s+WHERE status = \$1 AND departs_at BETWEEN \$2 AND \$3`).
		WithArgs("Confirmed", from, to).
		WillReturnRows(sqlmock.NewRows(bookingColumnNames))

	bookings, err := repo.ListConfirmedDepartingBetween(context.Background(), from, to)
	require.NoError(t, err)
	assert.Empty(t, bookings)
	assert.NoError(t, mock.ExpectationsWereMet())
}
