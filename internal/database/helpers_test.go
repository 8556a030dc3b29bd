package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/nextstop/booking-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return &PostgresDB{DB: sqlx.NewDb(mockDB, "sqlmock")}, mock
}

func testPassengers(seats ...string) []models.Passenger {
	out := make([]models.Passenger, len(seats))
	for i, s := range seats {
		code, _ := models.ParseSeatCode(s)
		out[i] = models.Passenger{SeatNumber: code, Name: "Passenger " + s, Age: 30, Gender: models.GenderFemale, Phone: "+94771234567"}
	}
	return out
}

func testBooking(id string, seats ...string) *models.Booking {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	passengers := testPassengers(seats...)
	codes := make([]models.SeatCode, len(passengers))
	for i, p := range passengers {
		codes[i] = p.SeatNumber
	}
	return &models.Booking{
		ID:               id,
		Username:         "alice",
		BusID:            "bus-1",
		RouteID:          "route-1",
		JourneyDate:      "2026-01-10",
		DepartsAt:        time.Date(2026, 1, 10, 8, 30, 0, 0, time.UTC),
		BoardingPoint:    "Colombo Fort",
		SeatNumbers:      codes,
		PassengerDetails: passengers,
		TotalFare:        1500,
		Status:           models.BookingStatusConfirmed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
