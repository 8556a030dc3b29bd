package ticket

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	data := Data{
		BookingID:     "3f1c2a9e-0000-4000-8000-000000000001",
		Username:      "alice",
		Status:        "Confirmed",
		BusNumber:     "NB-1234",
		RouteFrom:     "Colombo",
		RouteTo:       "Kandy",
		JourneyDate:   "2026-11-02",
		DepartsAt:     time.Date(2026, 11, 2, 8, 30, 0, 0, time.UTC),
		BoardingPoint: "Pettah",
		TotalFare:     1500,
		Passengers: []Passenger{
			{Seat: "1-1", Name: "Alice", Age: 30, Gender: "Female"},
			{Seat: "1-2", Name: "Bob", Age: 32, Gender: "Male"},
		},
	}

	pdf, filename, err := Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Equal(t, "ETICKET_2026-11-02_3f1c2a9e-0000-4000-8000-000000000001.pdf", filename)
}

func TestRender_Cancelled(t *testing.T) {
	at := time.Date(2026, 10, 30, 12, 0, 0, 0, time.UTC)
	pdf, _, err := Render(Data{BookingID: "b1", Status: "Cancelled", CancelledAt: &at})
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
}

func TestSafeFilenamePart(t *testing.T) {
	assert.Equal(t, "a_b_c", safeFilenamePart("a/b c"))
	assert.Equal(t, "2026-11-02", safeFilenamePart("2026-11-02"))
}
