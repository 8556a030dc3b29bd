// Package events publishes booking lifecycle events to the message broker.
// Publishing happens after the booking is committed and never affects the
// outcome of the request.
package events

import (
	"time"

	"github.com/nextstop/booking-backend/internal/models"
)

const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

// BookingEvent is the payload of both booking queues. It carries enough for
// downstream consumers (notifications, analytics) to act without reading the
// ledger.
type BookingEvent struct {
	BookingID     string    `json:"booking_id"`
	Username      string    `json:"username"`
	BusID         string    `json:"bus_id"`
	RouteID       string    `json:"route_id"`
	JourneyDate   string    `json:"journey_date"`
	DepartsAt     time.Time `json:"departs_at"`
	BoardingPoint string    `json:"boarding_point"`
	Seats         []string  `json:"seats"`
	TotalFare     float64   `json:"total_fare"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewBookingEvent builds the event for a booking at its current status
func NewBookingEvent(b *models.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		BookingID:     b.ID,
		Username:      b.Username,
		BusID:         b.BusID,
		RouteID:       b.RouteID,
		JourneyDate:   b.JourneyDate,
		DepartsAt:     b.DepartsAt,
		BoardingPoint: b.BoardingPoint,
		Seats:         models.SeatCodeStrings(b.SeatNumbers),
		TotalFare:     b.TotalFare,
		Status:        string(b.Status),
		OccurredAt:    at.UTC(),
	}
}
