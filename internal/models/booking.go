package models

import (
	"fmt"
	"time"

	"github.com/nextstop/booking-backend/internal/domain"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	// BookingStatusPending is transient and never persisted
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusCancelled BookingStatus = "Cancelled"
)

// Gender of a passenger
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// IsValid reports whether g is one of the accepted values
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Passenger is one traveller on one seat
type Passenger struct {
	SeatNumber SeatCode `json:"seat_number"`
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Gender     Gender   `json:"gender"`
	Phone      string   `json:"phone"`
}

// Booking is an entry in the booking ledger. SeatNumbers and PassengerDetails
// are index aligned.
type Booking struct {
	ID               string        `json:"id"`
	Username         string        `json:"username"`
	BusID            string        `json:"bus_id"`
	RouteID          string        `json:"route_id"`
	JourneyDate      string        `json:"journey_date"`
	DepartsAt        time.Time     `json:"departs_at"`
	BoardingPoint    string        `json:"boarding_point"`
	SeatNumbers      []SeatCode    `json:"seat_numbers"`
	PassengerDetails []Passenger   `json:"passenger_details"`
	TotalFare        float64       `json:"total_fare"`
	Status           BookingStatus `json:"status"`
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// CanBeCancelled checks if the booking is still confirmed
func (b *Booking) CanBeCancelled() bool {
	return b.Status == BookingStatusConfirmed
}

// CheckCancellable reports why the booking cannot be cancelled, or nil
func (b *Booking) CheckCancellable() error {
	if b.Status == BookingStatusCancelled {
		return domain.ConflictError{Resource: "booking", Msg: "booking already cancelled"}
	}
	if !b.CanBeCancelled() {
		return domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking in status %s cannot be cancelled", b.Status)}
	}
	return nil
}

// Cancel moves a confirmed booking to its terminal state
func (b *Booking) Cancel(now time.Time) error {
	if err := b.CheckCancellable(); err != nil {
		return err
	}

	b.Status = BookingStatusCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now

	return nil
}

// CheckAlignment verifies that every passenger sits on the seat at the same index
func (b *Booking) CheckAlignment() error {
	if len(b.SeatNumbers) != len(b.PassengerDetails) {
		return fmt.Errorf("booking %s has %d seats but %d passengers", b.ID, len(b.SeatNumbers), len(b.PassengerDetails))
	}
	for i, seat := range b.SeatNumbers {
		if b.PassengerDetails[i].SeatNumber != seat {
			return fmt.Errorf("booking %s passenger %d is on seat %s, expected %s", b.ID, i, b.PassengerDetails[i].SeatNumber, seat)
		}
	}
	return nil
}

// Clone returns a deep copy
func (b *Booking) Clone() *Booking {
	out := *b
	out.SeatNumbers = append([]SeatCode(nil), b.SeatNumbers...)
	out.PassengerDetails = append([]Passenger(nil), b.PassengerDetails...)
	if b.CancelledAt != nil {
		at := *b.CancelledAt
		out.CancelledAt = &at
	}
	return &out
}

// PassengerRequest is one passenger entry of a booking request
type PassengerRequest struct {
	SeatNumber string `json:"seat_number"`
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Gender     string `json:"gender"`
	Phone      string `json:"phone"`
}

// CreateBookingRequest is the body of POST /api/v1/bookings
type CreateBookingRequest struct {
	BusID            string             `json:"bus_id" binding:"required"`
	RouteID          string             `json:"route_id" binding:"required"`
	SeatNumbers      SeatNumberList     `json:"seat_numbers"`
	JourneyDate      string             `json:"journey_date" binding:"required"`
	BoardingPoint    string             `json:"boarding_point"`
	TotalFare        float64            `json:"total_fare"`
	PassengerDetails []PassengerRequest `json:"passenger_details"`
}

// Passengers converts the request entries into passengers, parsing each seat code
func (r *CreateBookingRequest) Passengers() ([]Passenger, error) {
	out := make([]Passenger, len(r.PassengerDetails))
	for i, p := range r.PassengerDetails {
		seat, err := ParseSeatCode(p.SeatNumber)
		if err != nil {
			return nil, domain.ValidationError{
				Field: fmt.Sprintf("passenger_details[%d].seat_number", i),
				Msg:   err.Error(),
			}
		}
		out[i] = Passenger{
			SeatNumber: seat,
			Name:       p.Name,
			Age:        p.Age,
			Gender:     Gender(p.Gender),
			Phone:      p.Phone,
		}
	}
	return out, nil
}

// BookingListResponse wraps a user's bookings
type BookingListResponse struct {
	Bookings []*Booking `json:"bookings"`
	Count    int        `json:"count"`
}
