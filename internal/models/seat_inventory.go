package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/nextstop/booking-backend/internal/domain"
)

// DateLayout is the wire and storage format of travel dates
const DateLayout = "2006-01-02"

// BookedSeat is the back-reference from a held seat to its booking
type BookedSeat struct {
	BookingID     string `json:"booking_id"`
	PassengerName string `json:"passenger_name"`
}

// SeatInventory is the seat partition of one bus on one travel date.
// AvailableSeats is kept sorted and duplicate free; AvailableCount is kept
// equal to len(AvailableSeats) by every mutator.
type SeatInventory struct {
	BusID          string                `json:"bus_id"`
	TravelDate     string                `json:"travel_date"`
	Grid           SeatGrid              `json:"grid"`
	TotalSeats     int                   `json:"total_seats"`
	AvailableSeats []SeatCode            `json:"available_seats"`
	BookedSeats    map[string]BookedSeat `json:"booked_seats"`
	AvailableCount int                   `json:"available_count"`
	Version        int64                 `json:"version"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// NewSeatInventory seeds an inventory with every grid seat available
func NewSeatInventory(busID, travelDate string, grid SeatGrid) *SeatInventory {
	seats := grid.Seats()
	now := time.Now()
	return &SeatInventory{
		BusID:          busID,
		TravelDate:     travelDate,
		Grid:           grid,
		TotalSeats:     grid.Capacity(),
		AvailableSeats: seats,
		BookedSeats:    make(map[string]BookedSeat),
		AvailableCount: len(seats),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Key returns the mutual exclusion key of this inventory
func (inv *SeatInventory) Key() string {
	return InventoryKey(inv.BusID, inv.TravelDate)
}

// InventoryKey builds the (bus, date) key used for locking
func InventoryKey(busID, travelDate string) string {
	return busID + "|" + travelDate
}

// IsAvailable reports whether the seat is currently in the available set
func (inv *SeatInventory) IsAvailable(code SeatCode) bool {
	_, found := inv.availableIndex(code)
	return found
}

// availableIndex binary searches the sorted available list
func (inv *SeatInventory) availableIndex(code SeatCode) (int, bool) {
	i := sort.Search(len(inv.AvailableSeats), func(i int) bool {
		return !inv.AvailableSeats[i].Less(code)
	})
	return i, i < len(inv.AvailableSeats) && inv.AvailableSeats[i] == code
}

// UnavailableSeats returns the requested seats that are not in the available set
func (inv *SeatInventory) UnavailableSeats(codes []SeatCode) []SeatCode {
	var missing []SeatCode
	for _, code := range codes {
		if !inv.IsAvailable(code) {
			missing = append(missing, code)
		}
	}
	return missing
}

// Allocate moves the passengers' seats from available to booked, referencing
// bookingID. Either every seat moves or nothing changes.
func (inv *SeatInventory) Allocate(bookingID string, passengers []Passenger) error {
	seats := make([]SeatCode, len(passengers))
	unique := make(map[SeatCode]bool, len(passengers))
	for i, p := range passengers {
		if unique[p.SeatNumber] {
			return domain.ValidationError{Field: "seat_numbers", Msg: fmt.Sprintf("seat %s is requested more than once", p.SeatNumber)}
		}
		unique[p.SeatNumber] = true
		if !inv.Grid.Contains(p.SeatNumber) {
			return domain.ValidationError{
				Field: "seat_numbers",
				Msg:   fmt.Sprintf("seat %s is outside the %dx%d layout", p.SeatNumber, inv.Grid.Rows, inv.Grid.Columns),
			}
		}
		seats[i] = p.SeatNumber
	}

	if missing := inv.UnavailableSeats(seats); len(missing) > 0 {
		return domain.NewSeatConflict(SeatCodeStrings(missing))
	}

	for _, p := range passengers {
		inv.BookedSeats[p.SeatNumber.String()] = BookedSeat{
			BookingID:     bookingID,
			PassengerName: p.Name,
		}
	}

	kept := make([]SeatCode, 0, len(inv.AvailableSeats)-len(seats))
	for _, code := range inv.AvailableSeats {
		if !unique[code] {
			kept = append(kept, code)
		}
	}
	inv.AvailableSeats = kept
	inv.AvailableCount -= len(seats)
	inv.UpdatedAt = time.Now()

	return nil
}

// Release returns the booking's seats to the available set and reports how
// many seats were restored. Seats booked under a different booking are left
// alone. Insertion is a set union, so a seat already listed as available is
// never duplicated.
func (inv *SeatInventory) Release(bookingID string, seats []SeatCode) int {
	SortSeatCodes(inv.AvailableSeats)

	restored := 0
	for _, code := range seats {
		key := code.String()
		if held, ok := inv.BookedSeats[key]; ok {
			if held.BookingID != bookingID {
				continue
			}
			delete(inv.BookedSeats, key)
		}

		if !inv.Grid.Contains(code) {
			continue
		}
		i, found := inv.availableIndex(code)
		if found {
			continue
		}
		inv.AvailableSeats = append(inv.AvailableSeats, SeatCode{})
		copy(inv.AvailableSeats[i+1:], inv.AvailableSeats[i:])
		inv.AvailableSeats[i] = code
		restored++
	}

	inv.AvailableCount += restored
	SortSeatCodes(inv.AvailableSeats)
	inv.UpdatedAt = time.Now()

	return restored
}

// Clone returns a deep copy so a mutation can be attempted without touching the original
func (inv *SeatInventory) Clone() *SeatInventory {
	out := *inv
	out.AvailableSeats = append([]SeatCode(nil), inv.AvailableSeats...)
	out.BookedSeats = make(map[string]BookedSeat, len(inv.BookedSeats))
	for k, v := range inv.BookedSeats {
		out.BookedSeats[k] = v
	}
	return &out
}

// CheckInvariants verifies the seat partition: available and booked are
// disjoint, together they cover the grid exactly, every code is in the grid
// and the cached count matches.
func (inv *SeatInventory) CheckInvariants() error {
	if inv.TotalSeats != inv.Grid.Capacity() {
		return fmt.Errorf("total seats %d does not match %dx%d grid", inv.TotalSeats, inv.Grid.Rows, inv.Grid.Columns)
	}
	if inv.AvailableCount != len(inv.AvailableSeats) {
		return fmt.Errorf("available count %d does not match %d available seats", inv.AvailableCount, len(inv.AvailableSeats))
	}

	seen := make(map[SeatCode]bool, len(inv.AvailableSeats))
	for i, code := range inv.AvailableSeats {
		if !inv.Grid.Contains(code) {
			return fmt.Errorf("available seat %s is outside the grid", code)
		}
		if seen[code] {
			return fmt.Errorf("available seat %s is listed twice", code)
		}
		if i > 0 && !inv.AvailableSeats[i-1].Less(code) {
			return fmt.Errorf("available seats are not sorted at %s", code)
		}
		seen[code] = true
	}

	for key := range inv.BookedSeats {
		code, err := ParseSeatCode(key)
		if err != nil {
			return fmt.Errorf("booked seat key: %w", err)
		}
		if !inv.Grid.Contains(code) {
			return fmt.Errorf("booked seat %s is outside the grid", code)
		}
		if seen[code] {
			return fmt.Errorf("seat %s is both available and booked", code)
		}
	}

	if len(inv.AvailableSeats)+len(inv.BookedSeats) != inv.TotalSeats {
		return fmt.Errorf("%d available + %d booked does not equal %d total seats",
			len(inv.AvailableSeats), len(inv.BookedSeats), inv.TotalSeats)
	}

	return nil
}

// SeatAvailabilityResponse is the public availability snapshot
type SeatAvailabilityResponse struct {
	BusID          string                `json:"bus_id"`
	TravelDate     string                `json:"travel_date"`
	TotalSeats     int                   `json:"total_seats"`
	AvailableCount int                   `json:"available_count"`
	AvailableSeats []SeatCode            `json:"available_seats"`
	BookedSeats    map[string]BookedSeat `json:"booked_seats"`
}

// ToAvailabilityResponse builds the public snapshot
func (inv *SeatInventory) ToAvailabilityResponse() SeatAvailabilityResponse {
	snapshot := inv.Clone()
	return SeatAvailabilityResponse{
		BusID:          snapshot.BusID,
		TravelDate:     snapshot.TravelDate,
		TotalSeats:     snapshot.TotalSeats,
		AvailableCount: snapshot.AvailableCount,
		AvailableSeats: snapshot.AvailableSeats,
		BookedSeats:    snapshot.BookedSeats,
	}
}
