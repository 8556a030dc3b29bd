package models

import (
	"fmt"
	"strings"
	"time"
)

// BusType represents the type/category of bus
type BusType string

const (
	BusTypeNormal      BusType = "normal"
	BusTypeLuxury      BusType = "luxury"
	BusTypeSemiLuxury  BusType = "semi_luxury"
	BusTypeSuperLuxury BusType = "super_luxury"
)

// BusStatus represents the current operational status of a bus
type BusStatus string

const (
	BusStatusActive      BusStatus = "active"
	BusStatusMaintenance BusStatus = "maintenance"
	BusStatusInactive    BusStatus = "inactive"
)

// Bus is a catalog entry for one bus serving one route. Rows and Columns fix
// the seat grid for every travel date.
type Bus struct {
	ID            string      `json:"id" db:"id"`
	BusNumber     string      `json:"bus_number" db:"bus_number"`
	RouteID       string      `json:"route_id" db:"route_id"`
	BusType       BusType     `json:"bus_type" db:"bus_type"`
	Rows          int         `json:"rows" db:"seat_rows"`
	Columns       int         `json:"columns" db:"seat_columns"`
	DepartureTime string      `json:"departure_time" db:"departure_time"` // HH:MM, local time
	OperatingDays StringArray `json:"operating_days" db:"operating_days"` // Mon..Sun, empty means daily
	Status        BusStatus   `json:"status" db:"status"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// Grid returns the seat layout of the bus
func (b *Bus) Grid() SeatGrid {
	return SeatGrid{Rows: b.Rows, Columns: b.Columns}
}

// IsActive checks if the bus is in service
func (b *Bus) IsActive() bool {
	return b.Status == BusStatusActive
}

// RunsOn reports whether the bus is active and operates on the weekday of date
func (b *Bus) RunsOn(date time.Time) bool {
	if !b.IsActive() {
		return false
	}
	if len(b.OperatingDays) == 0 {
		return true
	}
	day := date.Weekday().String()[:3]
	for _, d := range b.OperatingDays {
		if strings.EqualFold(strings.TrimSpace(d), day) {
			return true
		}
	}
	return false
}

// DepartsAt combines a travel date with the bus departure time. A missing or
// malformed departure time falls back to midnight.
func (b *Bus) DepartsAt(date time.Time) time.Time {
	y, m, d := date.Date()
	dep, err := time.Parse("15:04", b.DepartureTime)
	if err != nil {
		return time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	}
	return time.Date(y, m, d, dep.Hour(), dep.Minute(), 0, 0, date.Location())
}

// BelongsTo checks if the bus serves the given route
func (b *Bus) BelongsTo(routeID string) bool {
	return b.RouteID == routeID
}

// Validate checks the catalog entry is usable for seat allocation
func (b *Bus) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("bus id is required")
	}
	if err := b.Grid().Validate(); err != nil {
		return fmt.Errorf("bus %s: %w", b.ID, err)
	}
	return nil
}
