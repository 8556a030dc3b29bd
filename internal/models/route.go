package models

import (
	"time"
)

// Route is a catalog entry for an origin/destination pair
type Route struct {
	ID              string    `json:"id" db:"id"`
	Origin          string    `json:"origin" db:"origin"`
	Destination     string    `json:"destination" db:"destination"`
	DistanceKM      *float64  `json:"distance_km,omitempty" db:"distance_km"`
	DurationMinutes *int      `json:"duration_minutes,omitempty" db:"duration_minutes"`
	BasePrice       float64   `json:"base_price" db:"base_price"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName returns a formatted route display name
func (r *Route) DisplayName() string {
	return r.Origin + " - " + r.Destination
}
