package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nextstop/booking-backend/internal/domain"
	"github.com/nextstop/booking-backend/internal/models"
)

// CatalogRepository reads buses and routes. The catalog is owned elsewhere;
// this service never writes it.
type CatalogRepository struct {
	db DB
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetBus retrieves a bus by ID
func (r *CatalogRepository) GetBus(ctx context.Context, busID string) (*models.Bus, error) {
	query := `
		SELECT id, bus_number, route_id, bus_type, seat_rows, seat_columns,
			   departure_time, operating_days, status, created_at, updated_at
		FROM buses
		WHERE id = $1`

	var bus models.Bus
	err := r.db.GetContext(ctx, &bus, query, busID)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError{Resource: "bus", ID: busID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bus: %w", err)
	}

	return &bus, nil
}

// GetRoute retrieves a route by ID
func (r *CatalogRepository) GetRoute(ctx context.Context, routeID string) (*models.Route, error) {
	query := `
		SELECT id, origin, destination, distance_km, duration_minutes,
			   base_price, is_active, created_at, updated_at
		FROM routes
		WHERE id = $1`

	var route models.Route
	err := r.db.GetContext(ctx, &route, query, routeID)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError{Resource: "route", ID: routeID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}

	return &route, nil
}
