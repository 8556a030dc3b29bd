package database

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nextstop/booking-backend/internal/domain"
	"github.com/nextstop/booking-backend/internal/models"
	"gopkg.in/yaml.v3"
)

// MemoryCatalog is a fixed in-process catalog used with the memory store
type MemoryCatalog struct {
	mu     sync.RWMutex
	buses  map[string]models.Bus
	routes map[string]models.Route
}

// NewMemoryCatalog creates an empty MemoryCatalog
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		buses:  make(map[string]models.Bus),
		routes: make(map[string]models.Route),
	}
}

// AddRoute registers or replaces a route
func (c *MemoryCatalog) AddRoute(route models.Route) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[route.ID] = route
}

// AddBus registers or replaces a bus
func (c *MemoryCatalog) AddBus(bus models.Bus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bus.OperatingDays = append(models.StringArray(nil), bus.OperatingDays...)
	c.buses[bus.ID] = bus
}

func (c *MemoryCatalog) GetBus(ctx context.Context, busID string) (*models.Bus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bus, ok := c.buses[busID]
	if !ok {
		return nil, domain.NotFoundError{Resource: "bus", ID: busID}
	}
	bus.OperatingDays = append(models.StringArray(nil), bus.OperatingDays...)
	return &bus, nil
}

func (c *MemoryCatalog) GetRoute(ctx context.Context, routeID string) (*models.Route, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	route, ok := c.routes[routeID]
	if !ok {
		return nil, domain.NotFoundError{Resource: "route", ID: routeID}
	}
	return &route, nil
}

// catalogSeed is the CATALOG_SEED_FILE layout
type catalogSeed struct {
	Routes []struct {
		ID          string  `yaml:"id"`
		Origin      string  `yaml:"origin"`
		Destination string  `yaml:"destination"`
		BasePrice   float64 `yaml:"base_price"`
	} `yaml:"routes"`
	Buses []struct {
		ID            string   `yaml:"id"`
		BusNumber     string   `yaml:"bus_number"`
		RouteID       string   `yaml:"route_id"`
		BusType       string   `yaml:"bus_type"`
		Rows          int      `yaml:"rows"`
		Columns       int      `yaml:"columns"`
		DepartureTime string   `yaml:"departure_time"`
		OperatingDays []string `yaml:"operating_days"`
		Status        string   `yaml:"status"`
	} `yaml:"buses"`
}

// LoadCatalogSeed reads a YAML catalog file
func LoadCatalogSeed(path string) (*MemoryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog seed: %w", err)
	}
	return ParseCatalogSeed(data)
}

// ParseCatalogSeed builds a MemoryCatalog from YAML. Every bus must reference
// a listed route and have a usable seat grid.
func ParseCatalogSeed(data []byte) (*MemoryCatalog, error) {
	var seed catalogSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse catalog seed: %w", err)
	}

	catalog := NewMemoryCatalog()
	now := time.Now()

	for _, r := range seed.Routes {
		if r.ID == "" {
			return nil, fmt.Errorf("catalog seed: route without id")
		}
		catalog.AddRoute(models.Route{
			ID:          r.ID,
			Origin:      r.Origin,
			Destination: r.Destination,
			BasePrice:   r.BasePrice,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	for _, b := range seed.Buses {
		if _, ok := catalog.routes[b.RouteID]; !ok {
			return nil, fmt.Errorf("catalog seed: bus %s references unknown route %q", b.ID, b.RouteID)
		}
		bus := models.Bus{
			ID:            b.ID,
			BusNumber:     b.BusNumber,
			RouteID:       b.RouteID,
			BusType:       models.BusType(b.BusType),
			Rows:          b.Rows,
			Columns:       b.Columns,
			DepartureTime: b.DepartureTime,
			OperatingDays: models.StringArray(b.OperatingDays),
			Status:        models.BusStatus(b.Status),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if bus.BusType == "" {
			bus.BusType = models.BusTypeNormal
		}
		if bus.Status == "" {
			bus.Status = models.BusStatusActive
		}
		if err := bus.Validate(); err != nil {
			return nil, fmt.Errorf("catalog seed: %w", err)
		}
		catalog.AddBus(bus)
	}

	return catalog, nil
}
