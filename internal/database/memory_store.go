package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nextstop/booking-backend/internal/domain"
	"github.com/nextstop/booking-backend/internal/models"
)

// MemoryStore is an in-process seat inventory store and booking ledger with
// the same compare-and-swap semantics as PostgresStore. Values are cloned on
// the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	inventories map[string]*models.SeatInventory
	bookings    map[string]*models.Booking
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		inventories: make(map[string]*models.SeatInventory),
		bookings:    make(map[string]*models.Booking),
	}
}

func (s *MemoryStore) GetOrCreateInventory(ctx context.Context, busID, travelDate string, grid models.SeatGrid) (*models.SeatInventory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := models.InventoryKey(busID, travelDate)

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.inventories[key]
	if !ok {
		inv = models.NewSeatInventory(busID, travelDate, grid)
		s.inventories[key] = inv
	}
	return inv.Clone(), nil
}

func (s *MemoryStore) GetInventory(ctx context.Context, busID, travelDate string) (*models.SeatInventory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := models.InventoryKey(busID, travelDate)

	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.inventories[key]
	if !ok {
		return nil, domain.NotFoundError{Resource: "seat inventory", ID: key}
	}
	return inv.Clone(), nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, domain.NotFoundError{Resource: "booking", ID: bookingID}
	}
	return b.Clone(), nil
}

func (s *MemoryStore) ListBookingsByUsername(ctx context.Context, username string) ([]*models.Booking, error) {
	return s.listBookings(ctx, func(b *models.Booking) bool {
		return b.Username == username
	}, func(a, b *models.Booking) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func (s *MemoryStore) ListConfirmedDepartingBetween(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	return s.listBookings(ctx, func(b *models.Booking) bool {
		return b.Status == models.BookingStatusConfirmed &&
			!b.DepartsAt.Before(from) && !b.DepartsAt.After(to)
	}, func(a, b *models.Booking) bool {
		return a.DepartsAt.Before(b.DepartsAt)
	})
}

func (s *MemoryStore) listBookings(ctx context.Context, keep func(*models.Booking) bool, less func(a, b *models.Booking) bool) ([]*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*models.Booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

// CommitAllocation stores the inventory if its version still equals
// expectedVersion and appends the booking, atomically
func (s *MemoryStore) CommitAllocation(ctx context.Context, inv *models.SeatInventory, expectedVersion int64, booking *models.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := inv.CheckInvariants(); err != nil {
		return wrapInvariant(err)
	}
	if err := booking.CheckAlignment(); err != nil {
		return wrapInvariant(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkVersion(inv, expectedVersion); err != nil {
		return err
	}
	if _, exists := s.bookings[booking.ID]; exists {
		return ErrVersionConflict
	}

	s.storeInventory(inv, expectedVersion)
	s.bookings[booking.ID] = booking.Clone()
	return nil
}

// CommitCancellation stores the inventory if its version still equals
// expectedVersion and marks the booking cancelled if it is still confirmed,
// atomically
func (s *MemoryStore) CommitCancellation(ctx context.Context, inv *models.SeatInventory, expectedVersion int64, booking *models.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := inv.CheckInvariants(); err != nil {
		return wrapInvariant(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkVersion(inv, expectedVersion); err != nil {
		return err
	}
	stored, ok := s.bookings[booking.ID]
	if !ok || stored.Status != models.BookingStatusConfirmed {
		return ErrVersionConflict
	}

	s.storeInventory(inv, expectedVersion)
	s.bookings[booking.ID] = booking.Clone()
	return nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) checkVersion(inv *models.SeatInventory, expectedVersion int64) error {
	current, ok := s.inventories[inv.Key()]
	if !ok {
		return domain.NotFoundError{Resource: "seat inventory", ID: inv.Key()}
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	return nil
}

func (s *MemoryStore) storeInventory(inv *models.SeatInventory, expectedVersion int64) {
	inv.Version = expectedVersion + 1
	s.inventories[inv.Key()] = inv.Clone()
}
