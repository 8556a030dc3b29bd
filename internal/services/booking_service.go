package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nextstop/booking-backend/internal/database"
	"github.com/nextstop/booking-backend/internal/domain"
	"github.com/nextstop/booking-backend/internal/events"
	"github.com/nextstop/booking-backend/internal/models"
	"github.com/nextstop/booking-backend/pkg/ticket"
	"github.com/nextstop/booking-backend/pkg/validator"
	"github.com/sirupsen/logrus"
)

// BookingStore is the seat inventory store and booking ledger. Mutations only
// go through the Commit methods, which compare-and-swap the inventory version
// and write the ledger in the same unit of work.
type BookingStore interface {
	GetOrCreateInventory(ctx context.Context, busID, travelDate string, grid models.SeatGrid) (*models.SeatInventory, error)
	GetInventory(ctx context.Context, busID, travelDate string) (*models.SeatInventory, error)
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	ListBookingsByUsername(ctx context.Context, username string) ([]*models.Booking, error)
	CommitAllocation(ctx context.Context, inv *models.SeatInventory, expectedVersion int64, booking *models.Booking) error
	CommitCancellation(ctx context.Context, inv *models.SeatInventory, expectedVersion int64, booking *models.Booking) error
}

// CatalogLookup reads buses and routes
type CatalogLookup interface {
	GetBus(ctx context.Context, busID string) (*models.Bus, error)
	GetRoute(ctx context.Context, routeID string) (*models.Route, error)
}

// BookingConfig holds configuration for the booking service
type BookingConfig struct {
	MaxAttempts  int            // commit attempts per request (default 3)
	RetryBackoff time.Duration  // first backoff, doubled per attempt (default 25ms)
	Location     *time.Location // zone of journey dates and departure times
}

// DefaultBookingConfig returns default configuration
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		MaxAttempts:  3,
		RetryBackoff: 25 * time.Millisecond,
		Location:     time.Local,
	}
}

// AllocateRequest is a validated-at-the-boundary booking request. Seat codes
// are already parsed.
type AllocateRequest struct {
	Username      string
	BusID         string
	RouteID       string
	JourneyDate   string
	BoardingPoint string
	TotalFare     float64
	SeatNumbers   []models.SeatCode
	Passengers    []models.Passenger
}

// BookingService allocates and releases seats and keeps the booking ledger
// consistent with the seat inventory
type BookingService struct {
	store     BookingStore
	catalog   CatalogLookup
	locker    SeatLocker
	publisher events.Publisher
	phones    *validator.PhoneValidator
	config    BookingConfig
	logger    *logrus.Logger
	now       func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	store BookingStore,
	catalog CatalogLookup,
	locker SeatLocker,
	publisher events.Publisher,
	config BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &BookingService{
		store:     store,
		catalog:   catalog,
		locker:    locker,
		publisher: publisher,
		phones:    validator.NewPhoneValidator(),
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// ============================================================================
// ALLOCATION
// ============================================================================

// Allocate books the requested seats for the passengers. Either every seat is
// booked and the booking is in the ledger, or nothing changed.
func (s *BookingService) Allocate(ctx context.Context, req AllocateRequest) (*models.Booking, error) {
	// 1. Validate request
	date, err := s.validateAllocateRequest(&req)
	if err != nil {
		return nil, err
	}

	// 2. Resolve catalog before taking any lock
	bus, _, err := s.resolveSchedule(ctx, req.RouteID, req.BusID, date)
	if err != nil {
		return nil, err
	}
	grid := bus.Grid()
	for _, seat := range req.SeatNumbers {
		if !grid.Contains(seat) {
			return nil, domain.ValidationError{
				Field: "seat_numbers",
				Msg:   fmt.Sprintf("seat %s is outside the %dx%d layout of bus %s", seat, grid.Rows, grid.Columns, bus.ID),
			}
		}
	}

	// 3. Make sure the inventory exists
	if _, err := s.store.GetOrCreateInventory(ctx, bus.ID, req.JourneyDate, grid); err != nil {
		return nil, storageError("load seat inventory", err)
	}

	// 4. Serialise on (bus, date)
	key := models.InventoryKey(bus.ID, req.JourneyDate)
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, domain.TransientStorageError{Op: "acquire seat lock", Attempts: 1, Err: err}
	}
	defer unlock()

	// 5. Re-check and commit
	var booking *models.Booking
	err = s.withRetry(ctx, "allocate seats", func() error {
		inv, err := s.store.GetInventory(ctx, bus.ID, req.JourneyDate)
		if err != nil {
			return err
		}
		if missing := inv.UnavailableSeats(req.SeatNumbers); len(missing) > 0 {
			return domain.NewSeatConflict(models.SeatCodeStrings(missing))
		}

		now := s.now()
		candidate := &models.Booking{
			ID:               uuid.New().String(),
			Username:         req.Username,
			BusID:            bus.ID,
			RouteID:          req.RouteID,
			JourneyDate:      req.JourneyDate,
			DepartsAt:        bus.DepartsAt(date),
			BoardingPoint:    req.BoardingPoint,
			SeatNumbers:      append([]models.SeatCode(nil), req.SeatNumbers...),
			PassengerDetails: append([]models.Passenger(nil), req.Passengers...),
			TotalFare:        req.TotalFare,
			Status:           models.BookingStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		expectedVersion := inv.Version
		if err := inv.Allocate(candidate.ID, candidate.PassengerDetails); err != nil {
			return err
		}
		candidate.Status = models.BookingStatusConfirmed

		if err := s.store.CommitAllocation(ctx, inv, expectedVersion, candidate); err != nil {
			return err
		}
		booking = candidate
		return nil
	})
	if err != nil {
		if domain.IsConflict(err) {
			s.logger.WithFields(logrus.Fields{
				"bus_id":       bus.ID,
				"journey_date": req.JourneyDate,
				"username":     req.Username,
				"error":        err,
			}).Info("Seat allocation rejected")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"bus_id":       booking.BusID,
		"journey_date": booking.JourneyDate,
		"seats":        models.SeatCodeStrings(booking.SeatNumbers),
		"username":     booking.Username,
	}).Info("Booking confirmed")

	// 6. Notify downstream
	s.publish(ctx, booking, s.publisher.PublishBookingConfirmed)

	return booking, nil
}

// validateAllocateRequest checks everything that needs no storage and returns
// the parsed journey date. Passenger phones are normalised in place.
func (s *BookingService) validateAllocateRequest(req *AllocateRequest) (time.Time, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.BusID = strings.TrimSpace(req.BusID)
	req.RouteID = strings.TrimSpace(req.RouteID)
	req.BoardingPoint = strings.TrimSpace(req.BoardingPoint)

	if req.Username == "" {
		return time.Time{}, domain.ValidationError{Field: "username", Msg: "is required"}
	}
	if req.BusID == "" {
		return time.Time{}, domain.ValidationError{Field: "bus_id", Msg: "is required"}
	}
	if req.RouteID == "" {
		return time.Time{}, domain.ValidationError{Field: "route_id", Msg: "is required"}
	}

	date, err := s.parseJourneyDate(req.JourneyDate)
	if err != nil {
		return time.Time{}, err
	}
	req.JourneyDate = date.Format(models.DateLayout)

	if req.BoardingPoint == "" {
		return time.Time{}, domain.ValidationError{Field: "boarding_point", Msg: "is required"}
	}
	if math.IsNaN(req.TotalFare) || math.IsInf(req.TotalFare, 0) || req.TotalFare < 0 {
		return time.Time{}, domain.ValidationError{Field: "total_fare", Msg: "must be a non-negative amount"}
	}

	if len(req.SeatNumbers) == 0 {
		return time.Time{}, domain.ValidationError{Field: "seat_numbers", Msg: "at least one seat is required"}
	}
	seen := make(map[models.SeatCode]bool, len(req.SeatNumbers))
	for _, seat := range req.SeatNumbers {
		if seen[seat] {
			return time.Time{}, domain.ValidationError{Field: "seat_numbers", Msg: fmt.Sprintf("seat %s is requested more than once", seat)}
		}
		seen[seat] = true
	}

	if len(req.Passengers) != len(req.SeatNumbers) {
		return time.Time{}, domain.ValidationError{
			Field: "passenger_details",
			Msg:   fmt.Sprintf("expected %d passengers for %d seats, got %d", len(req.SeatNumbers), len(req.SeatNumbers), len(req.Passengers)),
		}
	}

	for i := range req.Passengers {
		p := &req.Passengers[i]
		field := fmt.Sprintf("passenger_details[%d]", i)

		if p.SeatNumber != req.SeatNumbers[i] {
			return time.Time{}, domain.ValidationError{
				Field: field + ".seat_number",
				Msg:   fmt.Sprintf("seat %s does not match seat_numbers[%d] %s", p.SeatNumber, i, req.SeatNumbers[i]),
			}
		}
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return time.Time{}, domain.ValidationError{Field: field + ".name", Msg: "is required"}
		}
		if p.Age < 1 || p.Age > 120 {
			return time.Time{}, domain.ValidationError{Field: field + ".age", Msg: "must be between 1 and 120"}
		}
		if !p.Gender.IsValid() {
			return time.Time{}, domain.ValidationError{Field: field + ".gender", Msg: "must be Male, Female or Other"}
		}
		phone, err := s.phones.Validate(p.Phone)
		if err != nil {
			return time.Time{}, domain.ValidationError{Field: field + ".phone", Msg: err.Error(), Err: err}
		}
		p.Phone = phone
	}

	return date, nil
}

// parseJourneyDate accepts YYYY-MM-DD dates from today onwards
func (s *BookingService) parseJourneyDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, domain.ValidationError{Field: "journey_date", Msg: "is required"}
	}
	date, err := time.ParseInLocation(models.DateLayout, raw, s.config.Location)
	if err != nil {
		return time.Time{}, domain.ValidationError{Field: "journey_date", Msg: "must be formatted as YYYY-MM-DD", Err: err}
	}

	y, m, d := s.now().In(s.config.Location).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, s.config.Location)
	if date.Before(today) {
		return time.Time{}, domain.ValidationError{Field: "journey_date", Msg: "must not be in the past"}
	}

	return date, nil
}

// resolveSchedule checks the route exists, the bus exists and serves the route,
// and the bus runs on date
func (s *BookingService) resolveSchedule(ctx context.Context, routeID, busID string, date time.Time) (*models.Bus, *models.Route, error) {
	route, err := s.catalog.GetRoute(ctx, routeID)
	if err != nil {
		return nil, nil, storageError("load route", err)
	}

	bus, err := s.catalog.GetBus(ctx, busID)
	if err != nil {
		return nil, nil, storageError("load bus", err)
	}

	if !bus.BelongsTo(route.ID) {
		return nil, nil, domain.NotFoundError{Resource: "bus on route", ID: busID + " on " + routeID}
	}
	if err := bus.Validate(); err != nil {
		return nil, nil, fmt.Errorf("catalog entry unusable: %w", err)
	}
	if !bus.RunsOn(date) {
		return nil, nil, domain.NotFoundError{Resource: "bus schedule", ID: busID + " on " + date.Format(models.DateLayout)}
	}

	return bus, route, nil
}

// ============================================================================
// CANCELLATION
// ============================================================================

// Cancel releases the booking's seats and marks it cancelled. Only the owner
// may cancel; a cancelled booking cannot be cancelled again.
func (s *BookingService) Cancel(ctx context.Context, bookingID, username string) (*models.Booking, error) {
	// 1. Load and authorise
	booking, err := s.ownedBooking(ctx, bookingID, username)
	if err != nil {
		return nil, err
	}
	if err := booking.CheckCancellable(); err != nil {
		return nil, err
	}

	// 2. Serialise on (bus, date)
	key := models.InventoryKey(booking.BusID, booking.JourneyDate)
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, domain.TransientStorageError{Op: "acquire seat lock", Attempts: 1, Err: err}
	}
	defer unlock()

	// 3. Re-check inside the lock and commit
	var cancelled *models.Booking
	var restored int
	err = s.withRetry(ctx, "cancel booking", func() error {
		current, err := s.store.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		inv, err := s.store.GetInventory(ctx, current.BusID, current.JourneyDate)
		if err != nil {
			return err
		}

		expectedVersion := inv.Version
		if err := current.Cancel(s.now()); err != nil {
			return err
		}
		restored = inv.Release(current.ID, current.SeatNumbers)

		if err := s.store.CommitCancellation(ctx, inv, expectedVersion, current); err != nil {
			return err
		}
		cancelled = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     cancelled.ID,
		"bus_id":         cancelled.BusID,
		"journey_date":   cancelled.JourneyDate,
		"seats_restored": restored,
		"username":       username,
	}).Info("Booking cancelled")

	// 4. Notify downstream
	s.publish(ctx, cancelled, s.publisher.PublishBookingCancelled)

	return cancelled, nil
}

// ============================================================================
// QUERIES
// ============================================================================

// Availability returns the seat snapshot of a bus on a travel date, creating
// the inventory on first use
func (s *BookingService) Availability(ctx context.Context, busID, travelDate string) (*models.SeatAvailabilityResponse, error) {
	busID = strings.TrimSpace(busID)
	if busID == "" {
		return nil, domain.ValidationError{Field: "busId", Msg: "is required"}
	}
	date, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(travelDate), s.config.Location)
	if err != nil {
		return nil, domain.ValidationError{Field: "date", Msg: "must be formatted as YYYY-MM-DD", Err: err}
	}
	travelDate = date.Format(models.DateLayout)

	bus, err := s.catalog.GetBus(ctx, busID)
	if err != nil {
		return nil, storageError("load bus", err)
	}
	if err := bus.Validate(); err != nil {
		return nil, fmt.Errorf("catalog entry unusable: %w", err)
	}
	if !bus.RunsOn(date) {
		return nil, domain.NotFoundError{Resource: "bus schedule", ID: busID + " on " + travelDate}
	}

	inv, err := s.store.GetOrCreateInventory(ctx, bus.ID, travelDate, bus.Grid())
	if err != nil {
		return nil, storageError("load seat inventory", err)
	}

	snapshot := inv.ToAvailabilityResponse()
	return &snapshot, nil
}

// GetBooking returns one booking of username
func (s *BookingService) GetBooking(ctx context.Context, bookingID, username string) (*models.Booking, error) {
	return s.ownedBooking(ctx, bookingID, username)
}

// ListUserBookings returns every booking of username, newest first
func (s *BookingService) ListUserBookings(ctx context.Context, username string) ([]*models.Booking, error) {
	if strings.TrimSpace(username) == "" {
		return nil, domain.ValidationError{Field: "username", Msg: "is required"}
	}
	bookings, err := s.store.ListBookingsByUsername(ctx, username)
	if err != nil {
		return nil, storageError("list bookings", err)
	}
	return bookings, nil
}

// RenderTicket renders the PDF e-ticket of one booking of username
func (s *BookingService) RenderTicket(ctx context.Context, bookingID, username string) ([]byte, string, error) {
	booking, err := s.ownedBooking(ctx, bookingID, username)
	if err != nil {
		return nil, "", err
	}

	data := ticket.Data{
		BookingID:     booking.ID,
		Username:      booking.Username,
		Status:        string(booking.Status),
		BusNumber:     booking.BusID,
		RouteFrom:     booking.RouteID,
		JourneyDate:   booking.JourneyDate,
		DepartsAt:     booking.DepartsAt,
		BoardingPoint: booking.BoardingPoint,
		TotalFare:     booking.TotalFare,
		CancelledAt:   booking.CancelledAt,
	}
	// The catalog only decorates the ticket
	if bus, err := s.catalog.GetBus(ctx, booking.BusID); err == nil {
		data.BusNumber = bus.BusNumber
	}
	if route, err := s.catalog.GetRoute(ctx, booking.RouteID); err == nil {
		data.RouteFrom = route.Origin
		data.RouteTo = route.Destination
	}
	for _, p := range booking.PassengerDetails {
		data.Passengers = append(data.Passengers, ticket.Passenger{
			Seat:   p.SeatNumber.String(),
			Name:   p.Name,
			Age:    p.Age,
			Gender: string(p.Gender),
		})
	}

	return ticket.Render(data)
}

func (s *BookingService) ownedBooking(ctx context.Context, bookingID, username string) (*models.Booking, error) {
	if _, err := uuid.Parse(bookingID); err != nil {
		return nil, domain.NotFoundError{Resource: "booking", ID: bookingID}
	}
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, storageError("load booking", err)
	}
	if booking.Username != username {
		return nil, domain.AuthorizationError{Msg: "booking belongs to another user"}
	}
	return booking, nil
}

// ============================================================================
// HELPERS
// ============================================================================

// withRetry runs attempt until it succeeds, fails permanently or the attempt
// budget is spent. Only version conflicts and storage failures are retried.
func (s *BookingService) withRetry(ctx context.Context, op string, attempt func() error) error {
	backoff := s.config.RetryBackoff
	var lastErr error

	for i := 1; i <= s.config.MaxAttempts; i++ {
		lastErr = attempt()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return domain.TransientStorageError{Op: op, Attempts: i, Err: lastErr}
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		s.logger.WithFields(logrus.Fields{
			"operation": op,
			"attempt":   i,
			"error":     lastErr,
		}).Warn("Booking commit failed, retrying")

		if i == s.config.MaxAttempts {
			break
		}
		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return domain.TransientStorageError{Op: op, Attempts: i, Err: ctx.Err()}
			case <-timer.C:
			}
			backoff *= 2
		}
	}

	return domain.TransientStorageError{Op: op, Attempts: s.config.MaxAttempts, Err: lastErr}
}

func isRetryable(err error) bool {
	switch {
	case errors.Is(err, database.ErrVersionConflict):
		return true
	case errors.Is(err, database.ErrInvariantViolation):
		return false
	case domain.IsValidation(err), domain.IsNotFound(err), domain.IsConflict(err), domain.IsAuthorization(err):
		return false
	}
	return true
}

// storageError passes domain errors through and reports anything else as a
// transient storage failure of op
func storageError(op string, err error) error {
	if domain.IsValidation(err) || domain.IsNotFound(err) || domain.IsConflict(err) || domain.IsAuthorization(err) {
		return err
	}
	return domain.TransientStorageError{Op: op, Attempts: 1, Err: err}
}

// publish sends a booking event without letting broker trouble reach the caller
func (s *BookingService) publish(ctx context.Context, booking *models.Booking, send func(context.Context, events.BookingEvent) error) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := send(pubCtx, events.NewBookingEvent(booking, s.now())); err != nil {
		s.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"status":     booking.Status,
			"error":      err,
		}).Warn("Failed to publish booking event")
	}
}
