package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nextstop/booking-backend/internal/database"
	"github.com/nextstop/booking-backend/internal/models"
	"github.com/nextstop/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// Audit actions
const (
	AuditBookingCreated   = "booking_created"
	AuditBookingCancelled = "booking_cancelled"
	AuditBookingRejected  = "booking_rejected"
)

// AuditService records booking lifecycle events. Without a database the
// events are only logged.
type AuditService struct {
	db     database.DB
	logger *logrus.Logger
}

// NewAuditService creates a new audit service. db may be nil.
func NewAuditService(db database.DB, logger *logrus.Logger) *AuditService {
	return &AuditService{
		db:     db,
		logger: logger,
	}
}

// AuditEvent represents a booking event to be recorded
type AuditEvent struct {
	BookingID string                 // empty for rejected requests
	Username  string                 // acting user
	Action    string                 // one of the Audit* actions
	IPAddress string                 // client IP address
	UserAgent string                 // client user agent
	Details   map[string]interface{} // stored as JSONB
}

// LogBookingCreated records a confirmed booking
func (s *AuditService) LogBookingCreated(ctx context.Context, booking *models.Booking, ipAddress, userAgent string) error {
	return s.logEvent(ctx, AuditEvent{
		BookingID: booking.ID,
		Username:  booking.Username,
		Action:    AuditBookingCreated,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Details: map[string]interface{}{
			"bus_id":       booking.BusID,
			"journey_date": booking.JourneyDate,
			"seats":        models.SeatCodeStrings(booking.SeatNumbers),
			"total_fare":   booking.TotalFare,
		},
	})
}

// LogBookingCancelled records a cancellation by the owner
func (s *AuditService) LogBookingCancelled(ctx context.Context, booking *models.Booking, ipAddress, userAgent string) error {
	return s.logEvent(ctx, AuditEvent{
		BookingID: booking.ID,
		Username:  booking.Username,
		Action:    AuditBookingCancelled,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Details: map[string]interface{}{
			"bus_id":       booking.BusID,
			"journey_date": booking.JourneyDate,
			"seats":        models.SeatCodeStrings(booking.SeatNumbers),
		},
	})
}

// LogBookingRejected records a booking or cancellation that lost a seat race
// or was refused
func (s *AuditService) LogBookingRejected(ctx context.Context, username, bookingID, busID, journeyDate, ipAddress, userAgent string, reason error) error {
	details := map[string]interface{}{
		"bus_id":       busID,
		"journey_date": journeyDate,
	}
	if reason != nil {
		details["reason"] = reason.Error()
	}

	return s.logEvent(ctx, AuditEvent{
		BookingID: bookingID,
		Username:  username,
		Action:    AuditBookingRejected,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Details:   details,
	})
}

// logEvent writes to the booking_audit_events table
func (s *AuditService) logEvent(ctx context.Context, event AuditEvent) error {
	deviceInfo := utils.ParseUserAgent(event.UserAgent)

	s.logger.WithFields(logrus.Fields{
		"audit_action": event.Action,
		"booking_id":   event.BookingID,
		"username":     event.Username,
		"ip_address":   event.IPAddress,
		"device_type":  deviceInfo.DeviceType,
	}).Info("Audit event")

	if s.db == nil {
		return nil
	}

	query := `
		INSERT INTO booking_audit_events (id, booking_id, username, action, ip_address, user_agent, device_info, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(),
		event.BookingID,
		event.Username,
		event.Action,
		event.IPAddress,
		event.UserAgent,
		models.JSONB[utils.DeviceInfo]{Data: deviceInfo},
		models.JSONB[map[string]interface{}]{Data: event.Details},
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}
