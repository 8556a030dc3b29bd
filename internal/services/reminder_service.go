package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nextstop/booking-backend/internal/models"
	"github.com/nextstop/booking-backend/pkg/sms"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReminderLedger is the read-only view of the booking ledger the reminder job needs
type ReminderLedger interface {
	ListConfirmedDepartingBetween(ctx context.Context, from, to time.Time) ([]*models.Booking, error)
}

// ReminderLog records which bookings were already reminded
type ReminderLog interface {
	HasReminded(ctx context.Context, bookingID string) (bool, error)
	MarkReminded(ctx context.Context, bookingID string, at time.Time) (bool, error)
}

// ReminderConfig holds configuration for the reminder job
type ReminderConfig struct {
	Schedule string        // cron spec with seconds
	Window   time.Duration // remind bookings departing within this window
	Timeout  time.Duration // upper bound of one run
}

// DefaultReminderConfig returns default configuration
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		Schedule: "0 */15 * * * *",
		Window:   2 * time.Hour,
		Timeout:  5 * time.Minute,
	}
}

// ReminderResult summarises one run
type ReminderResult struct {
	Due      int
	Reminded int
	Skipped  int
	Failed   int
}

// ReminderService sends an SMS to the passengers of bookings that depart soon.
// It never touches seat inventory.
type ReminderService struct {
	cron    *cron.Cron
	ledger  ReminderLedger
	log     ReminderLog
	catalog CatalogLookup
	gateway sms.Gateway
	config  ReminderConfig
	logger  *logrus.Logger
}

// NewReminderService creates a new ReminderService. catalog may be nil.
func NewReminderService(
	ledger ReminderLedger,
	reminderLog ReminderLog,
	catalog CatalogLookup,
	gateway sms.Gateway,
	config ReminderConfig,
	logger *logrus.Logger,
) *ReminderService {
	return &ReminderService{
		cron:    cron.New(cron.WithSeconds()),
		ledger:  ledger,
		log:     reminderLog,
		catalog: catalog,
		gateway: gateway,
		config:  config,
		logger:  logger,
	}
}

// Start schedules the reminder job
func (s *ReminderService) Start() error {
	_, err := s.cron.AddFunc(s.config.Schedule, s.reminderJob)
	if err != nil {
		return fmt.Errorf("failed to schedule reminder job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"schedule": s.config.Schedule,
		"window":   s.config.Window.String(),
		"gateway":  s.gateway.Name(),
	}).Info("Reminder scheduler started")

	return nil
}

// Stop waits for a running job to finish
func (s *ReminderService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Reminder scheduler stopped")
}

func (s *ReminderService) reminderJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	start := time.Now()
	result, err := s.RunOnce(ctx, start)
	if err != nil {
		s.logger.WithError(err).Error("Reminder job failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"due":      result.Due,
		"reminded": result.Reminded,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
		"duration": time.Since(start).String(),
	}).Info("Reminder job finished")
}

// RunOnce reminds every confirmed booking departing in [now, now+window] that
// was not reminded before. A booking whose messages all failed is retried on
// the next run.
func (s *ReminderService) RunOnce(ctx context.Context, now time.Time) (ReminderResult, error) {
	var result ReminderResult

	due, err := s.ledger.ListConfirmedDepartingBetween(ctx, now, now.Add(s.config.Window))
	if err != nil {
		return result, fmt.Errorf("failed to list departing bookings: %w", err)
	}
	result.Due = len(due)

	for _, booking := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		reminded, err := s.log.HasReminded(ctx, booking.ID)
		if err != nil {
			return result, err
		}
		if reminded {
			result.Skipped++
			continue
		}

		message := s.message(ctx, booking)
		sent := 0
		for _, p := range booking.PassengerDetails {
			if p.Phone == "" {
				continue
			}
			if err := s.gateway.Send(ctx, p.Phone, message); err != nil {
				s.logger.WithFields(logrus.Fields{
					"booking_id": booking.ID,
					"seat":       p.SeatNumber.String(),
					"error":      err,
				}).Warn("Failed to send journey reminder")
				continue
			}
			sent++
		}

		if sent == 0 {
			result.Failed++
			continue
		}

		if _, err := s.log.MarkReminded(ctx, booking.ID, now); err != nil {
			return result, err
		}
		result.Reminded++
	}

	return result, nil
}

func (s *ReminderService) message(ctx context.Context, booking *models.Booking) string {
	bus := booking.BusID
	if s.catalog != nil {
		if b, err := s.catalog.GetBus(ctx, booking.BusID); err == nil {
			bus = b.BusNumber
		}
	}

	return fmt.Sprintf("Reminder: bus %s departs %s at %s from %s. Seats %s. Booking %s",
		bus,
		booking.JourneyDate,
		booking.DepartsAt.Format("15:04"),
		booking.BoardingPoint,
		strings.Join(models.SeatCodeStrings(booking.SeatNumbers), ", "),
		shortID(booking.ID),
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
