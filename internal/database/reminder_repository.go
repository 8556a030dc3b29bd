package database

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ReminderRepository records which bookings already received a journey
// reminder so a restart never sends a second one
type ReminderRepository struct {
	db DB
}

// NewReminderRepository creates a new ReminderRepository
func NewReminderRepository(db DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// HasReminded reports whether a reminder was already recorded for the booking
func (r *ReminderRepository) HasReminded(ctx context.Context, bookingID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM booking_reminders WHERE booking_id = $1)`, bookingID)
	if err != nil {
		return false, fmt.Errorf("failed to check reminder: %w", err)
	}
	return exists, nil
}

// MarkReminded records the reminder. It returns false if one was already recorded.
func (r *ReminderRepository) MarkReminded(ctx context.Context, bookingID string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO booking_reminders (booking_id, reminded_at)
		VALUES ($1, $2)
		ON CONFLICT (booking_id) DO NOTHING`, bookingID, at)
	if err != nil {
		return false, fmt.Errorf("failed to record reminder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return rows == 1, nil
}

// MemoryReminderRepository keeps reminder records in process
type MemoryReminderRepository struct {
	mu       sync.Mutex
	reminded map[string]time.Time
}

// NewMemoryReminderRepository creates an empty MemoryReminderRepository
func NewMemoryReminderRepository() *MemoryReminderRepository {
	return &MemoryReminderRepository{reminded: make(map[string]time.Time)}
}

func (r *MemoryReminderRepository) HasReminded(ctx context.Context, bookingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.reminded[bookingID]
	return ok, nil
}

func (r *MemoryReminderRepository) MarkReminded(ctx context.Context, bookingID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reminded[bookingID]; ok {
		return false, nil
	}
	r.reminded[bookingID] = at
	return true, nil
}
