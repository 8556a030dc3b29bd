package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Server.StoreBackend)
	assert.Equal(t, 3, cfg.Booking.MaxAttempts)
	assert.Equal(t, 25*time.Millisecond, cfg.Booking.RetryBackoff)
	assert.Equal(t, "local", cfg.Booking.LockBackend)
	assert.Equal(t, 3*time.Second, cfg.Booking.LockWait)
	assert.Equal(t, "0 */15 * * * *", cfg.Reminder.Schedule)
	assert.Equal(t, 2*time.Hour, cfg.Reminder.Window)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTokenExpiry)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("BOOKING_MAX_ATTEMPTS", "5")
	t.Setenv("BOOKING_RETRY_BACKOFF_MS", "100")
	t.Setenv("SEAT_LOCK_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REMINDER_WINDOW_MINUTES", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("BOOKING_TIMEZONE", "Asia/Colombo")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Booking.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Booking.RetryBackoff)
	assert.Equal(t, "redis", cfg.Booking.LockBackend)
	assert.Equal(t, 30*time.Minute, cfg.Reminder.Window)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "Asia/Colombo", cfg.Booking.Location().String())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("BOOKING_RETRY_BACKOFF_MS", "-5")
	t.Setenv("DATABASE_MAX_CONNECTIONS", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25*time.Millisecond, cfg.Booking.RetryBackoff)
	assert.Equal(t, 10, cfg.Database.MaxConnections)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "postgres without url",
			env:     map[string]string{"STORE_BACKEND": "postgres", "DATABASE_URL": ""},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown store backend",
			env:     map[string]string{"STORE_BACKEND": "bolt"},
			wantErr: "STORE_BACKEND",
		},
		{
			name:    "missing jwt secret",
			env:     map[string]string{"JWT_SECRET": ""},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "zero attempts",
			env:     map[string]string{"BOOKING_MAX_ATTEMPTS": "0"},
			wantErr: "BOOKING_MAX_ATTEMPTS",
		},
		{
			name:    "unknown lock backend",
			env:     map[string]string{"SEAT_LOCK_BACKEND": "zookeeper"},
			wantErr: "SEAT_LOCK_BACKEND",
		},
		{
			name:    "bad timezone",
			env:     map[string]string{"BOOKING_TIMEZONE": "Mars/Olympus"},
			wantErr: "BOOKING_TIMEZONE",
		},
		{
			name:    "production sms without key",
			env:     map[string]string{"SMS_MODE": "production", "DIALOG_SMS_ESMSQK": ""},
			wantErr: "DIALOG_SMS_ESMSQK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBookingConfig_LocationDefaultsToLocal(t *testing.T) {
	cfg := BookingConfig{}
	assert.Equal(t, time.Local, cfg.Location())
}
