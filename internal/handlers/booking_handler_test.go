package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/nextstop/booking-backend/internal/database"
	"github.com/nextstop/booking-backend/internal/events"
	"github.com/nextstop/booking-backend/internal/middleware"
	"github.com/nextstop/booking-backend/internal/models"
	"github.com/nextstop/booking-backend/internal/services"
	"github.com/nextstop/booking-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBusID   = "bus-galle-01"
	testRouteID = "route-colombo-galle"
)

type bookingTestEnv struct {
	router     *gin.Engine
	jwtService *jwt.Service
	date       string
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupBookingTestEnv(t *testing.T, audit *services.AuditService) *bookingTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := testLogger()

	catalog := database.NewMemoryCatalog()
	catalog.AddRoute(models.Route{ID: testRouteID, Origin: "Colombo", Destination: "Galle", IsActive: true})
	catalog.AddBus(models.Bus{
		ID:            testBusID,
		BusNumber:     "SP-4455",
		RouteID:       testRouteID,
		Rows:          4,
		Columns:       4,
		DepartureTime: "07:15",
		Status:        models.BusStatusActive,
	})

	config := services.DefaultBookingConfig()
	config.RetryBackoff = time.Millisecond
	bookingService := services.NewBookingService(
		database.NewMemoryStore(),
		catalog,
		services.NewKeyedMutex(),
		events.NoopPublisher{},
		config,
		logger,
	)

	jwtService := jwt.NewService("handler-test-secret-0123456789", "nextstop", time.Hour)
	bookingHandler := NewBookingHandler(bookingService, audit, logger)
	seatHandler := NewSeatHandler(bookingService, logger)

	router := gin.New()
	router.GET("/api/v1/seats/availability", seatHandler.GetAvailability)
	bookings := router.Group("/api/v1/bookings", middleware.AuthMiddleware(jwtService, logger))
	bookings.POST("", bookingHandler.CreateBooking)
	bookings.GET("", bookingHandler.GetMyBookings)
	bookings.GET("/:id", bookingHandler.GetBooking)
	bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
	bookings.GET("/:id/ticket", bookingHandler.DownloadTicket)

	return &bookingTestEnv{
		router:     router,
		jwtService: jwtService,
		date:       time.Now().AddDate(0, 0, 7).Format(models.DateLayout),
	}
}

func (e *bookingTestEnv) do(t *testing.T, method, path, username string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36")
	if username != "" {
		token, err := e.jwtService.GenerateAccessToken(username, []string{"passenger"})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *bookingTestEnv) createBody(seats ...string) map[string]interface{} {
	passengers := make([]map[string]interface{}, len(seats))
	for i, seat := range seats {
		passengers[i] = map[string]interface{}{
			"seat_number": seat,
			"name":        fmt.Sprintf("Passenger %d", i+1),
			"age":         34,
			"gender":      "Male",
			"phone":       "+94 71 234 5678",
		}
	}
	return map[string]interface{}{
		"bus_id":            testBusID,
		"route_id":          testRouteID,
		"seat_numbers":      seats,
		"journey_date":      e.date,
		"boarding_point":    "Fort",
		"total_fare":        1200,
		"passenger_details": passengers,
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestCreateBooking_Success(t *testing.T) {
	env := setupBookingTestEnv(t, nil)

	w := env.do(t, "POST", "/api/v1/bookings", "alice", env.createBody("1-1", "1-2"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var booking models.Booking
	decode(t, w, &booking)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, "alice", booking.Username)
	assert.Equal(t, []string{"1-1", "1-2"}, models.SeatCodeStrings(booking.SeatNumbers))
	assert.Equal(t, "+94712345678", booking.PassengerDetails[0].Phone)

	w = env.do(t, "GET", "/api/v1/seats/availability?busId="+testBusID+"&date="+env.date, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot models.SeatAvailabilityResponse
	decode(t, w, &snapshot)
	assert.Equal(t, 16, snapshot.TotalSeats)
	assert.Equal(t, 14, snapshot.AvailableCount)
	assert.Equal(t, booking.ID, snapshot.BookedSeats["1-2"].BookingID)
}

func TestCreateBooking_LegacyCommaJoinedSeats(t *testing.T) {
	env := setupBookingTestEnv(t, nil)

	body := env.createBody("2-1", "2-2")
	body["seat_numbers"] = "2-1, 2-2"

	w := env.do(t, "POST", "/api/v1/bookings", "alice", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var booking models.Booking
	decode(t, w, &booking)
	assert.Equal(t, []string{"2-1", "2-2"}, models.SeatCodeStrings(booking.SeatNumbers))
}

func TestCreateBooking_Conflict(t *testing.T) {
	env := setupBookingTestEnv(t, nil)

	w := env.do(t, "POST", "/api/v1/bookings", "alice", env.createBody("3-1"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, "POST", "/api/v1/bookings", "bob", env.createBody("3-1", "3-2"))
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, "conflict", resp["error"])
	details := resp["details"].(map[string]interface{})
	assert.Equal(t, []interface{}{"3-1"}, details["seats"])
}

func TestCreateBooking_Validation(t *testing.T) {
	env := setupBookingTestEnv(t, nil)

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
		field  string
	}{
		{"bad seat code", func(b map[string]interface{}) { b["seat_numbers"] = []string{"A1"} }, "seat_numbers"},
		{"bad passenger seat", func(b map[string]interface{}) {
			b["passenger_details"].([]map[string]interface{})[0]["seat_number"] = "one"
		}, "passenger_details[0].seat_number"},
		{"seat outside layout", func(b map[string]interface{}) {
			b["seat_numbers"] = []string{"5-1"}
			b["passenger_details"].([]map[string]interface{})[0]["seat_number"] = "5-1"
		}, "seat_numbers"},
		{"bad gender", func(b map[string]interface{}) {
			b["passenger_details"].([]map[string]interface{})[0]["gender"] = "unknown"
		}, "passenger_details[0].gender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := env.createBody("4-1")
			tt.mutate(body)

			w := env.do(t, "POST", "/api/v1/bookings", "alice", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var resp map[string]interface{}
			decode(t, w, &resp)
			assert.Equal(t, "validation_error", resp["error"])
			assert.Equal(t, tt.field, resp["details"].(map[string]interface{})["field"])
		})
	}

	t.Run("missing required field", func(t *testing.T) {
		body := env.createBody("4-1")
		delete(body, "bus_id")

		w := env.do(t, "POST", "/api/v1/bookings", "alice", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateBooking_Unauthenticated(t *testing.T) {
	env := setupBookingTestEnv(t, nil)

	w := env.do(t, "POST", "/api/v1/bookings", "", env.createBody("1-1"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
}

func TestCancelBooking(t *testing.T) {
	env := setupBookingTestEnv(t, nil)

	w := env.do(t, "POST", "/api/v1/bookings", "alice", env.createBody("1-3"))
	require.Equal(t, http.StatusCreated, w.Code)
	var booking models.Booking
	decode(t, w, &booking)

	w = env.do(t, "POST", "/api/v1/bookings/"+booking.ID+"/cancel", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, "POST", "/api/v1/bookings/"+booking.ID+"/cancel", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Cancelled")

	w = env.do(t, "POST", "/api/v1/bookings/"+booking.ID+"/cancel", "alice", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, "GET", "/api/v1/seats/availability?busId="+testBusID+"&date="+env.date, "", nil)
	var snapshot models.SeatAvailabilityResponse
	decode(t, w, &snapshot)
	assert.Equal(t, 16, snapshot.AvailableCount)
}

func TestGetBookings(t *testing.T) {
	env := setupBookingTestEnv(t, nil)

	w := env.do(t, "POST", "/api/v1/bookings", "alice", env.createBody("2-3"))
	require.Equal(t, http.StatusCreated, w.Code)
	var booking models.Booking
	decode(t, w, &booking)

	w = env.do(t, "GET", "/api/v1/bookings", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list models.BookingListResponse
	decode(t, w, &list)
	assert.Equal(t, 1, list.Count)

	w = env.do(t, "GET", "/api/v1/bookings", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Bookings)

	w = env.do(t, "GET", "/api/v1/bookings/"+booking.ID, "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", "/api/v1/bookings/"+booking.ID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, "GET", "/api/v1/bookings/00000000-0000-0000-0000-000000000000", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadTicket(t *testing.T) {
	env := setupBookingTestEnv(t, nil)

	w := env.do(t, "POST", "/api/v1/bookings", "alice", env.createBody("4-4"))
	require.Equal(t, http.StatusCreated, w.Code)
	var booking models.Booking
	decode(t, w, &booking)

	w = env.do(t, "GET", "/api/v1/bookings/"+booking.ID+"/ticket", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ETICKET_")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestAvailability_BadQuery(t *testing.T) {
	env := setupBookingTestEnv(t, nil)

	w := env.do(t, "GET", "/api/v1/seats/availability?busId="+testBusID, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "GET", "/api/v1/seats/availability?busId=unknown&date="+env.date, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateBooking_WritesAuditEvent(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db := &database.PostgresDB{DB: sqlx.NewDb(mockDB, "sqlmock")}
	env := setupBookingTestEnv(t, services.NewAuditService(db, testLogger()))

	mock.ExpectExec("INSERT INTO booking_audit_events").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "alice", services.AuditBookingCreated,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := env.do(t, "POST", "/api/v1/bookings", "alice", env.createBody("1-4"))
	require.Equal(t, http.StatusCreated, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_AuditFailureDoesNotFailRequest(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db := &database.PostgresDB{DB: sqlx.NewDb(mockDB, "sqlmock")}
	env := setupBookingTestEnv(t, services.NewAuditService(db, testLogger()))

	mock.ExpectExec("INSERT INTO booking_audit_events").
		WillReturnError(fmt.Errorf("connection refused"))

	w := env.do(t, "POST", "/api/v1/bookings", "alice", env.createBody("2-4"))
	assert.Equal(t, http.StatusCreated, w.Code)
}
