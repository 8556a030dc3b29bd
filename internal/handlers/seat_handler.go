package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nextstop/booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// SeatHandler serves seat availability
type SeatHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewSeatHandler creates a new SeatHandler
func NewSeatHandler(bookingService *services.BookingService, logger *logrus.Logger) *SeatHandler {
	return &SeatHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// GetAvailability returns the seat snapshot of a bus on a date
// @Summary Seat availability
// @Tags Seats
// @Produce json
// @Param busId query string true "Bus ID"
// @Param date query string true "Travel date (YYYY-MM-DD)"
// @Success 200 {object} models.SeatAvailabilityResponse
// @Failure 400 {object} map[string]interface{} "Invalid query"
// @Failure 404 {object} map[string]interface{} "Bus or schedule not found"
// @Router /api/v1/seats/availability [get]
func (h *SeatHandler) GetAvailability(c *gin.Context) {
	snapshot, err := h.bookingService.Availability(c.Request.Context(), c.Query("busId"), c.Query("date"))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
