package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nextstop/booking-backend/internal/domain"
	"github.com/nextstop/booking-backend/internal/middleware"
	"github.com/nextstop/booking-backend/internal/models"
	"github.com/nextstop/booking-backend/internal/services"
	"github.com/nextstop/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// BookingHandler handles passenger booking operations
type BookingHandler struct {
	bookingService *services.BookingService
	auditService   *services.AuditService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler. auditService may be nil.
func NewBookingHandler(bookingService *services.BookingService, auditService *services.AuditService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		auditService:   auditService,
		logger:         logger,
	}
}

// CreateBooking creates a new bus booking
// @Summary Create a new bus booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.Booking "Booking confirmed"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 404 {object} map[string]interface{} "Bus, route or schedule not found"
// @Failure 409 {object} map[string]interface{} "Seats not available"
// @Failure 503 {object} map[string]interface{} "Storage unavailable"
// @Security BearerAuth
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Unauthorized"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if domain.IsValidation(err) {
			respondDomainError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
			"details": gin.H{"reason": err.Error()},
		})
		return
	}

	passengers, err := req.Passengers()
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	booking, err := h.bookingService.Allocate(c.Request.Context(), services.AllocateRequest{
		Username:      userCtx.Username,
		BusID:         req.BusID,
		RouteID:       req.RouteID,
		JourneyDate:   req.JourneyDate,
		BoardingPoint: req.BoardingPoint,
		TotalFare:     req.TotalFare,
		SeatNumbers:   []models.SeatCode(req.SeatNumbers),
		Passengers:    passengers,
	})
	if err != nil {
		if domain.IsConflict(err) {
			h.safeLogBookingRejected(c.Request.Context(), userCtx.Username, "", req.BusID, req.JourneyDate,
				utils.GetRealIP(c), utils.GetUserAgent(c), err)
		}
		respondDomainError(c, h.logger, err)
		return
	}

	h.safeLogBookingCreated(c.Request.Context(), booking, utils.GetRealIP(c), utils.GetUserAgent(c))

	c.JSON(http.StatusCreated, booking)
}

// GetMyBookings lists the caller's bookings, newest first
// @Summary List my bookings
// @Tags Bookings
// @Produce json
// @Success 200 {object} models.BookingListResponse
// @Security BearerAuth
// @Router /api/v1/bookings [get]
func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Unauthorized"})
		return
	}

	bookings, err := h.bookingService.ListUserBookings(c.Request.Context(), userCtx.Username)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.BookingListResponse{
		Bookings: bookings,
		Count:    len(bookings),
	})
}

// GetBooking returns one of the caller's bookings
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 403 {object} map[string]interface{} "Not the owner"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Security BearerAuth
// @Router /api/v1/bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Unauthorized"})
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"), userCtx.Username)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking cancels one of the caller's bookings and releases its seats
// @Summary Cancel booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking "Booking cancelled"
// @Failure 403 {object} map[string]interface{} "Not the owner"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Already cancelled"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Unauthorized"})
		return
	}

	bookingID := c.Param("id")
	booking, err := h.bookingService.Cancel(c.Request.Context(), bookingID, userCtx.Username)
	if err != nil {
		if domain.IsConflict(err) || domain.IsAuthorization(err) {
			h.safeLogBookingRejected(c.Request.Context(), userCtx.Username, bookingID, "", "",
				utils.GetRealIP(c), utils.GetUserAgent(c), err)
		}
		respondDomainError(c, h.logger, err)
		return
	}

	h.safeLogBookingCancelled(c.Request.Context(), booking, utils.GetRealIP(c), utils.GetUserAgent(c))

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking cancelled successfully",
		"booking": booking,
	})
}

// DownloadTicket streams the PDF e-ticket of one of the caller's bookings
// @Summary Download e-ticket
// @Tags Bookings
// @Produce application/pdf
// @Param id path string true "Booking ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/ticket [get]
func (h *BookingHandler) DownloadTicket(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Unauthorized"})
		return
	}

	pdf, filename, err := h.bookingService.RenderTicket(c.Request.Context(), c.Param("id"), userCtx.Username)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
