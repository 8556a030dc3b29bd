package handlers

import (
	"context"

	"github.com/nextstop/booking-backend/internal/models"
)

// Audit writes never fail the request and are not cancelled with it.

func (h *BookingHandler) logAuditError(operation string, err error) {
	if err != nil {
		h.logger.WithField("operation", operation).WithError(err).Error("Audit write failed")
	}
}

func (h *BookingHandler) safeLogBookingCreated(ctx context.Context, booking *models.Booking, ipAddress, userAgent string) {
	if h.auditService == nil {
		return
	}
	err := h.auditService.LogBookingCreated(context.WithoutCancel(ctx), booking, ipAddress, userAgent)
	h.logAuditError("LogBookingCreated", err)
}

func (h *BookingHandler) safeLogBookingCancelled(ctx context.Context, booking *models.Booking, ipAddress, userAgent string) {
	if h.auditService == nil {
		return
	}
	err := h.auditService.LogBookingCancelled(context.WithoutCancel(ctx), booking, ipAddress, userAgent)
	h.logAuditError("LogBookingCancelled", err)
}

func (h *BookingHandler) safeLogBookingRejected(ctx context.Context, username, bookingID, busID, journeyDate, ipAddress, userAgent string, reason error) {
	if h.auditService == nil {
		return
	}
	err := h.auditService.LogBookingRejected(context.WithoutCancel(ctx), username, bookingID, busID, journeyDate, ipAddress, userAgent, reason)
	h.logAuditError("LogBookingRejected", err)
}
