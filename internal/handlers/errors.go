package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nextstop/booking-backend/internal/domain"
	"github.com/sirupsen/logrus"
)

// respondDomainError maps booking errors to status codes. Anything outside the
// domain taxonomy is logged and reported as a 500 without its text.
func respondDomainError(c *gin.Context, logger *logrus.Logger, err error) {
	var (
		validation    domain.ValidationError
		notFound      domain.NotFoundError
		conflict      domain.ConflictError
		authorization domain.AuthorizationError
		transient     domain.TransientStorageError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": validation.Error(),
			"details": gin.H{"field": validation.Field},
		})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": notFound.Error(),
		})
	case errors.As(err, &conflict):
		seats := conflict.Seats
		if seats == nil {
			seats = []string{}
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":   "conflict",
			"message": conflict.Error(),
			"details": gin.H{"seats": seats},
		})
	case errors.As(err, &authorization):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": authorization.Error(),
		})
	case errors.As(err, &transient):
		logger.WithFields(logrus.Fields{
			"path":     c.Request.URL.Path,
			"op":       transient.Op,
			"attempts": transient.Attempts,
			"error":    transient.Err,
		}).Warn("Storage unavailable")
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "transient_storage_error",
			"message": "The booking store is temporarily unavailable. Please retry.",
		})
	default:
		logger.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"error": err,
		}).Error("Unexpected booking error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}
}
