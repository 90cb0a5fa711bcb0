package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	domainbooking "storeshare/internal/domain/booking"
	domainlisting "storeshare/internal/domain/listing"
	"storeshare/internal/domain/messaging"
	"storeshare/internal/domain/pricing"
	"storeshare/internal/domain/shared/daterange"
	"storeshare/internal/domain/shared/money"
)

// respondError maps domain sentinels onto HTTP statuses. Unrecognized errors
// become opaque 500s so internal detail never leaks to clients.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, domainbooking.ErrStartInPast),
		errors.Is(err, domainbooking.ErrTotalMismatch),
		errors.Is(err, pricing.ErrInvalidPrice),
		errors.Is(err, pricing.ErrInvalidDays),
		errors.Is(err, money.ErrCurrencyMismatch),
		errors.Is(err, messaging.ErrEmptyContent),
		errors.Is(err, messaging.ErrInvalidKind),
		errors.Is(err, messaging.ErrSenderRequired),
		errors.Is(err, messaging.ErrReceiverMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domainbooking.ErrNotFound),
		errors.Is(err, domainlisting.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainlisting.ErrDatesUnavailable),
		errors.Is(err, domainlisting.ErrConcurrentUpdate),
		errors.Is(err, domainbooking.ErrConcurrentUpdate),
		errors.Is(err, domainbooking.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domainbooking.ErrCancellationWindow):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// requireUser resolves the caller's identity. Authentication sits in front of
// this service; the trusted gateway forwards the subject in X-User-ID.
func requireUser(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return "", false
	}
	return id, true
}

func roleParam(c *gin.Context) domainbooking.Role {
	if c.Query("role") == string(domainbooking.RoleHost) {
		return domainbooking.RoleHost
	}
	return domainbooking.RoleClient
}
