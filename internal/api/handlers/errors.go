package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"evhub/internal/ev"
)

// respondError maps a hub or provider failure onto an HTTP status and the
// shared error body shape
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ev.ErrConnectionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Connection not found",
			"code":  "CONNECTION_NOT_FOUND",
		})
		return
	case errors.Is(err, ev.ErrVehicleNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Vehicle not found",
			"code":  string(ev.CodeVehicleNotFound),
		})
		return
	case errors.Is(err, ev.ErrConnectionExists):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Connection already exists",
			"code":  "CONNECTION_EXISTS",
		})
		return
	case errors.Is(err, ev.ErrManufacturerUnknown):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown manufacturer",
			"code":  "MANUFACTURER_UNKNOWN",
		})
		return
	}

	var perr *ev.ProviderError
	if errors.As(err, &perr) {
		c.JSON(statusForCode(perr.Code), gin.H{
			"error": perr.Message,
			"code":  string(perr.Code),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
		"code":  "INTERNAL_ERROR",
	})
}

// statusForCode converts a taxonomy code into the status this API reports.
// Provider auth failures are upstream problems here, not problems with the
// caller's API key.
func statusForCode(code ev.ErrorCode) int {
	switch code {
	case ev.CodeInvalidRequest:
		return http.StatusBadRequest
	case ev.CodeVehicleNotFound:
		return http.StatusNotFound
	case ev.CodeRateLimited:
		return http.StatusTooManyRequests
	case ev.CodeNotSupported:
		return http.StatusNotImplemented
	case ev.CodeVehicleAsleep, ev.CodeVehicleOffline:
		return http.StatusServiceUnavailable
	case ev.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
