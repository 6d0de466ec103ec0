package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"evhub/internal/ev"
	"evhub/internal/hub"
)

// AuthHandler handles OAuth flows against manufacturer APIs
type AuthHandler struct {
	hub    *hub.Hub
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(hub *hub.Hub, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{hub: hub, logger: logger}
}

// ListManufacturers returns the manufacturers with registered adapters
// GET /manufacturers
func (h *AuthHandler) ListManufacturers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"manufacturers": h.hub.GetSupportedManufacturers(),
	})
}

// GetAuthorizationURL returns the provider OAuth URL for a manufacturer
// GET /auth/:manufacturer/url?state=...
func (h *AuthHandler) GetAuthorizationURL(c *gin.Context) {
	manufacturer, err := ev.ParseManufacturer(c.Param("manufacturer"))
	if err != nil {
		respondError(c, err)
		return
	}

	url := h.hub.GetAuthorizationURL(manufacturer, c.Query("state"))
	if url == "" {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "No adapter registered for manufacturer",
			"code":  string(ev.CodeNotSupported),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"manufacturer": manufacturer,
		"url":          url,
	})
}

// CompleteOAuthRequest is the callback payload
type CompleteOAuthRequest struct {
	Code   string `json:"code" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
}

// CompleteOAuth exchanges an authorization code for a pending connection
// POST /auth/:manufacturer/callback
func (h *AuthHandler) CompleteOAuth(c *gin.Context) {
	manufacturer, err := ev.ParseManufacturer(c.Param("manufacturer"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req CompleteOAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "code and user_id are required",
			"code":  "INVALID_REQUEST_BODY",
		})
		return
	}

	result, err := h.hub.CompleteOAuth(c.Request.Context(), manufacturer, req.Code, req.UserID)
	if err != nil {
		h.logger.Error("OAuth completion failed",
			"component", "api",
			"manufacturer", manufacturer,
			"user_id", req.UserID,
			"error", err,
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"connection_id": result.Connection.ID,
		"user_id":       result.Connection.UserID,
		"vehicle_id":    result.Connection.VehicleID,
		"manufacturer":  result.Connection.Manufacturer,
		"status":        result.Connection.Status,
	})
}
