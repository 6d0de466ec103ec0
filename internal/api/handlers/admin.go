package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"evhub/internal/hub"
)

// AdminHandler exposes operational endpoints
type AdminHandler struct {
	hub    *hub.Hub
	logger *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(hub *hub.Hub, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{hub: hub, logger: logger}
}

// GetCacheStats returns hit and eviction counters for every hub cache
// GET /admin/cache-stats
func (h *AdminHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.GetCacheStats())
}

// ClearCaches empties every hub cache
// POST /admin/cache-clear
func (h *AdminHandler) ClearCaches(c *gin.Context) {
	h.hub.ClearCaches()
	h.logger.Info("Caches cleared", "component", "api")
	c.Status(http.StatusNoContent)
}
