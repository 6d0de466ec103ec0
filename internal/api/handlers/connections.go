package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"evhub/internal/hub"
)

// ConnectionsHandler manages the user's vehicle connections
type ConnectionsHandler struct {
	hub    *hub.Hub
	logger *slog.Logger
}

// NewConnectionsHandler creates a new connections handler
func NewConnectionsHandler(hub *hub.Hub, logger *slog.Logger) *ConnectionsHandler {
	return &ConnectionsHandler{hub: hub, logger: logger}
}

// ListConnections returns the user's connections without token material
// GET /users/:user_id/connections
func (h *ConnectionsHandler) ListConnections(c *gin.Context) {
	conns := h.hub.GetUserConnections(c.Param("user_id"))

	response := make([]gin.H, 0, len(conns))
	for _, conn := range conns {
		entry := gin.H{
			"connection_id": conn.ID,
			"user_id":       conn.UserID,
			"vehicle_id":    conn.VehicleID,
			"manufacturer":  conn.Manufacturer,
			"status":        conn.Status,
			"connected_at":  conn.ConnectedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if conn.Vehicle != nil {
			entry["vehicle"] = conn.Vehicle
		}
		if conn.LastRefreshed != nil {
			entry["last_refreshed"] = conn.LastRefreshed.Format("2006-01-02T15:04:05Z07:00")
		}
		response = append(response, entry)
	}

	c.JSON(http.StatusOK, gin.H{"connections": response})
}

// RemoveConnection disconnects a vehicle
// DELETE /users/:user_id/vehicles/:vehicle_id
func (h *ConnectionsHandler) RemoveConnection(c *gin.Context) {
	userID := c.Param("user_id")
	vehicleID := c.Param("vehicle_id")

	if err := h.hub.RemoveConnection(userID, vehicleID); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Connection removed",
		"component", "api",
		"user_id", userID,
		"vehicle_id", vehicleID,
	)
	c.Status(http.StatusNoContent)
}
