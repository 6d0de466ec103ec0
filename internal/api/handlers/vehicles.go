package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"evhub/internal/hub"
)

// VehiclesHandler handles vehicle state requests
type VehiclesHandler struct {
	hub    *hub.Hub
	logger *slog.Logger
}

// NewVehiclesHandler creates a new vehicles handler
func NewVehiclesHandler(hub *hub.Hub, logger *slog.Logger) *VehiclesHandler {
	return &VehiclesHandler{hub: hub, logger: logger}
}

// ListVehicles returns all vehicles across the user's connections
// GET /users/:user_id/vehicles
func (h *VehiclesHandler) ListVehicles(c *gin.Context) {
	vehicles, err := h.hub.GetUserVehicles(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.logger.Error("Failed to list vehicles",
			"component", "api",
			"user_id", c.Param("user_id"),
			"error", err,
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

// GetVehicle returns a single vehicle snapshot
// GET /users/:user_id/vehicles/:vehicle_id
func (h *VehiclesHandler) GetVehicle(c *gin.Context) {
	vehicle, err := h.hub.GetVehicle(c.Request.Context(), c.Param("user_id"), c.Param("vehicle_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, vehicle)
}

// WakeUp wakes a sleeping vehicle and reports whether it came online
// POST /users/:user_id/vehicles/:vehicle_id/wake
func (h *VehiclesHandler) WakeUp(c *gin.Context) {
	online, err := h.hub.WakeUpVehicle(c.Request.Context(), c.Param("user_id"), c.Param("vehicle_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vehicle_id": c.Param("vehicle_id"),
		"online":     online,
	})
}

// GetBattery returns the battery snapshot
// GET /users/:user_id/vehicles/:vehicle_id/battery
func (h *VehiclesHandler) GetBattery(c *gin.Context) {
	state, err := h.hub.GetBatteryState(c.Request.Context(), c.Param("user_id"), c.Param("vehicle_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// GetClimate returns the climate snapshot
// GET /users/:user_id/vehicles/:vehicle_id/climate
func (h *VehiclesHandler) GetClimate(c *gin.Context) {
	state, err := h.hub.GetClimateState(c.Request.Context(), c.Param("user_id"), c.Param("vehicle_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// GetLocation returns the location snapshot
// GET /users/:user_id/vehicles/:vehicle_id/location
func (h *VehiclesHandler) GetLocation(c *gin.Context) {
	state, err := h.hub.GetLocation(c.Request.Context(), c.Param("user_id"), c.Param("vehicle_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}
