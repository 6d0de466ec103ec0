package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"evhub/internal/ev"
	"evhub/internal/hub"
)

// ChargingHandler serves charging station search and schedule planning
type ChargingHandler struct {
	hub    *hub.Hub
	logger *slog.Logger
}

// NewChargingHandler creates a new charging handler
func NewChargingHandler(hub *hub.Hub, logger *slog.Logger) *ChargingHandler {
	return &ChargingHandler{hub: hub, logger: logger}
}

// FindStations searches charging stations near a coordinate
// GET /users/:user_id/vehicles/:vehicle_id/charging-stations?lat=..&lon=..&radius_km=..
func (h *ChargingHandler) FindStations(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr != nil || lonErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "lat and lon query parameters are required",
			"code":  "INVALID_REQUEST_BODY",
		})
		return
	}

	radiusKm := 25.0
	if raw := c.Query("radius_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "radius_km must be a positive number",
				"code":  "INVALID_REQUEST_BODY",
			})
			return
		}
		radiusKm = parsed
	}

	stations, err := h.hub.FindChargingStations(c.Request.Context(),
		c.Param("user_id"), c.Param("vehicle_id"), lat, lon, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stations": stations})
}

// GenerateScheduleRequest is the schedule planning payload
type GenerateScheduleRequest struct {
	CurrentSoC         float64    `json:"current_soc"`
	TargetSoC          float64    `json:"target_soc" binding:"required"`
	BatteryCapacityKwh float64    `json:"battery_capacity_kwh" binding:"required"`
	MaxChargingRateKw  float64    `json:"max_charging_rate_kw"`
	ReadyBy            *time.Time `json:"ready_by"`
	MinimizeCost       bool       `json:"minimize_cost"`
	UseGridPricing     bool       `json:"use_grid_pricing"`
}

// GenerateSchedule computes a charging plan for the vehicle
// POST /users/:user_id/vehicles/:vehicle_id/charging-schedule
func (h *ChargingHandler) GenerateSchedule(c *gin.Context) {
	var req GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "target_soc and battery_capacity_kwh are required",
			"code":  "INVALID_REQUEST_BODY",
		})
		return
	}

	opts := ev.ScheduleOptions{
		CurrentSoC:         req.CurrentSoC,
		TargetSoC:          req.TargetSoC,
		BatteryCapacityKwh: req.BatteryCapacityKwh,
		MaxChargingRateKw:  req.MaxChargingRateKw,
		MinimizeCost:       req.MinimizeCost,
		UseGridPricing:     req.UseGridPricing,
	}
	if req.ReadyBy != nil {
		opts.ReadyBy = *req.ReadyBy
	}

	schedule, err := h.hub.GenerateChargingSchedule(c.Request.Context(),
		c.Param("user_id"), c.Param("vehicle_id"), opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}
