package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"evhub/internal/ev"
	"evhub/internal/hub"
)

// CommandsHandler dispatches vehicle commands through the hub
type CommandsHandler struct {
	hub    *hub.Hub
	logger *slog.Logger
}

// NewCommandsHandler creates a new commands handler
func NewCommandsHandler(hub *hub.Hub, logger *slog.Logger) *CommandsHandler {
	return &CommandsHandler{hub: hub, logger: logger}
}

// SendCommandRequest is the command payload
type SendCommandRequest struct {
	Name   string         `json:"name" binding:"required"`
	Params map[string]any `json:"params"`
}

// SendCommand dispatches a command. A refused command is still a 200: the
// outcome travels in the body, and only missing connections are errors.
// POST /users/:user_id/vehicles/:vehicle_id/commands
func (h *CommandsHandler) SendCommand(c *gin.Context) {
	var req SendCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "command name is required",
			"code":  "INVALID_REQUEST_BODY",
		})
		return
	}

	userID := c.Param("user_id")
	vehicleID := c.Param("vehicle_id")

	result, err := h.hub.SendCommand(c.Request.Context(), userID, vehicleID, req.Name, req.Params)
	if err != nil {
		respondError(c, err)
		return
	}

	if !result.Success {
		code := ev.CodeCommandFailed
		if result.Err != nil {
			code = result.Err.Code
		}
		h.logger.Info("Command refused",
			"component", "api",
			"user_id", userID,
			"vehicle_id", vehicleID,
			"command", req.Name,
			"code", code,
		)
	}

	c.JSON(http.StatusOK, result)
}
