package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"evhub/internal/api/handlers"
	"evhub/internal/api/middleware"
	"evhub/internal/hub"
)

// RouterConfig holds dependencies for the API router
type RouterConfig struct {
	Hub    *hub.Hub
	APIKey string
	Logger *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(config.Logger))
	router.Use(middleware.Logging(config.Logger))
	router.Use(middleware.ContentType())

	// Health check (no auth)
	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.GetHealth)

	// API v1 routes (with authentication)
	v1 := router.Group("/v1")
	v1.Use(authMiddleware(config.APIKey))
	{
		authHandler := handlers.NewAuthHandler(config.Hub, config.Logger)
		v1.GET("/manufacturers", authHandler.ListManufacturers)
		v1.GET("/auth/:manufacturer/url", authHandler.GetAuthorizationURL)
		v1.POST("/auth/:manufacturer/callback", authHandler.CompleteOAuth)

		vehiclesHandler := handlers.NewVehiclesHandler(config.Hub, config.Logger)
		v1.GET("/users/:user_id/vehicles", vehiclesHandler.ListVehicles)
		v1.GET("/users/:user_id/vehicles/:vehicle_id", vehiclesHandler.GetVehicle)
		v1.POST("/users/:user_id/vehicles/:vehicle_id/wake", vehiclesHandler.WakeUp)
		v1.GET("/users/:user_id/vehicles/:vehicle_id/battery", vehiclesHandler.GetBattery)
		v1.GET("/users/:user_id/vehicles/:vehicle_id/climate", vehiclesHandler.GetClimate)
		v1.GET("/users/:user_id/vehicles/:vehicle_id/location", vehiclesHandler.GetLocation)

		commandsHandler := handlers.NewCommandsHandler(config.Hub, config.Logger)
		v1.POST("/users/:user_id/vehicles/:vehicle_id/commands", commandsHandler.SendCommand)

		chargingHandler := handlers.NewChargingHandler(config.Hub, config.Logger)
		v1.GET("/users/:user_id/vehicles/:vehicle_id/charging-stations", chargingHandler.FindStations)
		v1.POST("/users/:user_id/vehicles/:vehicle_id/charging-schedule", chargingHandler.GenerateSchedule)

		connectionsHandler := handlers.NewConnectionsHandler(config.Hub, config.Logger)
		v1.GET("/users/:user_id/connections", connectionsHandler.ListConnections)
		v1.DELETE("/users/:user_id/vehicles/:vehicle_id", connectionsHandler.RemoveConnection)

		adminHandler := handlers.NewAdminHandler(config.Hub, config.Logger)
		v1.GET("/admin/cache-stats", adminHandler.GetCacheStats)
		v1.POST("/admin/cache-clear", adminHandler.ClearCaches)
	}

	return router
}

// authMiddleware verifies API key authentication
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-EVHub-Key")
		if providedKey != apiKey {
			c.JSON(401, gin.H{
				"error": "Unauthorized",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
