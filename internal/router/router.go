// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/otelciro/channel-sync/internal/handler"
	"github.com/otelciro/channel-sync/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterWebhook registers the inbound reservation webhook.  Channels
// authenticate with the same bearer tokens as operators; the webhook lives
// outside the /v1 operator group so its auth can diverge later without a
// route change.
func RegisterWebhook(e *echo.Echo, w *handler.WebhookHandler, jwtSecret string) {
	g := e.Group("/v1/webhooks")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.POST("/reservations", w.Receive)
}

// RegisterAPI registers the authenticated operator surface: inventory
// views and updates, overbooking reports and connection operations.
func RegisterAPI(e *echo.Echo, inv *handler.InventoryHandler, conn *handler.ConnectionHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))

	g.GET("/hotels/:hotelID/room-types/:roomTypeID/inventory", inv.GetStatus)
	g.POST("/hotels/:hotelID/room-types/:roomTypeID/inventory", inv.Update)
	g.GET("/hotels/:hotelID/room-types/:roomTypeID/overbooking", inv.Overbooking)

	g.GET("/connections", conn.List)
	g.GET("/connections/:id", conn.Get)
	g.GET("/connections/:id/checkpoints", conn.Checkpoints)
	g.POST("/connections/:id/checkpoints/:entity/reset", conn.ResetCheckpoint)
	g.GET("/connections/:id/cycles", conn.Cycles)
	g.POST("/connections/:id/sync", conn.ForceSync)
}
