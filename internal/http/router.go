// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parcelo/internal/gateway"
	"parcelo/internal/http/handlers"
	"parcelo/internal/http/middleware"
	"parcelo/internal/infra"
	"parcelo/internal/modules/delivery"
	"parcelo/internal/modules/notification"
	"parcelo/internal/realtime"
)

type RouterDeps struct {
	Delivery     *delivery.Service
	Notification *notification.Service
	Gateway      *gateway.Gateway
	Hub          *realtime.Hub
	Verifier     infra.TokenVerifier
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// Websocket handshake carries its own token; auth happens in the handler.
	ws := NewWSHandler(deps.Hub, deps.Verifier, deps.Gateway)
	r.GET("/ws", ws.Serve)

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	deliveryHandler := handlers.NewDeliveryHandler(deps.Delivery, deps.Gateway)
	api.POST("/deliveries", deliveryHandler.Create)
	api.GET("/deliveries/:id", deliveryHandler.Get)
	api.POST("/deliveries/:id/accept", deliveryHandler.Accept)
	api.POST("/deliveries/:id/status", deliveryHandler.ChangeStatus)

	trackingHandler := handlers.NewTrackingHandler(deps.Gateway)
	api.POST("/deliveries/:id/location", trackingHandler.ReportLocation)
	api.GET("/deliveries/:id/tracking", trackingHandler.Snapshot)

	confirmationHandler := handlers.NewConfirmationHandler(deps.Gateway)
	api.POST("/deliveries/:id/code", confirmationHandler.IssueCode)
	api.POST("/deliveries/:id/redeem", confirmationHandler.RedeemCode)

	notificationHandler := handlers.NewNotificationHandler(deps.Notification)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)

	return r
}
