package main

import (
	"baitboard/internal/auth"
	"baitboard/internal/httpapi"
	"baitboard/internal/telephony"

	"github.com/gin-gonic/gin"
)

type webhookHandlers struct {
	incoming  telephony.IncomingWebhookHandler
	status    telephony.StatusWebhookHandler
	recording telephony.RecordingWebhookHandler
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, wh webhookHandlers, authMW gin.HandlerFunc) {
	r.GET("/healthz", h.Healthz)

	// Provider webhooks: public routes guarded by signature validation
	// inside each handler.
	r.POST("/webhooks/voice", wh.incoming.Handle)
	r.POST("/webhooks/status", wh.status.Handle)
	r.POST("/webhooks/recording", wh.recording.Handle)

	// Public read-only surface for the site and embeds.
	pub := r.Group("/public")
	{
		pub.GET("/hall-of-fame", h.HallOfFame)
		pub.GET("/calls/:id/embed", h.Embed)
	}

	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)

	// Dashboard API. Reads allow the viewer role; everything that mutates
	// is admin-only.
	v1 := r.Group("/api/v1")
	v1.Use(authMW)
	{
		read := v1.Group("", auth.RequireRole(auth.RoleViewer))
		{
			read.GET("/calls", h.ListCalls)
			read.GET("/calls/:id", h.GetCall)
			read.GET("/stats/dashboard", h.DashboardStats)
			read.GET("/stats/leaderboard", h.Leaderboard)
			read.GET("/settings", h.GetSettings)
		}

		write := v1.Group("", auth.RequireRole(auth.RoleAdmin))
		{
			write.PATCH("/calls/:id", h.PatchCall)
			write.DELETE("/calls/:id", h.DeleteCall)
			write.POST("/calls/:id/segments", h.IngestSegments)
			write.POST("/calls/:id/share-card", h.ShareCard)
			write.PUT("/settings", h.PutSettings)
		}
	}
}
