package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"checkin-calls/internal/observability"
	"checkin-calls/internal/telephony"
	"checkin-calls/pkg/utils"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if d.DB != nil {
			if err := utils.HealthCheck(c.Request.Context(), d.DB, 2*time.Second); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	// Provider callbacks. Audio is fetched without a signature; voice turns and
	// status callbacks must be signed.
	r.GET("/audio/cached/:id", d.Audio.Serve)
	signed := telephony.RequireSignature(d.Signatures)
	voice := r.Group("/voice")
	voice.Use(signed)
	{
		voice.POST("/:state", d.Webhooks.Voice)
	}
	r.POST("/status", signed, d.Webhooks.Status)

	r.POST("/auth/refresh", d.API.Refresh)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(d.AuthMW)
	{
		v1.POST("/calls/trigger", d.API.TriggerCall)
	}
}
