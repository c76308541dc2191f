package main

import (
	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/httpapi"
	"aurora-dashboard/internal/ingest"
	"aurora-dashboard/internal/rbac"
)

type routeDeps struct {
	auth     gin.HandlerFunc
	handlers httpapi.Handlers
	webhook  ingest.Handler
	health   httpapi.Health
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", d.health.Live)
	r.GET("/readyz", d.health.Ready)

	// Workflow-engine webhook (public, CORS open).
	r.OPTIONS("/webhooks/n8n", d.webhook.Options)
	r.POST("/webhooks/n8n", d.webhook.Receive)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(d.auth, rbac.RequireCustomer())
	{
		h := d.handlers

		v1.GET("/stats", h.GetStats)
		v1.GET("/agents", h.ListAgents)

		callsGroup := v1.Group("/calls")
		{
			callsGroup.GET("", h.ListCalls)
			callsGroup.GET("/new", h.HasNewCalls)
			callsGroup.POST("/sync", h.SyncCalls)
			callsGroup.GET("/:id/rating", h.RateCall)
		}

		eventsGroup := v1.Group("/events")
		{
			eventsGroup.GET("", h.ListEvents)
			eventsGroup.GET("/stream", h.StreamEvents)
			eventsGroup.DELETE("", h.ClearEvents)
			eventsGroup.DELETE("/:id", h.DismissEvent)
			eventsGroup.POST("/:id/pickup", h.PickupEvent)
		}

		// Only account managers may change provider credentials.
		settings := v1.Group("/settings")
		settings.Use(rbac.RequireAnyRole(rbac.Managers...))
		{
			settings.PUT("/provider-key", h.SetProviderKey)
		}
	}
}
