// Package httpapi holds the dashboard HTTP handlers.
// Keep these thin: parse/validate input, call internal services, return JSON.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/apikey"
	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/auth"
	"aurora-dashboard/internal/calls"
	"aurora-dashboard/internal/customers"
	"aurora-dashboard/internal/events"
	"aurora-dashboard/internal/notify"
	"aurora-dashboard/internal/payload"
	"aurora-dashboard/internal/reporting"
	"aurora-dashboard/internal/satisfaction"
	"aurora-dashboard/internal/vapi"
)

type StatsReader interface {
	Stats(ctx context.Context, customerID int64) (reporting.StatsSnapshot, error)
	Invalidate(ctx context.Context, customerID int64)
}

type PlanSource interface {
	Plan(ctx context.Context, customerID int64) (customers.Plan, error)
}

type AgentSource interface {
	Agents(ctx context.Context, customerID int64) ([]customers.Agent, error)
}

type AssistantLookup interface {
	GetAssistant(ctx context.Context, id string) (vapi.Assistant, error)
}

type CallLister interface {
	List(ctx context.Context, customerID int64, limit int) ([]calls.CallRecord, error)
	Get(ctx context.Context, customerID, id int64) (calls.CallRecord, error)
}

type CallRater interface {
	Rate(ctx context.Context, rec calls.CallRecord) satisfaction.Rating
}

type CallSyncer interface {
	Sync(ctx context.Context, customerID int64) (calls.SyncResult, error)
	HasNewCalls(ctx context.Context, customerID int64) (bool, error)
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, customerID int64) (<-chan events.Event, func(), error)
}

type PickupNotifier interface {
	NotifyPickup(ctx context.Context, env notify.PickupEnvelope) error
}

type SettingsWriter interface {
	Resolve(ctx context.Context, name string) (string, apikey.Origin)
	SetOverride(ctx context.Context, name, value string) error
}

// Handlers groups HTTP handlers for dependency injection.
// A nil dependency turns its routes into 503s.
type Handlers struct {
	Stats  StatsReader
	Plans  PlanSource
	Agents AgentSource
	// Assistants is optional; without it agents are listed unchecked.
	Assistants AssistantLookup
	Calls      CallLister
	// Rater defaults to keyword-only ratings.
	Rater    CallRater
	Sync     CallSyncer
	Events   events.Repository
	Stream   EventSubscriber
	Notifier PickupNotifier
	Settings SettingsWriter
	Audit    *audit.Service

	DefaultLocale payload.Locale
	// KeepAlive is the SSE ping interval.
	KeepAlive time.Duration
	Now       func() time.Time
}

const maxListLimit = 500

func unavailable(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": what + " not configured"})
}

// customerID reads the authenticated customer; it aborts with 401 when absent.
func customerID(c *gin.Context) (int64, bool) {
	id, err := auth.CustomerID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "customer_id required"})
		return 0, false
	}
	return id, true
}

func actor(c *gin.Context, customerID int64) audit.Actor {
	ctx := c.Request.Context()
	uid, _ := auth.UserID(ctx)
	role, _ := auth.Role(ctx)
	return audit.Actor{CustomerID: customerID, UserID: uid, Role: role, IP: c.ClientIP()}
}

func (h Handlers) locale(c *gin.Context) payload.Locale {
	fallback := h.DefaultLocale
	if fallback == "" {
		fallback = payload.DefaultLocale
	}
	return payload.ParseLocale(c.GetHeader("Accept-Language"), fallback)
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// limitParam parses ?limit=, falling back to def and capping at maxListLimit.
func limitParam(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
