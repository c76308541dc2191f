package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/events"
	"aurora-dashboard/pkg/logger"
)

// MaxBodyBytes caps webhook bodies.
const MaxBodyBytes = 1 << 20

// Publisher announces stored events. Failures never affect the response.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Handler is the public webhook endpoint called by the workflow engine.
//
// Exactly one event is written per successful request; a failed request
// writes nothing. Ingestion never retries.
type Handler struct {
	Events    events.Repository
	Publisher Publisher
	Now       func() time.Time
}

func (h Handler) Options(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.String(http.StatusOK, "ok")
}

func fail(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func (h Handler) Receive(c *gin.Context) {
	log := logger.FromGin(c)
	c.Header("Access-Control-Allow-Origin", "*")

	if h.Events == nil {
		fail(c, "event store not configured")
		return
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		fail(c, ErrInvalidPayload.Error())
		return
	}

	req, err := Parse(raw)
	if err != nil {
		log.Warn("webhook rejected", "err", err)
		fail(c, err.Error())
		return
	}
	c.Set(logger.CustomerIDKey, req.CustomerID)
	if req.Wrapped {
		log.Warn("webhook carried an HTTP response wrapper instead of the transfer request", "customer_id", req.CustomerID)
	}

	stored, err := json.Marshal(events.StoredPayload{
		Body:   req.Body,
		Type:   nullable(req.CallType),
		CallID: nullable(req.CallID),
		Valeur: req.Valeur,
	})
	if err != nil {
		fail(c, fmt.Sprintf("encode payload: %v", err))
		return
	}

	e, err := h.Events.Insert(c.Request.Context(), events.Event{
		CustomerID: req.CustomerID,
		EventType:  events.EventTypeToolCall,
		Payload:    stored,
		CallID:     req.CallID,
		CallType:   req.CallType,
		CreatedAt:  now().UTC(),
	})
	if err != nil {
		log.Error("event insert failed", "customer_id", req.CustomerID, "err", err)
		fail(c, fmt.Sprintf("insert failed: %v", err))
		return
	}

	if h.Publisher != nil {
		if err := h.Publisher.Publish(c.Request.Context(), e); err != nil {
			log.Warn("event publish failed", "event_id", e.ID, "err", err)
		}
	}

	log.Info("webhook event stored", "event_id", e.ID, "call_id", e.CallID, "call_type", e.CallType)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("payload stored for customer %d", req.CustomerID),
	})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
