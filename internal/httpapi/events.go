package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/events"
	"aurora-dashboard/internal/notify"
	"aurora-dashboard/pkg/logger"
)

func (h Handlers) ListEvents(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Events == nil {
		unavailable(c, "events")
		return
	}
	id, ok := customerID(c)
	if !ok {
		return
	}
	limit, ok := limitParam(c, events.DefaultListLimit)
	if !ok {
		return
	}

	list, err := h.Events.List(c.Request.Context(), id, limit)
	if err != nil {
		log.Error("event list failed", "err", err)
		list = nil
	}
	loc := h.locale(c)
	out := make([]events.View, 0, len(list))
	for _, e := range list {
		out = append(out, events.NewView(e, loc))
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func (h Handlers) DismissEvent(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Events == nil {
		unavailable(c, "events")
		return
	}
	id, ok := customerID(c)
	if !ok {
		return
	}
	eventID, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.Events.Delete(ctx, id, eventID); err != nil {
		if errors.Is(err, events.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		log.Error("event delete failed", "event_id", eventID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	h.Audit.Record(ctx, actor(c, id), audit.EventTypeDismiss, audit.Event{EventID: eventID}, nil)
	c.Status(http.StatusNoContent)
}

func (h Handlers) ClearEvents(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Events == nil {
		unavailable(c, "events")
		return
	}
	id, ok := customerID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	n, err := h.Events.DeleteAll(ctx, id)
	if err != nil {
		log.Error("event clear failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "clear failed"})
		return
	}
	h.Audit.Record(ctx, actor(c, id), audit.EventTypeClear, audit.Event{}, gin.H{"deleted": n})
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// PickupEvent forwards the event to the workflow engine and returns before
// delivery completes.
func (h Handlers) PickupEvent(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Events == nil || h.Notifier == nil {
		unavailable(c, "pickup")
		return
	}
	id, ok := customerID(c)
	if !ok {
		return
	}
	eventID, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	e, err := h.Events.Get(ctx, id, eventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		log.Error("event lookup failed", "event_id", eventID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if e.CallID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "event has no call id"})
		return
	}

	env := notify.PickupEnvelope{
		CallID:     e.CallID,
		CustomerID: id,
		EventType:  e.EventType,
		CallType:   e.ResolvedCallType(),
		Summary:    e.Summary(h.locale(c)),
		CreatedAt:  e.CreatedAt,
		Payload:    e.Payload,
	}
	if err := h.Notifier.NotifyPickup(ctx, env); err != nil {
		log.Warn("pickup not scheduled", "call_id", e.CallID, "err", err)
	}
	h.Audit.Record(ctx, actor(c, id), audit.EventTypePickup, audit.Event{EventID: eventID, CallID: e.CallID}, nil)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "call_id": e.CallID})
}
