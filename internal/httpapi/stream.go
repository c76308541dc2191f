package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/events"
	"aurora-dashboard/pkg/logger"
)

const defaultKeepAlive = 25 * time.Second

// StreamEvents pushes the caller's new events as Server-Sent Events until
// the client disconnects.
func (h Handlers) StreamEvents(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Stream == nil {
		unavailable(c, "realtime")
		return
	}
	id, ok := customerID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	ch, cancel, err := h.Stream.Subscribe(ctx, id)
	if err != nil {
		log.Error("realtime subscribe failed", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "realtime unavailable"})
		return
	}
	defer cancel()

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	loc := h.locale(c)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"customer_id": id})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, open := <-ch:
			if !open {
				return false
			}
			if e.CustomerID != id {
				log.Error("cross-customer event dropped", "event_id", e.ID)
				return true
			}
			c.SSEvent("event", events.NewView(e, loc))
			return true
		case <-ticker.C:
			c.SSEvent("ping", h.now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
