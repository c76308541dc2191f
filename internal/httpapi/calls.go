package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/calls"
	"aurora-dashboard/internal/satisfaction"
	"aurora-dashboard/pkg/logger"
)

type callView struct {
	calls.CallRecord
	Minutes          float64           `json:"minutes"`
	Satisfaction     int               `json:"satisfaction"`
	SatisfactionBand satisfaction.Band `json:"satisfactionBand"`
}

func (h Handlers) ListCalls(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Calls == nil {
		unavailable(c, "calls")
		return
	}
	id, ok := customerID(c)
	if !ok {
		return
	}
	limit, ok := limitParam(c, calls.DefaultListLimit)
	if !ok {
		return
	}

	recs, err := h.Calls.List(c.Request.Context(), id, limit)
	if err != nil {
		log.Error("call list failed", "err", err)
		recs = nil
	}
	out := make([]callView, 0, len(recs))
	for _, rec := range recs {
		score := satisfaction.FromCallRecord(rec)
		out = append(out, callView{
			CallRecord:       rec,
			Minutes:          rec.Minutes(),
			Satisfaction:     score,
			SatisfactionBand: satisfaction.BandFor(score),
		})
	}
	c.JSON(http.StatusOK, gin.H{"calls": out})
}

// RateCall returns a detailed rating for one stored call.
func (h Handlers) RateCall(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Calls == nil {
		unavailable(c, "calls")
		return
	}
	id, ok := customerID(c)
	if !ok {
		return
	}
	callID, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	rec, err := h.Calls.Get(ctx, id, callID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		log.Error("call lookup failed", "call_id", callID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load call"})
		return
	}

	rater := h.Rater
	if rater == nil {
		rater = satisfaction.NewRater(nil, nil, 0, log)
	}
	c.JSON(http.StatusOK, gin.H{"call_id": rec.ID, "rating": rater.Rate(ctx, rec)})
}

func (h Handlers) SyncCalls(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Sync == nil {
		unavailable(c, "sync")
		return
	}
	id, ok := customerID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	res, err := h.Sync.Sync(ctx, id)
	if err != nil {
		if errors.Is(err, calls.ErrSyncInProgress) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "sync already running"})
			return
		}
		log.Error("call sync failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "sync failed"})
		return
	}
	if res.New > 0 && h.Stats != nil {
		h.Stats.Invalidate(ctx, id)
	}
	h.Audit.Record(ctx, actor(c, id), audit.EventTypeSync, audit.Event{}, res)
	c.JSON(http.StatusOK, res)
}

// HasNewCalls reports true when the check itself fails so the dashboard
// offers a sync rather than hiding new calls.
func (h Handlers) HasNewCalls(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Sync == nil {
		unavailable(c, "sync")
		return
	}
	id, ok := customerID(c)
	if !ok {
		return
	}
	hasNew, err := h.Sync.HasNewCalls(c.Request.Context(), id)
	if err != nil {
		log.Warn("new-call check failed", "err", err)
		hasNew = true
	}
	c.JSON(http.StatusOK, gin.H{"hasNew": hasNew})
}
