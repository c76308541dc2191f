package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/apikey"
	"aurora-dashboard/internal/audit"
	"aurora-dashboard/pkg/logger"
)

type providerKeyRequest struct {
	// Name defaults to the private key.
	Name  string `json:"name"`
	Value string `json:"value"`
}

var settableKeys = map[string]struct{}{
	apikey.ProviderPrivateKey: {},
	apikey.ProviderPublicKey:  {},
}

// SetProviderKey persists an operator override. The key value is never
// echoed or logged.
func (h Handlers) SetProviderKey(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Settings == nil {
		unavailable(c, "settings")
		return
	}
	id, ok := customerID(c)
	if !ok {
		return
	}

	var req providerKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Name == "" {
		req.Name = apikey.ProviderPrivateKey
	}
	if _, ok := settableKeys[req.Name]; !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown setting"})
		return
	}
	ctx := c.Request.Context()

	if err := h.Settings.SetOverride(ctx, req.Name, req.Value); err != nil {
		if errors.Is(err, apikey.ErrNoStore) {
			unavailable(c, "settings store")
			return
		}
		log.Error("setting update failed", "setting", req.Name, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	_, origin := h.Settings.Resolve(ctx, req.Name)
	h.Audit.Record(ctx, actor(c, id), audit.EventTypeProviderKey, audit.Event{},
		gin.H{"setting": req.Name, "cleared": req.Value == "", "origin": origin})
	c.JSON(http.StatusOK, gin.H{"setting": req.Name, "origin": origin})
}
