package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/customers"
	"aurora-dashboard/internal/reporting"
	"aurora-dashboard/pkg/logger"
)

type statsResponse struct {
	reporting.StatsSnapshot
	Plan        customers.Plan `json:"plan"`
	PlanMinutes int            `json:"planMinutes"`
}

// GetStats never fails: the dashboard shows zeros when stats are unavailable.
func (h Handlers) GetStats(c *gin.Context) {
	log := logger.FromGin(c)
	id, ok := customerID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var resp statsResponse
	if h.Stats != nil {
		snap, err := h.Stats.Stats(ctx, id)
		if err != nil {
			log.Error("stats failed", "err", err)
		} else {
			resp.StatsSnapshot = snap
		}
	}
	if h.Plans != nil {
		plan, err := h.Plans.Plan(ctx, id)
		if err != nil {
			log.Warn("plan lookup failed", "err", err)
		}
		resp.Plan = plan
		resp.PlanMinutes, _ = customers.PlanMinutes(plan)
	}
	c.JSON(http.StatusOK, resp)
}
