package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/vapi"
	"aurora-dashboard/pkg/logger"
)

type agentView struct {
	Language string `json:"language"`
	AgentID  string `json:"agent_id"`
	Name     string `json:"name,omitempty"`
	// Found is nil when no provider lookup was made.
	Found *bool `json:"found,omitempty"`
}

// ListAgents returns the customer's configured agents, each checked against
// the voice provider when a lookup is wired.
func (h Handlers) ListAgents(c *gin.Context) {
	log := logger.FromGin(c)
	id, ok := customerID(c)
	if !ok {
		return
	}
	if h.Agents == nil {
		unavailable(c, "agents")
		return
	}
	ctx := c.Request.Context()

	agents, err := h.Agents.Agents(ctx, id)
	if err != nil {
		log.Error("agents lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load agents"})
		return
	}

	out := make([]agentView, 0, len(agents))
	for _, a := range agents {
		v := agentView{Language: a.Language, AgentID: a.ID}
		if h.Assistants != nil {
			found := true
			asst, err := h.Assistants.GetAssistant(ctx, a.ID)
			switch {
			case errors.Is(err, vapi.ErrNotFound):
				found = false
			case err != nil:
				found = false
				log.Warn("assistant lookup failed", "agent_id", a.ID, "err", err)
			default:
				v.Name = asst.Name
			}
			v.Found = &found
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"agents": out})
}
