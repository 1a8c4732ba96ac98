package usage

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-hub/internal/shared/server/middleware"
	"resume-hub/internal/shared/server/respond"
)

// Handler exposes the owner's token usage.
type Handler struct {
	Meter *Meter
}

// Get returns the current period's consumption.
func (h *Handler) Get(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	rec, err := h.Meter.Get(c.Request.Context(), ownerID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load usage", nil)
		return
	}
	respond.OK(c, gin.H{
		"tokensUsed":  rec.TokensUsed,
		"periodStart": rec.PeriodStart,
	})
}
