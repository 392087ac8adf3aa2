package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/applypilot/applypilot/internal/middleware"
	"github.com/applypilot/applypilot/internal/services"
)

type BillingHandler struct {
	Billing *services.BillingService
}

func NewBillingHandler(billing *services.BillingService) *BillingHandler {
	return &BillingHandler{Billing: billing}
}

// Usage is GET /api/billing/usage: this month's consumption per feature.
func (h *BillingHandler) Usage(c *gin.Context) {
	user := middleware.CurrentUser(c)
	usage, err := h.Billing.Usage(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"plan": user.Plan, "features": usage})
}
