package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/middleware"
	"github.com/applypilot/applypilot/internal/models"
	"github.com/applypilot/applypilot/internal/queue"
	"github.com/applypilot/applypilot/internal/services"
)

type AutoApplyHandler struct {
	Queue   *queue.Queue
	Billing *services.BillingService
}

func NewAutoApplyHandler(q *queue.Queue, billing *services.BillingService) *AutoApplyHandler {
	return &AutoApplyHandler{Queue: q, Billing: billing}
}

// Scan is POST /api/auto-apply/scan: enqueue an on-demand search-and-match run
// for the caller. A scan already in flight for the user answers 409 before any
// quota is consumed; only a request that actually creates a job counts against
// the monthly scan limit.
func (h *AutoApplyHandler) Scan(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	active, err := h.Queue.HasActive(ctx, models.JobTypeScan, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if active {
		respondError(c, common.ConflictError("a scan is already queued or running"))
		return
	}
	if err := h.Billing.CheckAndConsume(ctx, user, models.FeatureScan); err != nil {
		respondError(c, err)
		return
	}
	job, created, err := h.Queue.EnqueueUnique(ctx, models.JobTypeScan, &user.ID, nil, 7)
	if err != nil {
		respondError(c, err)
		return
	}
	if !created {
		respondError(c, common.ConflictError("a scan is already queued or running"))
		return
	}
	respondCreated(c, job)
}
