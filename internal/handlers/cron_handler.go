package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/applypilot/applypilot/internal/models"
	"github.com/applypilot/applypilot/internal/queue"
)

// CronHandler exposes the scheduler's enqueue actions to an external cron
// runner. Every route sits behind the cron-secret middleware.
type CronHandler struct {
	Scheduler *queue.Scheduler
	Queue     *queue.Queue
}

func NewCronHandler(scheduler *queue.Scheduler, q *queue.Queue) *CronHandler {
	return &CronHandler{Scheduler: scheduler, Queue: q}
}

// Scan is POST /api/cron/scan: queue a SCAN for every auto-apply user.
func (h *CronHandler) Scan(c *gin.Context) {
	h.Scheduler.EnqueueScans(c.Request.Context())
	respondOK(c, gin.H{"triggered": "scan"})
}

// Cleanup is POST /api/cron/cleanup: queue a retention sweep.
func (h *CronHandler) Cleanup(c *gin.Context) {
	h.Scheduler.EnqueueCleanup(c.Request.Context())
	respondOK(c, gin.H{"triggered": "cleanup"})
}

// Notify is POST /api/cron/notify: queue a notification digest pass.
func (h *CronHandler) Notify(c *gin.Context) {
	if _, _, err := h.Queue.EnqueueUnique(c.Request.Context(), models.JobTypeSendNotification, nil, nil, 2); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"triggered": "notify"})
}
