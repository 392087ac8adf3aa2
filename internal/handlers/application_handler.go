package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/dtos"
	"github.com/applypilot/applypilot/internal/middleware"
	"github.com/applypilot/applypilot/internal/models"
	"github.com/applypilot/applypilot/internal/services"
)

type ApplicationHandler struct {
	Applications *services.ApplicationService
	Billing      *services.BillingService
}

func NewApplicationHandler(apps *services.ApplicationService, billing *services.BillingService) *ApplicationHandler {
	return &ApplicationHandler{Applications: apps, Billing: billing}
}

// Create is POST /api/applications.
func (h *ApplicationHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req dtos.ApplicationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	app, err := h.Applications.Create(c.Request.Context(), user.ID, req.JobID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, app)
}

// List is GET /api/applications, optionally filtered by ?status=.
func (h *ApplicationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	apps, err := h.Applications.List(c.Request.Context(), user.ID, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, apps)
}

// Update is PUT /api/applications/:id.
func (h *ApplicationHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, common.ValidationError("invalid application id"))
		return
	}
	var req dtos.ApplicationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	app, err := h.Applications.Update(c.Request.Context(), user.ID, uint(id), req.Status, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, app)
}

// Review is POST /api/applications/:id/review: an LLM critique of the
// application's resume against the job posting.
func (h *ApplicationHandler) Review(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, common.ValidationError("invalid application id"))
		return
	}
	ctx := c.Request.Context()
	if err := h.Billing.CheckAndConsume(ctx, user, models.FeatureApplicationReview); err != nil {
		respondError(c, err)
		return
	}
	review, err := h.Applications.Review(ctx, user.ID, uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, review)
}
