package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/applypilot/applypilot/internal/dtos"
	"github.com/applypilot/applypilot/internal/middleware"
	"github.com/applypilot/applypilot/internal/models"
	"github.com/applypilot/applypilot/internal/services"
)

type ProfileHandler struct {
	Profile *services.ProfileService
}

func NewProfileHandler(profile *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{Profile: profile}
}

// Get is GET /api/profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	profile, err := h.Profile.Get(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, profile)
}

// Upsert is PUT /api/profile.
func (h *ProfileHandler) Upsert(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req dtos.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	profile, err := h.Profile.Upsert(c.Request.Context(), user.ID, &models.Profile{
		FullName:     req.FullName,
		Headline:     req.Headline,
		Summary:      req.Summary,
		Skills:       datatypes.JSONSlice[string](req.Skills),
		Locations:    datatypes.JSONSlice[string](req.Locations),
		RemoteOnly:   req.RemoteOnly,
		MinSalary:    req.MinSalary,
		YearsOfExp:   req.YearsOfExp,
		DesiredRoles: datatypes.JSONSlice[string](req.DesiredRoles),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, profile)
}

// SetAutoApply is PUT /api/auto-apply/settings.
func (h *ProfileHandler) SetAutoApply(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req dtos.AutoApplySettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.Profile.SetAutoApply(c.Request.Context(), user.ID, *req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"auto_apply_enabled": *req.Enabled})
}
