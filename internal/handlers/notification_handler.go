package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/middleware"
	"github.com/applypilot/applypilot/internal/services"
)

type NotificationHandler struct {
	Notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notifications: notifications}
}

// List is GET /api/notifications, with ?unread=true to filter.
func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.Notifications.List(c.Request.Context(), user.ID, unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, notifications)
}

// MarkRead is POST /api/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, common.ValidationError("invalid notification id"))
		return
	}
	notification, err := h.Notifications.MarkRead(c.Request.Context(), user.ID, uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, notification)
}
