package handlers

import (
	"net/http"

	"campusdesk/internal/services"
	"campusdesk/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notify *services.NotificationService
}

func NewNotificationHandler(notify *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notify: notify}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	list, err := h.notify.List(ctx, user.ID, utils.ClampLimit(c.Query("limit"), 50, 200))
	if err != nil {
		respondError(c, err)
		return
	}
	unread, err := h.notify.UnreadCount(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "unread": unread})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.notify.MarkRead(c.Request.Context(), currentUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	if err := h.notify.MarkAllRead(c.Request.Context(), currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
