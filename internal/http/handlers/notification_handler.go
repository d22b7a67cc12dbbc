// README: Notification handlers: list and mark-read.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parcelo/internal/http/middleware"
	"parcelo/internal/modules/notification"
	"parcelo/internal/types"
)

type NotificationHandler struct {
	notification *notification.Service
}

func NewNotificationHandler(svc *notification.Service) *NotificationHandler {
	return &NotificationHandler{notification: svc}
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	list, err := h.notification.ListByUser(c.Request.Context(), types.ID(middleware.CallerUID(c)), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"notifications": list})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing notification id")
		return
	}
	if err := h.notification.MarkRead(c.Request.Context(), types.ID(id)); err != nil {
		if err == notification.ErrNotFound {
			writeError(c, http.StatusNotFound, err.Error())
			return
		}
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": "ok"})
}
