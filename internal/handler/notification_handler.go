package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"Debate_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	svc    *service.NotificationService
	logger *slog.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

func (h *NotificationHandler) List(c *gin.Context) {
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	unread := c.Query("unread") == "true"
	rows, next, err := h.svc.List(c.Request.Context(), usernameFromCtx(c), unread, cursor, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows, "next_cursor": next})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid notification id"})
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), usernameFromCtx(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}
