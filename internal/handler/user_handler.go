package handler

import (
	"log/slog"
	"net/http"

	"Debate_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc    *service.AnonymizationService
	logger *slog.Logger
}

func NewUserHandler(svc *service.AnonymizationService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// self 只允许操作自己的数据
func (h *UserHandler) self(c *gin.Context) (string, bool) {
	username := c.Param("username")
	if username != usernameFromCtx(c) {
		c.JSON(http.StatusForbidden, gin.H{"msg": "can only access your own activity"})
		return "", false
	}
	return username, true
}

// Activity 注销前的活动概览
func (h *UserHandler) Activity(c *gin.Context) {
	username, ok := h.self(c)
	if !ok {
		return
	}
	sum, err := h.svc.ActivitySummary(c.Request.Context(), username)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Anonymize 注销时匿名化历史内容，支持 cursor 续跑
func (h *UserHandler) Anonymize(c *gin.Context) {
	username, ok := h.self(c)
	if !ok {
		return
	}
	stats, err := h.svc.AnonymizeFrom(c.Request.Context(), username, c.Query("cursor"))
	if err != nil {
		if service.IsKind(err, service.KindUnavailable) && stats.Cursor != "" {
			h.logger.WarnContext(c.Request.Context(), "anonymization interrupted", "username", username, "cursor", stats.Cursor, "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"msg": "anonymization interrupted, retry with cursor", "stats": stats})
			return
		}
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
