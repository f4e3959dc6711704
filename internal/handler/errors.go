package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"Debate_Community/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	ContextUsernameKey = "username"
	ContextUIDKey      = "uid"
)

// writeError 按错误类型映射状态码；内部错误只返回通用信息，详情写日志
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		logger.ErrorContext(c.Request.Context(), "unexpected error", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
		return
	}
	switch se.Kind {
	case service.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"msg": se.Message})
	case service.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"msg": se.Message})
	case service.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"msg": se.Message})
	case service.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"msg": se.Message})
	case service.KindModerationRejected:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"msg": se.Message, "reason": se.Reason, "categories": se.Categories})
	case service.KindUnavailable:
		logger.ErrorContext(c.Request.Context(), "dependency unavailable", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"msg": "service temporarily unavailable"})
	default:
		logger.ErrorContext(c.Request.Context(), "internal error", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
	}
}

func usernameFromCtx(c *gin.Context) string {
	return c.GetString(ContextUsernameKey)
}

// pageParams offset/limit 分页参数，非法值交给服务层取默认
func pageParams(c *gin.Context) (int, int) {
	offset, _ := strconv.Atoi(c.Query("offset"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return offset, limit
}
