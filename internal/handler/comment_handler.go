package handler

import (
	"log/slog"
	"net/http"

	"Debate_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	svc    *service.DebateService
	logger *slog.Logger
}

func NewCommentHandler(svc *service.DebateService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{svc: svc, logger: logger}
}

type commentReq struct {
	Body     string   `json:"body" binding:"required"`
	ParentID string   `json:"parentId"`
	Refs     []string `json:"refs" binding:"omitempty,dive,url"`
	Image    string   `json:"image" binding:"omitempty,url"`
}

type reactionReq struct {
	Action string `json:"action" binding:"required,oneof=like dislike"`
	Method string `json:"method" binding:"required,oneof=add remove"`
}

// Add 发表评论，带 parentId 时为回复
func (h *CommentHandler) Add(c *gin.Context) {
	var req commentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	comment, err := h.svc.AddComment(c.Request.Context(), c.Param("id"), usernameFromCtx(c), service.CommentInput{
		Body:     req.Body,
		ParentID: req.ParentID,
		Refs:     req.Refs,
		Image:    req.Image,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) Tree(c *gin.Context) {
	tree, err := h.svc.CommentTree(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": tree})
}

// React 点赞/点踩
func (h *CommentHandler) React(c *gin.Context) {
	var req reactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	comment, err := h.svc.LikeOrDislike(c.Request.Context(), c.Param("id"), c.Param("cid"),
		service.Reaction(req.Action), service.ReactionMethod(req.Method))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}
