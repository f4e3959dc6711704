package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"Debate_Community/internal/model"
	"Debate_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type DebateHandler struct {
	svc    *service.DebateService
	logger *slog.Logger
}

func NewDebateHandler(svc *service.DebateService, logger *slog.Logger) *DebateHandler {
	return &DebateHandler{svc: svc, logger: logger}
}

type createDebateReq struct {
	Title      string   `json:"title" binding:"required,max=200"`
	Body       string   `json:"body" binding:"required"`
	CategoryID string   `json:"categoryId" binding:"required"`
	Refs       []string `json:"refs" binding:"omitempty,dive,url"`
	Image      string   `json:"image" binding:"omitempty,url"`
}

type updateDebateReq struct {
	Title      *string   `json:"title" binding:"omitempty,max=200"`
	Body       *string   `json:"body"`
	CategoryID *string   `json:"categoryId"`
	Refs       *[]string `json:"refs" binding:"omitempty,dive,url"`
	Image      *string   `json:"image" binding:"omitempty,url"`
}

type positionReq struct {
	Position string `json:"position" binding:"required"`
}

// Create 创建辩题
func (h *DebateHandler) Create(c *gin.Context) {
	var req createDebateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	d, err := h.svc.Create(c.Request.Context(), usernameFromCtx(c), service.CreateDebateInput{
		Title:      req.Title,
		Body:       req.Body,
		CategoryID: req.CategoryID,
		Refs:       req.Refs,
		Image:      req.Image,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *DebateHandler) Get(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *DebateHandler) List(c *gin.Context) {
	offset, limit := pageParams(c)
	list, err := h.svc.List(c.Request.Context(), offset, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

// Popular 热度排行
func (h *DebateHandler) Popular(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.svc.Popular(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *DebateHandler) Search(c *gin.Context) {
	offset, limit := pageParams(c)
	list, err := h.svc.Search(c.Request.Context(), c.Query("term"), offset, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *DebateHandler) ByCategory(c *gin.Context) {
	mode, err := service.ParseSortMode(c.Query("sort"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	offset, limit := pageParams(c)
	list, err := h.svc.ByCategory(c.Request.Context(), c.Param("id"), mode, offset, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *DebateHandler) Update(c *gin.Context) {
	var req updateDebateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	d, err := h.svc.Update(c.Request.Context(), usernameFromCtx(c), c.Param("id"), service.UpdateDebateInput{
		Title:      req.Title,
		Body:       req.Body,
		CategoryID: req.CategoryID,
		Refs:       req.Refs,
		Image:      req.Image,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DebateHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), usernameFromCtx(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPosition 表态：for / against / none
func (h *DebateHandler) SetPosition(c *gin.Context) {
	var req positionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	pos, err := model.ParsePosition(req.Position)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	res, err := h.svc.SetPosition(c.Request.Context(), c.Param("id"), usernameFromCtx(c), pos)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *DebateHandler) Follow(c *gin.Context) {
	changed, err := h.svc.Follow(c.Request.Context(), c.Param("id"), usernameFromCtx(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (h *DebateHandler) Unfollow(c *gin.Context) {
	changed, err := h.svc.Unfollow(c.Request.Context(), c.Param("id"), usernameFromCtx(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}
