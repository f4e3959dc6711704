package router

import (
	"log/slog"
	"net/http"

	"Debate_Community/internal/handler"
	"Debate_Community/internal/middleware"
	"Debate_Community/internal/pkg"
	"Debate_Community/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Debates       *service.DebateService
	Anonymizer    *service.AnonymizationService
	Notifications *service.NotificationService
	Verifier      *pkg.TokenVerifier
	Gatherer      prometheus.Gatherer // 为空时不暴露 /metrics
	Logger        *slog.Logger
}

func InitRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	debate := handler.NewDebateHandler(deps.Debates, logger)
	comment := handler.NewCommentHandler(deps.Debates, logger)
	user := handler.NewUserHandler(deps.Anonymizer, logger)
	notification := handler.NewNotificationHandler(deps.Notifications, logger)
	auth := middleware.AuthMiddleware(deps.Verifier)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// 辩题相关接口，读接口无需登录
	debateGroup := r.Group("/api/debates")
	{
		debateGroup.GET("", debate.List)
		debateGroup.GET("/popular", debate.Popular)
		debateGroup.GET("/search", debate.Search)
		debateGroup.GET("/category/:id", debate.ByCategory)
		debateGroup.GET("/:id", debate.Get)
		debateGroup.GET("/:id/comments/tree", comment.Tree)
	}

	authDebateGroup := r.Group("/api/debates")
	authDebateGroup.Use(auth)
	{
		authDebateGroup.POST("", debate.Create)
		authDebateGroup.PATCH("/:id", debate.Update)
		authDebateGroup.DELETE("/:id", debate.Delete)
		authDebateGroup.PUT("/:id/position", debate.SetPosition)
		authDebateGroup.POST("/:id/follow", debate.Follow)
		authDebateGroup.POST("/:id/unfollow", debate.Unfollow)
		authDebateGroup.POST("/:id/comments", comment.Add)
		authDebateGroup.POST("/:id/comments/:cid/reaction", comment.React)
	}

	// 用户数据相关接口
	userGroup := r.Group("/api/users")
	userGroup.Use(auth)
	{
		userGroup.GET("/:username/activity", user.Activity)
		userGroup.DELETE("/:username/content", user.Anonymize)
	}

	notificationGroup := r.Group("/api/notifications")
	notificationGroup.Use(auth)
	{
		notificationGroup.GET("", notification.List)
		notificationGroup.POST("/:id/read", notification.MarkRead)
	}

	return r
}
