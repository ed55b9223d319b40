package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/chart_editor_server/config"
	"github.com/qs3c/chart_editor_server/internal/api/handler"
	"github.com/qs3c/chart_editor_server/internal/api/middleware"
	"github.com/qs3c/chart_editor_server/internal/pkg/logger"
	"github.com/qs3c/chart_editor_server/internal/service"
)

type Router struct {
	authHandler      *handler.AuthHandler
	userHandler      *handler.UserHandler
	quotaHandler     *handler.QuotaHandler
	chartHandler     *handler.ChartHandler
	galleryHandler   *handler.GalleryHandler
	websocketHandler *handler.WebSocketHandler
	quotaService     *service.QuotaService
	cfg              *config.Config
	logger           *zap.Logger
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	quotaHandler *handler.QuotaHandler,
	chartHandler *handler.ChartHandler,
	galleryHandler *handler.GalleryHandler,
	websocketHandler *handler.WebSocketHandler,
	quotaService *service.QuotaService,
	cfg *config.Config,
	log *zap.Logger,
) *Router {
	return &Router{
		authHandler:      authHandler,
		userHandler:      userHandler,
		quotaHandler:     quotaHandler,
		chartHandler:     chartHandler,
		galleryHandler:   galleryHandler,
		websocketHandler: websocketHandler,
		quotaService:     quotaService,
		cfg:              cfg,
		logger:           logger.Nop(log),
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(r.logger))
	engine.Use(middleware.Logger(r.logger))
	engine.Use(middleware.CORS(r.cfg.CORS))

	secret := r.cfg.JWT.Secret
	quotaCheck := middleware.QuotaCheck(r.quotaService)

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/logout", middleware.Auth(secret), r.authHandler.Logout)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(secret))
		{
			// 用户
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.PUT("/profile", r.userHandler.UpdateProfile)
				user.GET("/quota", r.quotaHandler.GetQuota)
			}

			// 图表
			charts := authenticated.Group("/charts")
			{
				charts.POST("", quotaCheck, r.chartHandler.Create)
				charts.GET("", r.chartHandler.List)
				charts.GET("/export", r.chartHandler.Export)
				charts.GET("/:id", r.chartHandler.Get)
				charts.PUT("/:id", r.chartHandler.Update)
				charts.DELETE("/:id", r.chartHandler.Delete)
				charts.POST("/:id/duplicate", quotaCheck, r.chartHandler.Duplicate)
				charts.POST("/:id/publish", r.chartHandler.Publish)
				charts.POST("/:id/preview", r.chartHandler.UploadPreview)

				// 编辑会话
				charts.POST("/:id/draft", r.chartHandler.OpenDraft)
				charts.PATCH("/:id/draft", r.chartHandler.PatchDraft)
				charts.POST("/:id/draft/save", r.chartHandler.SaveDraft)
				charts.DELETE("/:id/draft", r.chartHandler.DiscardDraft)
			}
		}

		// 公开接口 - 画廊（可选认证）
		gallery := api.Group("/gallery")
		gallery.Use(middleware.OptionalAuth(secret))
		{
			gallery.GET("", r.galleryHandler.List)
			gallery.GET("/:id", r.galleryHandler.Get)
			gallery.POST("/:id/use", r.galleryHandler.Use)
		}

		// 画廊互动（需要认证）
		galleryAuth := api.Group("/gallery")
		galleryAuth.Use(middleware.Auth(secret))
		{
			galleryAuth.POST("/:id/favorite", r.galleryHandler.Favorite)
			galleryAuth.DELETE("/:id/favorite", r.galleryHandler.Unfavorite)
		}
	}

	return engine
}
