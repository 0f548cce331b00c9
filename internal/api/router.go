package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/middleware"
	"github.com/wfunc/bingo-game/internal/service"
	ws "github.com/wfunc/bingo-game/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterConfig 路由配置
type RouterConfig struct {
	Mode        string // debug, release, test
	PublicURL   string // 加入链接前缀
	OpenAPIFile string
}

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	services       *service.Services
	authHandler    *AuthHandler
	gameHandler    *GameHandler
	playerHandler  *PlayerHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	openAPIFile    string
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, services *service.Services, hub *ws.Hub, cfg RouterConfig, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.OpenAPIFile == "" {
		cfg.OpenAPIFile = defaultOpenAPIFile
	}

	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.Logger(log))

	router := &Router{
		engine:         engine,
		db:             db,
		services:       services,
		authHandler:    NewAuthHandler(services.Auth, log),
		gameHandler:    NewGameHandler(services.Game, services.Lifecycle, cfg.PublicURL, log),
		playerHandler:  NewPlayerHandler(services.Player, log),
		wsHandler:      NewWebSocketHandler(hub, services.Game, log),
		authMiddleware: middleware.NewAuthMiddleware(services.Auth),
		openAPIFile:    cfg.OpenAPIFile,
		log:            log,
	}

	// 设置路由
	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// 接口文档
	r.registerOpenAPIRoutes()
	registerSwaggerRoutes(r.engine)

	requireIdentity := r.authMiddleware.RequireIdentity()
	optionalIdentity := r.authMiddleware.OptionalIdentity()

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 身份（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/anonymous", r.authHandler.Anonymous)
			auth.GET("/me", requireIdentity, r.authHandler.Me)
		}

		v1.POST("/prompts/generate", requireIdentity, r.gameHandler.GeneratePrompts)

		games := v1.Group("/games")
		{
			games.POST("", requireIdentity, r.gameHandler.Create)
			games.GET("", requireIdentity, r.gameHandler.List)
			games.GET("/:id", r.gameHandler.Get)
			games.PUT("/:id/prompts", requireIdentity, r.gameHandler.UpdatePrompts)
			games.GET("/:id/leaderboard", r.gameHandler.Leaderboard)
			games.GET("/:id/qr.png", r.gameHandler.QRCode)

			// 生命周期
			games.POST("/:id/start", requireIdentity, r.gameHandler.Start)
			games.POST("/:id/advance", r.gameHandler.Advance)
			games.POST("/:id/force-advance", requireIdentity, r.gameHandler.ForceAdvance)
			games.POST("/:id/force-end", requireIdentity, r.gameHandler.ForceEnd)

			// 玩家
			games.POST("/:id/players", requireIdentity, r.playerHandler.Join)
			games.GET("/:id/players", r.playerHandler.List)
			games.GET("/:id/players/:pid", r.playerHandler.Get)
			games.PUT("/:id/players/:pid/squares/:index", requireIdentity, r.playerHandler.SetSquare)
			games.POST("/:id/players/:pid/submit", requireIdentity, r.playerHandler.Submit)
			games.GET("/:id/players/:pid/questions", r.playerHandler.Questions)
		}
	}

	// WebSocket路由
	r.engine.GET("/ws/games/:id", optionalIdentity, r.wsHandler.GameWebSocket)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		appErr := apperrors.New(apperrors.ErrNotFound, "接口不存在")
		c.JSON(http.StatusNotFound, apperrors.NewErrorResponse(appErr, c.GetString(middleware.ContextRequestID)))
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	// 检查数据库连接
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Handler 作为 http.Handler 使用
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
