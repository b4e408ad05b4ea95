package api

import (
	"time"

	"menu-scanner/internal/api/handlers/gemini"
	"menu-scanner/internal/api/handlers/health"
	"menu-scanner/internal/api/handlers/menu"
	"menu-scanner/internal/api/handlers/user"
	"menu-scanner/internal/api/middleware"
	"menu-scanner/internal/core/ai/image"
	"menu-scanner/internal/infrastructure/config"
	"menu-scanner/internal/pkg/common"
	"menu-scanner/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipart 邊界與其他欄位的額外空間
const formOverhead = 1 << 20

// Dependencies 路由需要的服務；Enhancer 與 Prober 為 nil 表示未設定 Gemini
type Dependencies struct {
	Analyzer  menu.Analyzer
	Allergies store.AllergyStore
	Enhancer  gemini.Enhancer
	Prober    gemini.Prober
	Checkers  map[string]health.Checker
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Upload.MaxSizeBytes + formOverhead))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, deps.Checkers)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	api := router.Group("/api")
	api.GET("/health", healthHandler.HealthCheck)

	auth := middleware.Auth(cfg.Auth.JWTSecret)

	menuHandler := menu.NewHandler(deps.Analyzer, deps.Allergies, image.NewProcessor(cfg.Upload.MaxSizeBytes))
	menuGroup := api.Group("/menu", auth)
	{
		menuGroup.POST("/analyze", menuHandler.HandleAnalyze)
	}

	userHandler := user.NewHandler(deps.Allergies)
	userGroup := api.Group("/user", auth)
	{
		userGroup.GET("/allergies", userHandler.HandleGetAllergies)
		userGroup.POST("/allergies", userHandler.HandleUpdateAllergies)
	}

	geminiHandler := gemini.NewHandler(deps.Enhancer, deps.Prober)
	geminiGroup := api.Group("/gemini")
	{
		geminiGroup.POST("/enhance", geminiHandler.HandleEnhance)
		geminiGroup.GET("/status", geminiHandler.HandleStatus)
	}

	router.NoRoute(func(c *gin.Context) {
		common.WriteError(c, common.ErrNotFound)
	})

	common.LogInfo("Router setup completed successfully",
		zap.Bool("gemini_configured", deps.Prober != nil),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_upload_size", cfg.Upload.MaxSizeBytes),
	)

	return router
}
