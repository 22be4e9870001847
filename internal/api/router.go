package api

import (
	"context"
	"net/http"
	"time"

	"recipe-importer/internal/api/handlers/health"
	"recipe-importer/internal/api/handlers/pipeline"
	"recipe-importer/internal/api/middleware"
	"recipe-importer/internal/core/analysis"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/core/scheduler"
	"recipe-importer/internal/core/storage"
	"recipe-importer/internal/core/upload"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 請求超時
	timeoutDuration = 120 * time.Second
	// 請求體大小限制 (10MB)
	maxBodySize = 10 << 20
)

// Services 路由依賴的服務集合，由 main 組裝
type Services struct {
	Store     storage.Store
	Scheduler scheduler.Scheduler
	Uploads   *upload.Service
	Analyses  *analysis.Service
	Builder   *recipe.Builder
	Recipes   *recipe.Service
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc *Services) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 限流
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 請求超時
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  "REQUEST_TIMEOUT",
			})
			c.Abort()
		}
	})

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg, svc.Store, svc.Scheduler)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	uploadHandler := pipeline.NewUploadHandler(svc.Uploads)
	analysisHandler := pipeline.NewAnalysisHandler(svc.Analyses, svc.Builder)
	recipeHandler := pipeline.NewRecipeHandler(svc.Recipes)

	// API 路由組
	api := router.Group("/api/v1")
	{
		// 上傳與匯入：去重避免連點重複觸發抽取
		uploadGroup := api.Group("/uploads")
		uploadGroup.Use(middleware.Deduplication(cfg))
		{
			uploadGroup.POST("", uploadHandler.Register)
			uploadGroup.GET("/:id", uploadHandler.Get)
		}

		importGroup := api.Group("/imports")
		importGroup.Use(middleware.Deduplication(cfg))
		{
			importGroup.POST("/url", uploadHandler.ImportURL)
		}

		// 分析任務
		analysisGroup := api.Group("/analyses")
		{
			analysisGroup.GET("/:id", analysisHandler.Get)
			analysisGroup.POST("/:id/recipe", analysisHandler.CreateRecipe)
			analysisGroup.POST("/backfill", analysisHandler.Backfill)
		}

		// 食譜
		recipeGroup := api.Group("/recipes")
		{
			recipeGroup.POST("", recipeHandler.Create)
			recipeGroup.GET("", recipeHandler.List)
			recipeGroup.GET("/search", recipeHandler.Search)
			recipeGroup.GET("/:id", recipeHandler.Get)
			recipeGroup.PATCH("/:id", recipeHandler.Update)
			recipeGroup.POST("/:id/favorite", recipeHandler.ToggleFavorite)
			recipeGroup.DELETE("/:id", recipeHandler.Delete)
		}
	}

	common.LogInfo("Router setup completed",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router
}
