package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-importer/internal/api"
	"recipe-importer/internal/core/analysis"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/core/scheduler"
	"recipe-importer/internal/core/storage"
	"recipe-importer/internal/core/upload"
	"recipe-importer/internal/core/vision"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（內含 .env 載入）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("vision_model", cfg.Vision.Model),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.Int("max_retries", cfg.Analysis.MaxRetries),
	)

	// 初始化持久層
	store, err := storage.NewRedisStore(&cfg.Redis)
	if err != nil {
		common.LogFatal("Failed to initialize store", zap.Error(err))
	}
	defer store.Close()

	// 初始化排程器
	sched := scheduler.NewManager(cfg)
	sched.Start()
	defer sched.Close()

	// 初始化服務並掛接分析完成後的自動建檔
	visionClient := vision.NewClient(cfg)
	analysisSvc := analysis.NewService(cfg, store, visionClient, sched)
	builder := recipe.NewBuilder(cfg, store, sched)
	analysisSvc.SetCompletionHook(builder.ScheduleProcessing)

	uploadSvc := upload.NewService(cfg, store, analysisSvc)
	recipeSvc := recipe.NewService(cfg, store)

	// 重啟後接續未完成的分析
	if err := analysisSvc.ResumePending(context.Background()); err != nil {
		common.LogError("Failed to resume pending analyses", zap.Error(err))
	}

	// 設置路由
	router := api.SetupRouter(cfg, &api.Services{
		Store:     store,
		Scheduler: sched,
		Uploads:   uploadSvc,
		Analyses:  analysisSvc,
		Builder:   builder,
		Recipes:   recipeSvc,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
