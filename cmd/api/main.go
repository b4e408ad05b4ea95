package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"menu-scanner/internal/api"
	"menu-scanner/internal/api/handlers/health"
	"menu-scanner/internal/core/ai/analyzer"
	"menu-scanner/internal/core/ai/cache"
	"menu-scanner/internal/core/ai/enhancer"
	"menu-scanner/internal/core/ai/gemini"
	"menu-scanner/internal/core/ai/provider"
	"menu-scanner/internal/core/ai/service"
	"menu-scanner/internal/core/analysis"
	"menu-scanner/internal/core/menu"
	"menu-scanner/internal/infrastructure/config"
	"menu-scanner/internal/infrastructure/database"
	"menu-scanner/internal/pkg/common"
	"menu-scanner/internal/store"

	"go.uber.org/zap"
)

// selectCompleter 依設定選擇 Assembler 的補完來源。auto 在有行程內 Gemini 時直接使用，
// 不經過本機 /api/gemini 與其限流
func selectCompleter(cfg config.EnhancerConfig, local provider.Completer) (provider.Completer, error) {
	switch cfg.Provider {
	case "gemini":
		if local == nil {
			return nil, fmt.Errorf("gemini provider requires GEMINI_API_KEY")
		}
		return local, nil
	case "http":
		return enhancer.NewClient(cfg.URL, cfg.Timeout), nil
	case "auto", "":
		if local != nil {
			return local, nil
		}
		return enhancer.NewClient(cfg.URL, cfg.Timeout), nil
	}
	return nil, fmt.Errorf("unknown enhancer provider %q", cfg.Provider)
}

func main() {
	// 載入設定（內含 .env）
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
		zap.String("ai_server_url", cfg.AIServer.URL),
		zap.String("enhancer_provider", cfg.Enhancer.Provider),
		zap.String("gemini_api_key", config.MaskSecret(cfg.Gemini.APIKey)),
		zap.String("gemini_model", cfg.Gemini.Model),
	)

	ctx := context.Background()
	checkers := map[string]health.Checker{}

	// 儲存層：有 DATABASE_URL 時使用 PostgreSQL
	var analyses store.AnalysisStore
	var allergies store.AllergyStore
	if cfg.Database.URL != "" {
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			common.LogFatal("Failed to connect database", zap.Error(err))
		}
		defer pool.Close()

		pg := store.NewPostgresStore(pool)
		analyses, allergies = pg, pg
		checkers["database"] = pg
	} else {
		common.LogWarn("DATABASE_URL not set, using in-memory store")
		mem := store.NewMemoryStore()
		analyses, allergies = mem, mem
	}

	// 補完快取
	var cacheStore cache.Store
	if cfg.Cache.Enabled {
		switch cfg.Cache.Backend {
		case "redis":
			rs, err := cache.NewService(ctx, cfg.Redis, cfg.Cache.TTL)
			if err != nil {
				common.LogFatal("Failed to initialize redis cache", zap.Error(err))
			}
			cacheStore = rs
			checkers["cache"] = rs
		default:
			cacheStore = cache.NewManager(cfg.Cache)
		}
		defer cacheStore.Close()
	}
	withCache := func(c provider.Completer) provider.Completer {
		if cacheStore == nil {
			return c
		}
		return cache.NewCached(c, cacheStore)
	}

	// Gemini 為選用，未設定金鑰時 /api/gemini 回報 API_KEY_MISSING
	var geminiSvc *gemini.Service
	if cfg.Gemini.APIKey != "" {
		geminiSvc, err = gemini.NewService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			common.LogFatal("Failed to initialize gemini service", zap.Error(err))
		}
		defer geminiSvc.Close()
	}

	normalizer := menu.NewNormalizer()
	enhancePolicy := service.DefaultPolicy(cfg.Enhancer.MaxAttempts, cfg.Enhancer.BaseDelay, cfg.Enhancer.Timeout)

	var local provider.Completer
	if geminiSvc != nil {
		local = geminiSvc
	}
	completer, err := selectCompleter(cfg.Enhancer, local)
	if err != nil {
		common.LogFatal("Failed to select enhancer", zap.Error(err))
	}
	common.LogInfo("Enhancer selected",
		zap.String("provider", cfg.Enhancer.Provider),
		zap.String("completer", completer.Name()),
	)
	enhanceSvc := service.NewService(withCache(completer), normalizer, enhancePolicy)

	assembler := analysis.NewAssembler(
		analyzer.NewClient(cfg.AIServer.URL, cfg.AIServer.Timeout),
		enhanceSvc,
		analyses,
		analysis.Options{
			OCRPolicy: analysis.OCRPolicy(cfg.AIServer.MaxAttempts, cfg.AIServer.RetryDelay, cfg.AIServer.Timeout),
			MaxTokens: cfg.Enhancer.MaxTokens,
		},
	)

	deps := api.Dependencies{
		Analyzer:  assembler,
		Allergies: allergies,
		Checkers:  checkers,
	}
	// /api/gemini 必須直接使用 Gemini，避免 http 補完指回自己
	if geminiSvc != nil {
		deps.Enhancer = service.NewService(withCache(geminiSvc), normalizer, enhancePolicy)
		deps.Prober = geminiSvc
	}

	router := api.SetupRouter(cfg, deps)

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
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
