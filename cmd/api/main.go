package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifequest/internal/api"
	"lifequest/internal/api/handlers/health"
	"lifequest/internal/core/ai/openrouter"
	"lifequest/internal/core/ai/service"
	"lifequest/internal/core/grocery"
	"lifequest/internal/core/mealplan"
	"lifequest/internal/core/news"
	"lifequest/internal/core/preferences"
	"lifequest/internal/core/upsert"
	"lifequest/internal/infrastructure/cache"
	"lifequest/internal/infrastructure/config"
	"lifequest/internal/infrastructure/edamam"
	"lifequest/internal/infrastructure/newsapi"
	"lifequest/internal/infrastructure/storage"
	"lifequest/internal/infrastructure/storage/memory"
	"lifequest/internal/infrastructure/storage/postgres"
	"lifequest/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（.env 可有可無）
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
		zap.String("openrouter_api_key", common.MaskSecret(cfg.OpenRouter.APIKey)),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
		zap.String("database_driver", cfg.Database.Driver),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	store, err := openStore(startCtx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize store", zap.Error(err))
	}
	defer store.Close()

	cacheStore, err := cache.New(startCtx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}
	if cacheStore != nil {
		defer cacheStore.Close()
	}

	completer := service.NewService(openrouter.NewClient(cfg.OpenRouter), cacheStore)
	defer completer.Close()

	upserter := upsert.New(store, upsert.Policy{
		DailyCap:    cfg.Limits.DailyMealCap,
		LifetimeCap: cfg.Limits.LifetimeMealCap,
	})

	var clock common.Clock
	meals := mealplan.NewService(completer, store, upserter, clock)
	checks := map[string]health.Pinger{"store": store}
	if cacheStore != nil {
		checks["cache"] = cacheStore
	}

	router := api.SetupRouter(cfg, api.Services{
		Meals:        meals,
		Grocery:      grocery.NewService(completer, store),
		News:         news.NewService(completer, store, newsapi.NewClient(cfg.NewsAPI, cacheStore), cfg.Limits.NewsItems, clock),
		Preferences:  preferences.NewService(store, clock),
		RecipeSearch: edamam.NewClient(cfg.Edamam, cacheStore),
		HealthChecks: checks,
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
			zap.Int("port", cfg.Server.Port),
			zap.String("model", completer.Model()),
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}

// openStore 依設定選擇儲存：postgres 會確保資料表存在
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.Database.Driver == "memory" {
		common.LogWarn("Using in-memory store, data is lost on restart")
		return memory.New(nil), nil
	}

	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	store := postgres.New(pool, nil)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}
