package api

import (
	"time"

	"lifequest/internal/api/handlers"
	groceryHandler "lifequest/internal/api/handlers/grocery"
	"lifequest/internal/api/handlers/health"
	mealHandler "lifequest/internal/api/handlers/meal"
	newsHandler "lifequest/internal/api/handlers/news"
	preferencesHandler "lifequest/internal/api/handlers/preferences"
	recipeHandler "lifequest/internal/api/handlers/recipe"
	"lifequest/internal/api/middleware"
	"lifequest/internal/core/grocery"
	"lifequest/internal/core/mealplan"
	"lifequest/internal/core/news"
	"lifequest/internal/core/preferences"
	"lifequest/internal/infrastructure/config"
	"lifequest/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services 路由需要的服務，由 main 建立後注入
type Services struct {
	Meals        *mealplan.Service
	Grocery      *grocery.Service
	News         *news.Service
	Preferences  *preferences.Service
	RecipeSearch recipeHandler.Searcher
	HealthChecks map[string]health.Pinger
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
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
	router.HandleMethodNotAllowed = true
	router.NoMethod(handlers.MethodNotAllowed)
	router.NoRoute(handlers.NotFound)

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// 健康檢查與指標
	healthHandler := health.NewHandler(cfg.App.Version, svc.HealthChecks)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window).Middleware())
	}
	api.Use(middleware.Auth(cfg.Auth.JWTSecret))

	// 只有生成路由擋重複送出，清單項目操作需可連續執行
	dedup := middleware.NewDeduplicator(cfg.DedupWindow).Middleware()

	meals := mealHandler.NewHandler(svc.Meals)
	api.POST("/generate-meal-plan", dedup, meals.HandleGenerateMealPlan)
	api.POST("/log-meal", meals.HandleLogMeal)
	api.GET("/meals", meals.HandleListMeals)

	recipes := recipeHandler.NewHandler(svc.Meals, svc.RecipeSearch)
	api.POST("/find-recipe", recipes.HandleFindRecipe)
	api.POST("/save-recipe", recipes.HandleSaveRecipe)
	api.POST("/delete-recipe", recipes.HandleDeleteRecipe)
	api.POST("/search-recipes", recipes.HandleSearchRecipes)
	api.GET("/recipes", recipes.HandleListRecipes)

	lists := groceryHandler.NewHandler(svc.Grocery)
	api.POST("/generate-grocery-list", dedup, lists.HandleGenerate)
	api.GET("/grocery-list", lists.HandleGet)
	itemGroup := api.Group("/grocery-list/item")
	{
		itemGroup.POST("/add", lists.HandleAddItem)
		itemGroup.POST("/update", lists.HandleUpdateItem)
		itemGroup.POST("/remove", lists.HandleRemoveItem)
		itemGroup.POST("/toggle", lists.HandleToggleItem)
	}

	feed := newsHandler.NewHandler(svc.News)
	api.POST("/generate-news-feed", dedup, feed.HandleGenerate)
	api.GET("/news-feed", feed.HandleToday)

	prefs := preferencesHandler.NewHandler(svc.Preferences)
	api.POST("/save-preferences", prefs.HandleSaveNutrition)
	api.POST("/save-news-preferences", prefs.HandleSaveNews)
	api.GET("/preferences", prefs.HandleGet)

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("auth", cfg.Auth.JWTSecret != ""),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}
