package main

import (
	"fmt"
	"os"
	"time"

	rediscache "github.com/dermalab/dermacare-backend/internal/clients/redis"
	"github.com/dermalab/dermacare-backend/internal/db"
	"github.com/dermalab/dermacare-backend/internal/handlers"
	"github.com/dermalab/dermacare-backend/internal/middleware"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
	"github.com/dermalab/dermacare-backend/internal/repos"
	"github.com/dermalab/dermacare-backend/internal/server"
	"github.com/dermalab/dermacare-backend/internal/services"
	"github.com/dermalab/dermacare-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	cacheTTL := utils.GetEnvAsDuration("CACHE_TTL", time.Hour, log)
	planRetryDelay := utils.GetEnvAsDuration("PLAN_RETRY_DELAY", 150*time.Millisecond, log)
	allowedOrigins := utils.GetEnv("ALLOWED_ORIGINS", "", log)

	// Database
	dbService, err := db.New(log)
	if err != nil {
		log.Fatal("Database init failed", "error", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Fatal("Database auto migration failed", "error", err)
	}
	gdb := dbService.DB()

	// Cache. The read paths degrade to the durable store without it,
	// so a missing Redis only costs latency.
	cache, err := rediscache.NewCache(log)
	if err != nil {
		log.Warn("Redis init failed, running without cache", "error", err)
		cache = nil
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(gdb, log)
	profileRepo := repos.NewProfileRepo(gdb, log)
	ruleRepo := repos.NewRuleRepo(gdb, log)
	productRepo := repos.NewProductRepo(gdb, log)
	sessionRepo := repos.NewSessionRepo(gdb, log)
	planRepo := repos.NewPlanRepo(gdb, log)

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(log, userRepo, jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	recService := services.NewRecommendationService(log, cache, profileRepo, ruleRepo, productRepo, sessionRepo, cacheTTL)
	planService := services.NewPlanService(log, cache, profileRepo, planRepo, recService, cacheTTL, planRetryDelay)
	profileService := services.NewProfileService(log, profileRepo, recService)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(log, profileService)
	recHandler := handlers.NewRecommendationHandler(log, recService)
	planHandler := handlers.NewPlanHandler(log, planService)
	catalogHandler := handlers.NewCatalogHandler(log, ruleRepo, productRepo)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AllowedOrigins:        allowedOrigins,
		AuthHandler:           authHandler,
		AuthMiddleware:        authMiddleware,
		ProfileHandler:        profileHandler,
		RecommendationHandler: recHandler,
		PlanHandler:           planHandler,
		CatalogHandler:        catalogHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
	if cache != nil {
		_ = cache.Close()
	}
}
