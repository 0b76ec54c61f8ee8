package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dermalab/dermacare-backend/internal/handlers"
	"github.com/dermalab/dermacare-backend/internal/middleware"
)

type RouterConfig struct {
	AllowedOrigins        string
	AuthHandler           *handlers.AuthHandler
	AuthMiddleware        *middleware.AuthMiddleware
	ProfileHandler        *handlers.ProfileHandler
	RecommendationHandler *handlers.RecommendationHandler
	PlanHandler           *handlers.PlanHandler
	CatalogHandler        *handlers.CatalogHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := []string{"http://localhost:3000", "http://localhost:5173"}
	if cfg.AllowedOrigins != "" {
		origins = strings.Split(cfg.AllowedOrigins, ",")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/api/register", cfg.AuthHandler.Register)
	router.POST("/api/login", cfg.AuthHandler.Login)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	// Profile
	api.POST("/profile", cfg.ProfileHandler.Submit)
	api.GET("/profile", cfg.ProfileHandler.Current)
	// Recommendations
	api.GET("/recommendations", cfg.RecommendationHandler.GetRecommendations)
	// Plan
	api.GET("/plan", cfg.PlanHandler.GetPlan)
	api.POST("/plan", cfg.PlanHandler.GeneratePlan)
	// Catalog
	api.GET("/rules", cfg.CatalogHandler.ListRules)
	api.GET("/products", cfg.CatalogHandler.ListProducts)

	return router
}
