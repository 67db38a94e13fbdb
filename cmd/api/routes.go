package main

import (
	"github.com/gin-gonic/gin"

	"github.com/drcartoon/cartoonbox/internal/logging"
	"github.com/drcartoon/cartoonbox/internal/middleware"
)

func setupRouter(api *API, logger *logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	limiter := middleware.NewRateLimiter(10, 20)

	// Health check
	router.GET("/health", api.healthCheck)

	// Sign-in flow
	authGroup := router.Group("/auth")
	{
		authGroup.GET("/login", api.login)
		authGroup.GET("/callback", api.callback)
		authGroup.GET("/me", middleware.SessionAuth(), api.me)
		authGroup.POST("/logout", api.logout)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.OptionalSession(), middleware.RateLimit(limiter))
	{
		// Catalog browsing works signed out
		v1.GET("/catalog/search", api.searchCatalog)
		v1.GET("/catalog/:id", api.catalogDetail)

		// Library operations require a session
		lib := v1.Group("/library", middleware.SessionAuth())
		{
			lib.GET("/favorites", api.listFavorites)
			lib.PUT("/favorites/:video_id", api.toggleFavorite)

			lib.GET("/history", api.listHistory)
			lib.POST("/history", api.recordWatch)
			lib.DELETE("/history", api.clearHistory)
			lib.GET("/history/export", api.exportHistory)

			lib.GET("/progress/:video_id", api.getProgress)
			lib.PUT("/progress/:video_id", api.saveProgress)

			lib.GET("/resumables", api.listResumables)
		}
	}

	return router
}
