package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/theakinwande/shortlink/internal/middleware"
)

// NewRouter wires the routes documented for this service: health
// probes, the redirect hot path, and the /api/v1/urls resource.
// Authentication and rate limiting are intentionally absent — both
// are explicit non-goals of this service.
func NewRouter(urlHandler *URLHandler, healthHandler *HealthHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/live", healthHandler.Live)

	router.GET("/:shortCode", urlHandler.Redirect)

	api := router.Group("/api/v1/urls")
	{
		api.POST("/", urlHandler.Create)
		api.GET("/:shortCode", urlHandler.Get)
		api.GET("/:shortCode/stats", urlHandler.GetStats)
		api.DELETE("/:shortCode", urlHandler.Delete)
	}

	return router
}
