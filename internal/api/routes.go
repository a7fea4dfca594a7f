package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kvanzuijlen/parq/internal/api/handlers"
	_ "github.com/kvanzuijlen/parq/internal/api/docs" // swagger docs
)

// RegisterRoutes wires h's handlers onto r under /api/v1, plus the
// Swagger UI at /swagger/*any.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.GET("/health", h.Health)
	v1.GET("/stats", h.Stats)
	v1.GET("/resolve", h.Resolve)
}
