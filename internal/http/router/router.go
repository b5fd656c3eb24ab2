package router

import (
	"github.com/gin-gonic/gin"
	"mathmotion.app/studio/internal/http/handler"
	"mathmotion.app/studio/internal/job"
	"mathmotion.app/studio/internal/queue"
)

func SetupRoutes(router *gin.Engine, registry *job.Registry, producer queue.Producer) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		videoHandler := handler.NewVideoHandler(registry, producer)
		videos := v1.Group("/videos")
		{
			videos.POST("", videoHandler.Create)
			videos.GET("/:id", videoHandler.Status)
		}
	}
}
