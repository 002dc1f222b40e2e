package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"slidecast/config"
	"slidecast/task"
)

func SetupRouter(baseCtx context.Context, reg *task.Registry, coord *task.Coordinator, cfg *config.Config, log *logrus.Logger) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = 32 << 20
	h := NewHandler(baseCtx, reg, coord, cfg, log)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authed := r.Group("/")
	authed.Use(AuthMiddleware(cfg))
	{
		authed.POST("/upload", h.handleUpload)
		authed.GET("/progress/:taskID", h.handleProgress)
		authed.GET("/download/:taskID", h.handleDownload)
		authed.GET("/stream/:taskID", h.handleStream)
	}
	return r
}
