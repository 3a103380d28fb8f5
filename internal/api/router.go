package api

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the routes. The gin mode is the caller's concern.
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/documents", h.uploadDocument)
		v1.GET("/documents", h.listDocuments)
		v1.GET("/documents/:id", h.getDocument)
		v1.GET("/documents/:id/download", h.downloadDocument)
		v1.GET("/documents/:id/result", h.getLatestResultForDocument)
		v1.POST("/documents/:id/jobs", h.submitJob)
		v1.GET("/jobs", h.listJobs)
		v1.GET("/jobs/:id", h.getJob)
		v1.GET("/jobs/:id/result", h.getJobResult)
		v1.POST("/jobs/:id/retry", h.retryJob)
	}
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

func copyStream(c *gin.Context, r io.Reader) (int64, error) {
	return io.Copy(c.Writer, r)
}
