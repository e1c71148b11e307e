package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/upload-gateway/internal/handler"
	"github.com/streamvault/upload-gateway/pkg/config"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewRouter registers the upload, health and, when given, metrics routes.
func NewRouter(cfg config.ServerConfig, h *handler.Handler, metrics http.Handler, logger *slog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.MaxMultipartMemory = cfg.MultipartMemoryMB << 20

	router.GET("/healthz", h.Health)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	upload := router.Group("/v1/upload", limitBody(cfg.MaxUploadBytes))
	{
		upload.POST("/movie/content", h.UploadMovie)
		upload.POST("/serial/content", h.UploadSerial)
		upload.POST("/anime/content", h.UploadAnime)
	}

	return router
}

func New(cfg config.ServerConfig, router http.Handler, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// limitBody caps the request body; 0 means unlimited.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			if c.Request.ContentLength > maxBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, handler.ErrorResponse{
					Message: "File is too large",
					Code:    "413",
				})
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
