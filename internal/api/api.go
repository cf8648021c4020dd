// Package api exposes the optimization service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/piwi3910/cutplan/internal/config"
	"github.com/piwi3910/cutplan/internal/logger"
	"github.com/piwi3910/cutplan/internal/metrics"
	"github.com/piwi3910/cutplan/internal/service"
)

// MaxUploadSize bounds import uploads.
const MaxUploadSize = 16 << 20

const shutdownTimeout = 10 * time.Second

type Server struct {
	svc    *service.Service
	cfg    config.ServerConfig
	router *gin.Engine
	log    *zap.SugaredLogger
}

func New(svc *service.Service, cfg config.ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		router: gin.New(),
		log:    logger.For(logger.ComponentAPI),
	}
	s.router.MaxMultipartMemory = MaxUploadSize

	access := s.log.Desugar()
	s.router.Use(ginzap.Ginzap(access, time.RFC3339, true))
	s.router.Use(ginzap.RecoveryWithZap(access, true))
	s.router.Use(observe)

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.router.Group("/api/v1", gzip.Gzip(gzip.DefaultCompression))
	{
		v1.POST("/tasks", s.submit)
		v1.GET("/tasks", s.list)
		v1.GET("/tasks/:id", s.get)
		v1.GET("/tasks/:id/result", s.result)
		v1.GET("/tasks/:id/export/:format", s.export)
		v1.POST("/tasks/:id/stop", s.stop)
		v1.DELETE("/tasks/:id", s.terminate)
		v1.POST("/import", s.importList)
	}
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}

// observe counts requests per matched route.
func observe(c *gin.Context) {
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	metrics.ObserveRequest(route, c.Writer.Status())
}
