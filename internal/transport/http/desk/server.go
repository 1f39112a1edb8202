// Package deskhttp is the operator-facing HTTP surface: ledger views,
// the edit workflow, and the stage/confirm protocol, all delegating to
// the desk service.
package deskhttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tradedesk/internal/desk"
	"tradedesk/internal/gateway/backend"
	"tradedesk/internal/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	addr      string
	router    *gin.Engine
	desk      *desk.Service
	analytics AnalyticsSource
}

// AnalyticsSource provides the read-only metrics snapshot. Implemented by
// the backend client; nil disables the endpoint.
type AnalyticsSource interface {
	FetchAnalytics(ctx context.Context) (map[string]map[string]backend.Metrics, error)
}

type ServerConfig struct {
	Addr      string
	Desk      *desk.Service
	Analytics AnalyticsSource
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Desk == nil {
		return nil, errors.New("desk http server requires the desk service")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{addr: cfg.Addr, router: router, desk: cfg.Desk, analytics: cfg.Analytics}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := router.Group("/api/desk")
	api.GET("/orders", s.getOrders)
	api.GET("/status", s.getStatus)
	api.GET("/catalog", s.getCatalog)
	api.POST("/catalog", s.postCatalog)
	api.POST("/refresh", s.postRefresh)
	api.POST("/persist", s.postPersist)
	api.GET("/edit", s.getEdit)
	api.POST("/edit/begin", s.postEditBegin)
	api.POST("/edit/new", s.postEditNew)
	api.POST("/edit/fields", s.postEditFields)
	api.POST("/edit/cancel", s.postEditCancel)
	api.POST("/edit/submit", s.postEditSubmit)
	api.POST("/close", s.postClose)
	api.GET("/pending", s.getPending)
	api.POST("/confirm", s.postConfirm)
	api.POST("/cancel", s.postCancel)
	if s.analytics != nil {
		api.GET("/data", s.getAnalytics)
	}

	return s, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
