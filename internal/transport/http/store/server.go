// Package storehttp serves the backing-store REST API the desk syncs
// against: full-snapshot documents read and written wholesale, wrapped in
// a uniform {status, data, message} envelope.
package storehttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tradedesk/internal/logger"
	"tradedesk/internal/store/snapshot"

	"github.com/gin-gonic/gin"
)

type Server struct {
	addr   string
	router *gin.Engine
	store  *snapshot.Store
}

type ServerConfig struct {
	Addr  string
	Store *snapshot.Store
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("store http server requires a snapshot store")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{addr: cfg.Addr, router: router, store: cfg.Store}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := router.Group("/api")
	api.GET("/orders", s.getOrders)
	api.POST("/orders", s.postOrders)
	api.GET("/symbols", s.getSymbols)
	api.POST("/symbols", s.postSymbols)
	api.GET("/exchanges", s.getExchanges)
	api.POST("/exchanges", s.postExchanges)
	api.GET("/data", s.getAnalytics)
	api.GET("/status", s.getStatus)

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
