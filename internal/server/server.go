// Package server wires the console HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/shopconsole/config"
	"github.com/ncobase/shopconsole/data"
	"github.com/ncobase/shopconsole/internal/backup"
	"github.com/ncobase/shopconsole/internal/eventlog"
	"github.com/ncobase/shopconsole/logging/logger"
	"github.com/ncobase/shopconsole/net/resp"
	"github.com/ncobase/shopconsole/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Options carries the components served by the API.
type Options struct {
	Config   *config.Config
	Data     *data.Data
	Backup   *backup.Module
	Events   *eventlog.Store
	Gatherer prometheus.Gatherer
}

// Server represents the application server.
type Server struct {
	opts   Options
	engine *gin.Engine
	http   *http.Server
}

// New creates the server and sets up its routes.
func New(opts Options) *Server {
	s := &Server{opts: opts}
	s.engine = s.setupRouter()
	s.http = &http.Server{
		Addr:              opts.Config.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRouter() *gin.Engine {
	switch mode := s.opts.Config.RunMode; mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(recoveryMiddleware())
	r.Use(otelgin.Middleware(s.opts.Config.AppName))
	r.Use(traceMiddleware())
	r.Use(loggerMiddleware())

	r.GET("/health", func(c *gin.Context) {
		resp.Success(c.Writer, map[string]string{"status": "healthy"})
	})
	if s.opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.GET("/version", func(c *gin.Context) {
		resp.Success(c.Writer, version.GetVersionInfo())
	})
	if s.opts.Data != nil {
		api.GET("/status", s.status)
	}
	if s.opts.Events != nil {
		eventlog.NewHandler(s.opts.Events).RegisterRoutes(api)
	}
	if s.opts.Backup != nil {
		s.opts.Backup.RegisterRoutes(api)
		logger.Info(context.Background(), "Registered routes for module", "module", s.opts.Backup.Name())
	}

	return r
}

func (s *Server) status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	resp.Success(c.Writer, s.opts.Data.Health(ctx))
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	logger.Infof(context.Background(), "Listening and serving HTTP on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
