// SPDX-License-Identifier: MIT

// Package server serves the charts to browser viewers: a websocket that
// receives a frame per redraw, single chart PNGs, a health check and the
// Prometheus metrics.
package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"prosody/internal/config"
	applog "prosody/internal/log"
	"prosody/internal/metrics"
	"prosody/internal/render"
	"prosody/internal/transport"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Options configure a Server.
type Options struct {
	Config   config.ViewerConfig
	State    State
	Renderer *render.Renderer
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // nil disables /metrics
	Redraw   func()              // called after a viewer resizes
}

// Server is the viewer HTTP server.
type Server struct {
	cfg       config.ViewerConfig
	state     State
	renderer  *render.Renderer
	redraw    func()
	hub       *transport.WebSocketTransport
	publisher *Publisher
	engine    *gin.Engine
}

// New wires the websocket hub, the frame publisher and the routes.
func New(opts Options) *Server {
	s := &Server{
		cfg:      opts.Config,
		state:    opts.State,
		renderer: opts.Renderer,
		redraw:   opts.Redraw,
	}
	if s.redraw == nil {
		s.redraw = func() {}
	}

	s.hub = transport.NewWebSocketTransport(s.handleMessage, opts.Metrics.SetViewers)
	s.publisher = NewPublisher(opts.State, opts.Renderer, s.hub, s.hub.Clients, opts.Metrics)

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger())

	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/ws", gin.WrapH(s.hub))
	s.engine.GET("/charts/:name", s.handleChart)
	if opts.Gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Publisher returns the frame publisher feeding the websocket.
func (s *Server) Publisher() *Publisher {
	return s.publisher
}

// Viewers returns the number of connected viewers.
func (s *Server) Viewers() int {
	return s.hub.Clients()
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		applog.Infof("Viewer: Listening on http://%s", s.cfg.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	applog.Infof("Viewer: Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close disconnects every viewer.
func (s *Server) Close() error {
	return s.hub.Close()
}

func (s *Server) handleMessage(msg transport.Message) {
	switch msg.Type {
	case transport.MessageResize:
		if msg.Width <= 0 {
			return
		}
		applog.Debugf("Viewer: Resize to %d", msg.Width)
		s.renderer.Resize(msg.Width)
		s.redraw()
	default:
		applog.Debugf("Viewer: Ignoring message %q", msg.Type)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"viewers": s.hub.Clients(),
		"sample":  s.state.Sample(),
	})
}

func (s *Server) handleChart(c *gin.Context) {
	name, ok := strings.CutSuffix(c.Param("name"), ".png")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "charts are served as .png"})
		return
	}
	chart, err := render.ParseChart(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	cursor := render.NoCursor
	if t, ok := s.state.Cursor(); ok {
		cursor = render.At(t)
	}

	var buf bytes.Buffer
	if err := s.renderer.WritePNG(&buf, chart, s.state.Charts(), cursor); err != nil {
		applog.Errorf("Viewer: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		applog.Debugf("Viewer: %s %s %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
