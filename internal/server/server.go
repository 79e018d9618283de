// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes sessions, uploads and the analyze action over a
// JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/one-pager/internal/analysis"
	"github.com/pdiddy/one-pager/internal/profile"
	"github.com/pdiddy/one-pager/pkg/types"
)

const (
	sweepInterval  = time.Minute
	sessionMaxIdle = 30 * time.Minute
)

// Options configures a Server.
type Options struct {
	Config   types.ServerConfig
	Analyzer *analysis.Analyzer
	Registry *analysis.Registry

	// Warning is the configuration warning shown by /health when analysis
	// is disabled.
	Warning string
	Logger  *slog.Logger

	// Now overrides the clock of the rate limiter.
	Now func() time.Time
}

// Server is the HTTP API.
type Server struct {
	cfg      types.ServerConfig
	analyzer *analysis.Analyzer
	registry *analysis.Registry
	warning  string
	logger   *slog.Logger

	// limiter throttles analyze per client; nil when rate limiting is off.
	limiter *clientLimiter
}

// New returns a Server for opts.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = analysis.NewRegistry()
	}
	cfg := opts.Config
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = types.DefaultMaxUploadBytes
	}
	if cfg.Addr == "" {
		cfg.Addr = types.DefaultServerAddr
	}
	s := &Server{
		cfg:      cfg,
		analyzer: opts.Analyzer,
		registry: registry,
		warning:  opts.Warning,
		logger:   logger,
	}
	if cfg.AnalyzeRate > 0 {
		s.limiter = newClientLimiter(cfg.AnalyzeRate, cfg.AnalyzeBurst, opts.Now)
	}
	return s
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logging(s.logger), Recovery(s.logger))
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes

	v1 := r.Group("/api/v1")
	v1.GET("/health", s.health)
	v1.GET("/profiles", s.profiles)
	v1.POST("/sessions", s.createSession)
	v1.GET("/sessions/:id", s.getSession)
	v1.DELETE("/sessions/:id", s.deleteSession)
	v1.PUT("/sessions/:id/document", s.uploadDocument)
	if s.limiter != nil {
		v1.POST("/sessions/:id/analyze", s.limiter.handler(), s.analyze)
	} else {
		v1.POST("/sessions/:id/analyze", s.analyze)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully. Idle
// sessions are evicted periodically.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweep(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http.server.start", "addr", s.cfg.Addr, "configured", s.analyzer.Configured())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http.server.shutdown")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweepIdle(now)
		}
	}
}

// sweepIdle evicts idle sessions and idle rate-limit buckets.
func (s *Server) sweepIdle(now time.Time) {
	if n := s.registry.Sweep(now, sessionMaxIdle); n > 0 {
		s.logger.Info("session.sweep", "removed", n)
	}
	if s.limiter != nil {
		if n := s.limiter.sweep(now, sessionMaxIdle); n > 0 {
			s.logger.Info("ratelimit.sweep", "removed", n)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{
		"status":     "ok",
		"configured": s.analyzer.Configured(),
		"sessions":   s.registry.Len(),
	}
	if !s.analyzer.Configured() {
		body["warning"] = s.warning
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) profiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": profile.All()})
}

func (s *Server) createSession(c *gin.Context) {
	sess := s.registry.Create()
	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) session(c *gin.Context) (*analysis.Session, bool) {
	sess, ok := s.registry.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "not_found", "session not found", nil)
	}
	return sess, ok
}

func (s *Server) getSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) deleteSession(c *gin.Context) {
	if !s.registry.Delete(c.Param("id")) {
		respondError(c, http.StatusNotFound, "not_found", "session not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) uploadDocument(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	if c.Request.ContentLength > s.cfg.MaxUploadBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes), nil)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes), nil)
			return
		}
		respondError(c, http.StatusBadRequest, "invalid_upload", "multipart field \"file\" is required", nil)
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_upload", "could not read upload", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_upload", "could not read upload", nil)
		return
	}

	if err := sess.SetDocument(fh.Filename, data); err != nil {
		respondError(c, http.StatusConflict, "busy", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) analyze(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	p, err := profile.Parse(c.Query("profile"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_profile", err.Error(), gin.H{"profiles": profile.Names()})
		return
	}

	snap, err := s.analyzer.Analyze(c.Request.Context(), sess, p)
	switch {
	case errors.Is(err, analysis.ErrNotConfigured):
		respondError(c, http.StatusServiceUnavailable, "not_configured", s.warning, nil)
	case errors.Is(err, analysis.ErrBusy):
		respondError(c, http.StatusConflict, "busy", err.Error(), snap)
	case err != nil:
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
	default:
		c.JSON(http.StatusOK, snap)
	}
}
