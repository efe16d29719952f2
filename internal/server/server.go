// Package server exposes the agent over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/Cyclone1070/kosuke/internal/report"
	"github.com/Cyclone1070/kosuke/internal/store/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultActionLimit = 100
	streamBuffer       = 32
)

// RunFunc runs the agent once, sending progress to rep.
type RunFunc func(ctx context.Context, projectID, prompt string, rep models.Reporter) models.RunResult

// ActionLog lists recorded actions.
type ActionLog interface {
	Actions(ctx context.Context, projectID string, limit int) ([]sqlite.ActionRecord, error)
}

// RunObserver is told about every finished run.
type RunObserver interface {
	ObserveRun(res models.RunResult, elapsed time.Duration)
}

// Options configure a Server. Run is required.
type Options struct {
	Run      RunFunc
	Actions  ActionLog
	Observer RunObserver
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Server serves the chat, action log, health and metrics endpoints.
// At most one run per project is in flight.
type Server struct {
	opts   Options
	logger *zap.Logger

	mu   sync.Mutex
	busy map[string]bool
}

type chatRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Run == nil {
		return nil, errors.New("run function is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{opts: opts, logger: opts.Logger, busy: make(map[string]bool)}, nil
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.handleHealth)
	if s.opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/projects/:id")
	api.POST("/chat", s.handleChat)
	api.GET("/actions", s.handleActions)
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleChat runs the agent and streams its reports as server-sent events:
// "update" per report, "complete" for the completion and a final "result".
func (s *Server) handleChat(c *gin.Context) {
	projectID := c.Param("id")

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	if !s.acquire(projectID) {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress for this project"})
		return
	}

	stream := report.NewChannel(streamBuffer)
	done := make(chan models.RunResult, 1)
	ctx := c.Request.Context()

	go func() {
		start := time.Now()
		res := s.opts.Run(ctx, projectID, req.Prompt, stream)
		s.release(projectID)
		if s.opts.Observer != nil {
			s.opts.Observer.ObserveRun(res, time.Since(start))
		}
		done <- res
		stream.Close()
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	clientGone := c.Stream(func(w io.Writer) bool {
		e, ok := <-stream.Events()
		if !ok {
			return false
		}
		if e.Completion != nil {
			c.SSEvent("complete", e.Completion)
		} else {
			c.SSEvent("update", e.Report)
		}
		return true
	})

	// The run's final reports must not block on a departed client.
	go func() {
		for range stream.Events() {
		}
	}()
	res := <-done

	if clientGone {
		s.logger.Info("chat client disconnected", zap.String("project_id", projectID))
		return
	}
	c.SSEvent("result", res)
	c.Writer.Flush()
}

func (s *Server) handleActions(c *gin.Context) {
	if s.opts.Actions == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "action log is not enabled"})
		return
	}
	limit := defaultActionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	actions, err := s.opts.Actions.Actions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		s.logger.Error("list actions failed", zap.String("project_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list actions"})
		return
	}
	if actions == nil {
		actions = []sqlite.ActionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

func (s *Server) acquire(projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[projectID] {
		return false
	}
	s.busy[projectID] = true
	return true
}

func (s *Server) release(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, projectID)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
