// Package api exposes the generation pipeline over HTTP: JSON endpoints,
// an SSE progress stream, and a websocket feed.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bentossell/fragg-sub002/internal/generator"
	"github.com/bentossell/fragg-sub002/internal/logging"
	"github.com/bentossell/fragg-sub002/internal/sandbox"
	"github.com/bentossell/fragg-sub002/internal/stream"
)

// Server wires the pipeline, preview runner, and progress hub into routes
type Server struct {
	gen    *generator.Generator
	runner *sandbox.Runner // nil when no execution host is configured
	hub    *stream.Hub
	log    *zap.Logger
}

func NewServer(gen *generator.Generator, runner *sandbox.Runner, hub *stream.Hub) *Server {
	return &Server{
		gen:    gen,
		runner: runner,
		hub:    hub,
		log:    logging.Named("api"),
	}
}

// Register mounts all routes on the engine
func (s *Server) Register(r *gin.Engine) {
	r.GET("/health", s.handleHealth)
	r.GET("/ws", s.hub.ServeWS)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/generate", s.handleGenerate)
		v1.POST("/iterate", s.handleIterate)
		v1.POST("/preview", s.handlePreview)
		v1.GET("/cache/stats", s.handleCacheStats)
		v1.POST("/cache/clear", s.handleCacheClear)
	}
}

type generateRequest struct {
	Prompt       string `json:"prompt" binding:"required"`
	Session      string `json:"session"`
	ExistingCode string `json:"existing_code"`
	Stream       bool   `json:"stream"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sink := s.hub.Sink(req.Session)
	if req.Stream {
		s.streamGenerate(c, req, sink)
		return
	}

	res := s.gen.GenerateApp(c.Request.Context(), req.Session, req.Prompt, req.ExistingCode, sink)
	c.JSON(http.StatusOK, res)
}

// streamGenerate runs the pipeline with progress flushed as SSE events.
// Events arrive on the request goroutine, so writes need no locking.
func (s *Server) streamGenerate(c *gin.Context, req generateRequest, hubSink generator.ProgressSink) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	sink := generator.SinkFunc(func(ev generator.Event) {
		hubSink.Emit(ev)
		c.SSEvent(string(ev.Type), ev)
		c.Writer.Flush()
	})

	s.gen.GenerateApp(c.Request.Context(), req.Session, req.Prompt, req.ExistingCode, sink)
}

type iterateRequest struct {
	Prompt       string `json:"prompt" binding:"required"`
	Session      string `json:"session"`
	ExistingCode string `json:"existing_code"`
}

func (s *Server) handleIterate(c *gin.Context) {
	var req iterateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ExistingCode == "" && s.gen.LastGenerated(req.Session) == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no previous generation to iterate on"})
		return
	}

	res := s.gen.GenerateWithDiffs(c.Request.Context(), req.Session, req.Prompt, req.ExistingCode, s.hub.Sink(req.Session))
	c.JSON(http.StatusOK, res)
}

type previewRequest struct {
	Session      string   `json:"session"`
	Template     string   `json:"template"`
	Code         string   `json:"code"`
	Dependencies []string `json:"dependencies"`
}

func (s *Server) handlePreview(c *gin.Context) {
	if s.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no execution host configured"})
		return
	}

	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	template, code, deps := req.Template, req.Code, req.Dependencies
	if code == "" {
		last := s.gen.LastGenerated(req.Session)
		if last == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "no generated app to preview"})
			return
		}
		template, code, deps = last.Template, last.Code, last.Dependencies
	}

	preview, err := s.runner.Run(c.Request.Context(), template, code, deps)
	if err != nil {
		s.log.Error("preview failed", zap.String("template", template), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (s *Server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.gen.CacheStats())
}

func (s *Server) handleCacheClear(c *gin.Context) {
	s.gen.ClearCache()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
