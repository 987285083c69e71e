// Package server exposes the split editor to the UI collaborator over
// HTTP. Handlers are thin: they bind input, take the session lock, call
// one editor command, and render the result.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/expensetrack/splitdesk/internal/client"
	"github.com/expensetrack/splitdesk/internal/service"
)

const sessionMaxIdle = 30 * time.Minute

// Server routes UI requests to editor sessions.
type Server struct {
	upstream service.Upstream
	registry *registry
}

// New creates the server and its gin handler.
func New(upstream service.Upstream) *Server {
	return &Server{
		upstream: upstream,
		registry: newRegistry(),
	}
}

// Handler builds the gin engine with all routes and middleware.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/sessions", s.createSession)

		sess := v1.Group("/sessions/:sid")
		{
			sess.DELETE("", s.endSession)
			sess.POST("/group", s.withSession(s.openGroup))
			sess.GET("/expenses", s.withSession(s.listExpenses))
			sess.POST("/expenses/load-more", s.withSession(s.loadMore))
			sess.POST("/editor/new", s.withSession(s.newExpense))
			sess.POST("/editor/open", s.withSession(s.openExpense))
			sess.POST("/editor/amount", s.withSession(s.setAmount))
			sess.POST("/editor/description", s.withSession(s.setDescription))
			sess.POST("/editor/owed", s.withSession(s.setOwed))
			sess.POST("/editor/paid", s.withSession(s.setPaid))
			sess.POST("/editor/submit", s.withSession(s.submit))
			sess.DELETE("/editor", s.withSession(s.closeEditor))
		}
	}

	return router
}

// StartJanitor evicts idle sessions until the stop channel closes.
func (s *Server) StartJanitor(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.registry.sweep(sessionMaxIdle)
			case <-stop:
				return
			}
		}
	}()
}

// withSession looks up the caller's editor session, serializes access to
// it, and invokes the handler.
func (s *Server) withSession(handler func(*gin.Context, *service.Editor)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := s.registry.get(c.Param("sid"))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"kind": "auth", "error": "unknown session"})
			return
		}
		sess.mu.Lock()
		defer sess.mu.Unlock()
		handler(c, sess.editor)
	}
}

// requestLogger logs every request with method, path, status, and duration.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			slog.Error("request failed", attrs...)
		} else {
			slog.Info("request completed", attrs...)
		}
	}
}

// cors adds the headers the browser UI needs.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// writeError maps the engine's error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	kind := client.KindOf(err)
	status := http.StatusBadGateway
	switch kind {
	case client.KindAuth:
		status = http.StatusUnauthorized
	case client.KindForbidden:
		status = http.StatusForbidden
	case client.KindValidation:
		status = http.StatusBadRequest
	case client.KindNotFound:
		status = http.StatusNotFound
	}

	var classified *client.Error
	message := err.Error()
	if errors.As(err, &classified) {
		message = classified.Message
	}
	c.JSON(status, gin.H{"kind": kind.String(), "error": message})
}
