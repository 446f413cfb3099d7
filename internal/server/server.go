// Package server exposes the router over HTTP for the product backends.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soen-app/praxis/internal/ledger"
	"github.com/soen-app/praxis/pkg/envelope"
	"github.com/soen-app/praxis/pkg/logger"
)

// Service is the router surface the HTTP layer depends on.
type Service interface {
	Route(ctx context.Context, req *envelope.Request) *envelope.Response
	Usage(ctx context.Context, userID string, window ledger.Window) (ledger.Aggregate, error)
}

// Server wraps a gin engine around the routing service.
type Server struct {
	engine  *gin.Engine
	service Service
	log     *logger.Logger
}

// New builds the HTTP server and registers its routes.
func New(service Service) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:  gin.New(),
		service: service,
		log:     logger.NewComponentLogger("server"),
	}
	s.engine.Use(gin.Recovery(), s.requestLog())

	s.engine.POST("/v1/route", s.handleRoute)
	s.engine.GET("/v1/usage/:user", s.handleUsage)
	s.engine.GET("/healthz", s.handleHealth)
	return s
}

// Handler returns the underlying HTTP handler, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.Info("listening", "addr", addr)
	return s.engine.Run(addr)
}

// requestLog logs one line per request in slog key-value style.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(started))
	}
}

func (s *Server) handleRoute(c *gin.Context) {
	var req envelope.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, envelope.Failed(nil, envelope.FailureInvalidRequest, err.Error()))
		return
	}

	resp := s.service.Route(c.Request.Context(), &req)
	c.JSON(statusFor(resp), resp)
}

// statusFor maps the closed failure set onto HTTP statuses. Expected
// failures travel in the body either way; the status is a convenience for
// dumb clients.
func statusFor(resp *envelope.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.Failure {
	case envelope.FailureInvalidRequest:
		return http.StatusBadRequest
	case envelope.FailureQuotaExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleUsage(c *gin.Context) {
	window := ledger.Window(c.DefaultQuery("window", string(ledger.WindowDay)))
	if window != ledger.WindowDay && window != ledger.WindowMonth {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window must be 'day' or 'month'"})
		return
	}

	agg, err := s.service.Usage(c.Request.Context(), c.Param("user"), window)
	if err != nil {
		s.log.Error("usage lookup failed", "user", c.Param("user"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "usage lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":        c.Param("user"),
		"window":         window,
		"requests":       agg.Requests,
		"tokens":         agg.Tokens,
		"cost_usd":       agg.CostUSD,
		"cache_hits":     agg.CacheHits,
		"cache_hit_rate": agg.CacheHitRate,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
