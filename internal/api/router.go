// Package api exposes the subscriber-facing HTTP surface: the per-prompt
// SSE stream, health endpoints, and Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/castsift/castsift/internal/logger"
	"github.com/castsift/castsift/internal/registry"
	"github.com/castsift/castsift/internal/telemetry"
)

// FeedStatus reports the upstream connector state for readiness checks.
type FeedStatus interface {
	State() string
}

// Router holds the API dependencies
type Router struct {
	registry  *registry.Registry
	feed      FeedStatus
	telemetry *telemetry.Provider
	logger    logger.Logger
	keepalive time.Duration
}

// NewRouter creates a new API router
func NewRouter(reg *registry.Registry, feed FeedStatus, tel *telemetry.Provider, keepalive time.Duration, log logger.Logger) *Router {
	return &Router{
		registry:  reg,
		feed:      feed,
		telemetry: tel,
		logger:    log,
		keepalive: keepalive,
	}
}

// Engine builds the gin engine with all routes registered.
func (r *Router) Engine(debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/", r.StreamHandler())
	engine.GET("/healthz", livenessHandler())
	engine.GET("/readyz", r.readinessHandler())
	engine.GET("/metrics", gin.WrapH(r.telemetry.Handler()))

	return engine
}

// StreamHandler serves the long-lived SSE subscription stream. A missing
// prompt parameter is the only client-visible failure; everything after the
// subscription resolves shows up to the client as message flow or silence.
func (r *Router) StreamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		prompt := c.Query("prompt")
		if prompt == "" {
			c.String(http.StatusBadRequest, "Missing 'prompt' parameter")
			return
		}

		sub := r.registry.GetOrCreate(prompt)

		setSSEHeaders(c.Writer)
		c.Writer.Flush()

		clientID := uuid.NewString()
		r.telemetry.Metrics.ConnectedClients.Inc()
		defer r.telemetry.Metrics.ConnectedClients.Dec()

		r.logger.Info("subscriber connected",
			logger.String("client_id", clientID),
			logger.String("prompt", truncate(prompt, 100)),
			logger.String("remote_addr", c.ClientIP()),
		)

		r.streamDecisions(c, sub, clientID)

		r.logger.Info("subscriber disconnected",
			logger.String("client_id", clientID),
		)
	}
}

// streamDecisions drains the subscription queue onto the wire until the
// client goes away. Client disconnect releases only the connection; the
// subscription stays registered.
func (r *Router) streamDecisions(c *gin.Context, sub *registry.Subscription, clientID string) {
	ticker := time.NewTicker(r.keepalive)
	defer ticker.Stop()

	for {
		select {
		case d := <-sub.Decisions():
			if err := writeDecision(c.Writer, d); err != nil {
				r.logger.Debug("stream write failed (client likely disconnected)",
					logger.String("client_id", clientID),
					logger.Error(err),
				)
				return
			}
		case <-ticker.C:
			if err := writeKeepalive(c.Writer); err != nil {
				r.logger.Debug("keepalive failed (client disconnected)",
					logger.String("client_id", clientID),
				)
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

// livenessHandler reports process liveness.
func livenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "alive",
		})
	}
}

// readinessHandler reports pipeline readiness: the service is ready when the
// upstream feed is streaming.
func (r *Router) readinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := r.feed.State()
		response := gin.H{
			"feed_state":           state,
			"active_subscriptions": r.registry.Len(),
			"timestamp":            time.Now().UTC().Format(time.RFC3339),
		}

		statusCode := http.StatusOK
		if state != "streaming" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
