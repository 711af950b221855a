package api

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/castsift/castsift/internal/cast"
)

// SSE header constants.
const (
	headerContentType     = "Content-Type"
	headerCacheControl    = "Cache-Control"
	headerConnection      = "Connection"
	headerXAccelBuffering = "X-Accel-Buffering"

	sseContentType = "text/event-stream"
)

// setSSEHeaders sets the standard SSE headers on a Gin response writer.
func setSSEHeaders(w gin.ResponseWriter) {
	w.Header().Set(headerContentType, sseContentType)
	w.Header().Set(headerCacheControl, "no-cache")
	w.Header().Set(headerConnection, "keep-alive")
	w.Header().Set(headerXAccelBuffering, "no")
}

// writeDecision writes one delivered decision as an SSE data frame.
func writeDecision(w gin.ResponseWriter, d cast.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write decision frame: %w", err)
	}
	w.Flush()
	return nil
}

// writeKeepalive writes an SSE comment frame so intermediary proxies do not
// close an idle connection.
func writeKeepalive(w gin.ResponseWriter) error {
	if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive frame: %w", err)
	}
	w.Flush()
	return nil
}
