// Package httpx provides shared HTTP client construction for castsift.
package httpx

import (
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 100

	// DefaultMaxIdleConnsPerHost is the default maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10

	// DefaultIdleConnTimeout is the default idle connection timeout
	DefaultIdleConnTimeout = 90 * time.Second

	// DefaultResponseHeaderTimeout is the default response header timeout
	DefaultResponseHeaderTimeout = 30 * time.Second

	// DefaultTLSHandshakeTimeout is the default TLS handshake timeout
	DefaultTLSHandshakeTimeout = 10 * time.Second
)

// ClientConfig configures an HTTP client.
type ClientConfig struct {
	// Timeout specifies a time limit for requests made by this Client.
	// A Timeout of zero means no timeout.
	Timeout time.Duration

	// ResponseHeaderTimeout, if non-zero, specifies the amount of time to
	// wait for a server's response headers after fully writing the request.
	ResponseHeaderTimeout time.Duration

	// DisableKeepAlives, if true, disables HTTP keep-alives and
	// will only use the connection to the server for a single
	// HTTP request.
	DisableKeepAlives bool
}

// NewClient creates a new HTTP client with standardized configuration.
// If cfg is nil, default values are used.
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = &ClientConfig{Timeout: DefaultTimeout}
	}

	responseHeaderTimeout := cfg.ResponseHeaderTimeout
	if responseHeaderTimeout == 0 {
		responseHeaderTimeout = DefaultResponseHeaderTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		DisableKeepAlives:     cfg.DisableKeepAlives,
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

// NewDefaultClient creates a new HTTP client with all default settings.
func NewDefaultClient() *http.Client {
	return NewClient(nil)
}

// NewStreamingClient creates an HTTP client for long-lived streaming reads.
// The client has no overall timeout: only the connect path is bounded, the
// body read is expected to block indefinitely. Keep-alives are disabled so a
// reconnect never reuses a stale upstream connection.
//
// connectTimeout bounds every stage of connection establishment: the TCP
// dial, the TLS handshake, and the wait for response headers. Without an
// explicit dialer the TCP dial would be unbounded and a blackholed host
// could stall the caller until the OS gives up.
func NewStreamingClient(connectTimeout time.Duration) *http.Client {
	if connectTimeout == 0 {
		connectTimeout = DefaultTimeout
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		ResponseHeaderTimeout: connectTimeout,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		DisableKeepAlives:     true,
	}

	return &http.Client{
		// No Timeout: it would cut the stream mid-read.
		Transport: transport,
	}
}
