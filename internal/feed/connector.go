// Package feed maintains the long-lived connection to the upstream cast
// feed. The connector reconnects forever: network-class failures retry
// immediately, anything else backs off exponentially with a capped,
// self-resetting retry counter.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/castsift/castsift/internal/cast"
	"github.com/castsift/castsift/internal/config"
	"github.com/castsift/castsift/internal/httpx"
	"github.com/castsift/castsift/internal/logger"
	"github.com/castsift/castsift/internal/telemetry"
)

// Connector states, exposed for readiness reporting.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateStreaming    = "streaming"
)

// Reconnect reason labels.
const (
	reasonConnection = "connection"
	reasonUnexpected = "unexpected"
)

// Processor consumes decoded feed envelopes. Implementations must swallow
// their own per-envelope failures; the connector does not expect errors back.
type Processor interface {
	Process(ctx context.Context, env *cast.Envelope)
}

// Connector runs the upstream SSE consumer for the process lifetime.
type Connector struct {
	url       string
	client    *http.Client
	processor Processor
	telemetry *telemetry.Provider
	logger    logger.Logger

	baseDelay  time.Duration
	maxDelay   time.Duration
	maxRetries int

	state atomic.Value // string

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// New builds a connector for the configured feed.
func New(cfg config.FeedConfig, processor Processor, tel *telemetry.Provider, log logger.Logger) *Connector {
	c := &Connector{
		url:        cfg.FeedURL(),
		client:     httpx.NewStreamingClient(cfg.ConnectTimeout),
		processor:  processor,
		telemetry:  tel,
		logger:     log,
		baseDelay:  cfg.BaseRetryDelay,
		maxDelay:   cfg.MaxRetryDelay,
		maxRetries: cfg.MaxRetries,
	}
	c.state.Store(StateDisconnected)
	return c
}

// Start begins consuming the feed in a background goroutine.
func (c *Connector) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run()

	c.logger.Info("feed connector started",
		logger.String("url", c.url),
		logger.Duration("base_retry_delay", c.baseDelay),
		logger.Duration("max_retry_delay", c.maxDelay),
	)
}

// Stop cancels the stream and waits for the consumer goroutine to exit.
func (c *Connector) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.logger.Info("feed connector stopped")
}

// State returns the current connector state.
func (c *Connector) State() string {
	return c.state.Load().(string)
}

func (c *Connector) run() {
	defer c.wg.Done()
	defer c.state.Store(StateDisconnected)

	retryCount := 0

	for {
		if c.ctx.Err() != nil {
			return
		}

		c.state.Store(StateConnecting)
		err := c.stream(&retryCount)
		if err == nil || c.ctx.Err() != nil {
			return
		}

		c.state.Store(StateDisconnected)

		if isConnectionError(err) {
			// Transient network failure: reconnect immediately, no backoff,
			// and the retry counter is untouched.
			c.logger.Error("feed connection error, reconnecting",
				logger.Error(err),
			)
			c.telemetry.RecordReconnect(reasonConnection)
			continue
		}

		retryCount++
		delay := c.backoffDelay(retryCount)

		c.logger.Error("unexpected feed error, backing off",
			logger.Int("attempt", retryCount),
			logger.Int("max_retries", c.maxRetries),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
		c.telemetry.RecordReconnect(reasonUnexpected)

		if retryCount >= c.maxRetries {
			// The loop never gives up: cap the counter so backoff stays
			// bounded and keep connecting.
			c.logger.Error("max retries reached, resetting retry count",
				logger.Int("max_retries", c.maxRetries),
			)
			c.telemetry.Metrics.FeedRetryResets.Inc()
			retryCount = 0
		}

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// stream opens the feed connection and consumes events until it breaks.
// A nil return means the connector is shutting down.
func (c *Connector) stream(retryCount *int) error {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Connection", "keep-alive")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connect feed: unexpected status %d", resp.StatusCode)
	}

	c.state.Store(StateStreaming)
	c.logger.Info("connected to feed stream", logger.String("url", c.url))
	c.telemetry.Metrics.FeedConnects.Inc()
	*retryCount = 0

	reader := newEventReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			if c.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read feed event: %w", err)
		}

		var env cast.Envelope
		if err := json.Unmarshal([]byte(ev.data), &env); err != nil {
			// One undecodable event never costs the connection.
			c.logger.Error("failed to decode feed event, skipping",
				logger.Error(err),
				logger.Int("payload_len", len(ev.data)),
			)
			c.telemetry.Metrics.EnvelopeDecodeErrors.Inc()
			continue
		}

		c.telemetry.Metrics.EnvelopesReceived.Inc()
		c.processor.Process(c.ctx, &env)
	}
}

// backoffDelay computes min(baseDelay * 2^retryCount, maxDelay).
func (c *Connector) backoffDelay(retryCount int) time.Duration {
	delay := c.baseDelay
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return delay
}

// isConnectionError classifies transient network and timeout failures, which
// retry immediately without touching the backoff counter.
func isConnectionError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
