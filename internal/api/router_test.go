package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castsift/castsift/internal/cast"
	"github.com/castsift/castsift/internal/logger"
	"github.com/castsift/castsift/internal/registry"
	"github.com/castsift/castsift/internal/telemetry"
)

// telemetryOnce guards against duplicate Prometheus metric registration from
// promauto's global registry within one test binary.
var (
	testTelemetry *telemetry.Provider
	telemetryOnce sync.Once
)

func getTestTelemetry() *telemetry.Provider {
	telemetryOnce.Do(func() {
		testTelemetry = telemetry.NewProvider()
	})
	return testTelemetry
}

type fakeFeed struct {
	state string
}

func (f *fakeFeed) State() string { return f.state }

func newTestRouter(t *testing.T, reg *registry.Registry, feedState string, keepalive time.Duration) *httptest.Server {
	t.Helper()
	r := NewRouter(reg, &fakeFeed{state: feedState}, getTestTelemetry(), keepalive, logger.NewNop())
	srv := httptest.NewServer(r.Engine(false))
	t.Cleanup(srv.Close)
	return srv
}

// openStream issues the subscribe request and returns a line reader over the
// SSE response. Cancelling ctx tears the stream down.
func openStream(t *testing.T, ctx context.Context, url string) (*http.Response, *bufio.Reader) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp, bufio.NewReader(resp.Body)
}

func TestStream_MissingPrompt(t *testing.T) {
	reg := registry.New(4, logger.NewNop())
	srv := newTestRouter(t, reg, "streaming", time.Second)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Missing 'prompt' parameter", string(body))
	assert.Zero(t, reg.Len(), "no subscription may be created for a bad request")
}

func TestStream_DeliversQueuedDecision(t *testing.T) {
	reg := registry.New(4, logger.NewNop())
	sub := reg.GetOrCreate("zk rollups")
	sub.Enqueue(cast.Decision{
		Decision: cast.DecisionRecommend,
		Message:  "new rollup cast",
	})

	srv := newTestRouter(t, reg, "streaming", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, reader := openStream(t, ctx, srv.URL+"/?prompt=zk+rollups")

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "), "got frame %q", line)

	var d cast.Decision
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &d))
	assert.Equal(t, cast.DecisionRecommend, d.Decision)
	assert.Equal(t, "new rollup cast", d.Message)
}

func TestStream_KeepaliveOnIdleQueue(t *testing.T) {
	reg := registry.New(4, logger.NewNop())
	srv := newTestRouter(t, reg, "streaming", 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, reader := openStream(t, ctx, srv.URL+"/?prompt=quiet")

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": keepalive", strings.TrimSpace(line))

	assert.Equal(t, 1, reg.Len(), "subscribe must register the prompt")
}

func TestStream_DeliversDecisionEnqueuedAfterConnect(t *testing.T) {
	reg := registry.New(4, logger.NewNop())
	srv := newTestRouter(t, reg, "streaming", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, reader := openStream(t, ctx, srv.URL+"/?prompt=late")

	// Simulate dispatch enqueueing after the subscriber connected.
	go func() {
		time.Sleep(50 * time.Millisecond)
		reg.GetOrCreate("late").Enqueue(cast.Decision{Decision: cast.DecisionRecommend})
	}()

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: "), "got frame %q", line)
}

func TestHealthz(t *testing.T) {
	reg := registry.New(4, logger.NewNop())
	srv := newTestRouter(t, reg, "disconnected", time.Second)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyz(t *testing.T) {
	reg := registry.New(4, logger.NewNop())

	notReady := newTestRouter(t, reg, "connecting", time.Second)
	resp, err := http.Get(notReady.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	ready := newTestRouter(t, reg, "streaming", time.Second)
	resp, err = http.Get(ready.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := registry.New(4, logger.NewNop())
	srv := newTestRouter(t, reg, "streaming", time.Second)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "castsift_")
}
