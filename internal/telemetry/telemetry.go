// Package telemetry exports Prometheus metrics for the castsift pipeline.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all castsift Prometheus metrics
type Metrics struct {
	// Feed metrics
	EnvelopesReceived    prometheus.Counter
	EnvelopesRejected    prometheus.Counter
	EnvelopeDecodeErrors prometheus.Counter
	FeedConnects         prometheus.Counter
	FeedReconnects       *prometheus.CounterVec
	FeedRetryResets      prometheus.Counter

	// Evaluation metrics
	Evaluations        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram

	// Delivery metrics
	DecisionsEnqueued prometheus.Counter
	DecisionsDropped  prometheus.Counter

	// Subscriber metrics
	ActiveSubscriptions prometheus.Gauge
	ConnectedClients    prometheus.Gauge
}

// Provider wraps the metrics set and its HTTP exposition.
type Provider struct {
	Metrics *Metrics
}

// NewProvider initializes telemetry with Prometheus metrics
func NewProvider() *Provider {
	return &Provider{Metrics: initMetrics()}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

func initMetrics() *Metrics {
	m := &Metrics{}
	initFeedMetrics(m)
	initEvaluationMetrics(m)
	initDeliveryMetrics(m)
	initSubscriberMetrics(m)
	return m
}

func initFeedMetrics(m *Metrics) {
	m.EnvelopesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "castsift_envelopes_received_total",
		Help: "Total feed events received and decoded",
	})

	m.EnvelopesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "castsift_envelopes_rejected_total",
		Help: "Total envelopes rejected for missing root data node",
	})

	m.EnvelopeDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "castsift_envelope_decode_errors_total",
		Help: "Total feed events whose data payload failed JSON decoding",
	})

	m.FeedConnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "castsift_feed_connects_total",
		Help: "Total successful upstream feed connections",
	})

	m.FeedReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "castsift_feed_reconnects_total",
		Help: "Total reconnect attempts by error class (connection, unexpected)",
	}, []string{"reason"})

	m.FeedRetryResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "castsift_feed_retry_resets_total",
		Help: "Total times the backoff retry counter hit its cap and reset",
	})
}

func initEvaluationMetrics(m *Metrics) {
	m.Evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "castsift_evaluations_total",
		Help: "Total cast evaluations by resulting decision (recommend, inappropriate, stop)",
	}, []string{"decision"})

	m.EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "castsift_evaluation_duration_seconds",
		Help:    "Time to evaluate one cast against one prompt, LLM round-trip included",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
	})
}

func initDeliveryMetrics(m *Metrics) {
	m.DecisionsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "castsift_decisions_enqueued_total",
		Help: "Total recommended decisions enqueued for delivery",
	})

	m.DecisionsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "castsift_decisions_dropped_total",
		Help: "Total decisions dropped because a subscription queue was full",
	})
}

func initSubscriberMetrics(m *Metrics) {
	m.ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "castsift_active_subscriptions",
		Help: "Currently registered subscription prompts",
	})

	m.ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "castsift_connected_clients",
		Help: "Currently connected SSE subscriber streams",
	})
}

// RecordEvaluation records one evaluation outcome and its duration.
func (p *Provider) RecordEvaluation(decision string, duration time.Duration) {
	p.Metrics.Evaluations.WithLabelValues(decision).Inc()
	p.Metrics.EvaluationDuration.Observe(duration.Seconds())
}

// RecordReconnect records a reconnect attempt by error class.
func (p *Provider) RecordReconnect(reason string) {
	p.Metrics.FeedReconnects.WithLabelValues(reason).Inc()
}

// SetActiveSubscriptions sets the registered-prompt gauge.
func (p *Provider) SetActiveSubscriptions(n int) {
	p.Metrics.ActiveSubscriptions.Set(float64(n))
}
