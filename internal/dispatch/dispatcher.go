// Package dispatch evaluates each normalized feed envelope against every
// registered subscription and enqueues recommended decisions for delivery.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/castsift/castsift/internal/cast"
	"github.com/castsift/castsift/internal/logger"
	"github.com/castsift/castsift/internal/registry"
	"github.com/castsift/castsift/internal/telemetry"
)

// Evaluator judges one cast against one subscription prompt. It must not
// fail: evaluation errors surface as stop decisions.
type Evaluator interface {
	Evaluate(ctx context.Context, prompt string, c *cast.Cast) cast.Decision
}

// SubscriptionSource provides a point-in-time view of active subscriptions.
type SubscriptionSource interface {
	Snapshot() []*registry.Subscription
}

// Dispatcher routes feed envelopes through evaluation to subscription
// queues. One dispatcher instance serves the whole process, driven by the
// feed connector.
type Dispatcher struct {
	subs      SubscriptionSource
	engine    Evaluator
	telemetry *telemetry.Provider
	logger    logger.Logger

	// concurrency bounds parallel prompt evaluations per envelope; 1 runs
	// them serially.
	concurrency int
}

// New creates a dispatcher. concurrency < 1 is treated as 1.
func New(subs SubscriptionSource, engine Evaluator, concurrency int, tel *telemetry.Provider, log logger.Logger) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		subs:        subs,
		engine:      engine,
		telemetry:   tel,
		logger:      log,
		concurrency: concurrency,
	}
}

// Process handles one feed envelope: structural validation, link and channel
// derivation, then evaluation against every subscription in the current
// snapshot. Failures are contained per subscription.
func (d *Dispatcher) Process(ctx context.Context, env *cast.Envelope) {
	node := env.Node()
	if node == nil {
		d.logger.Warn("rejected malformed envelope: missing data node")
		d.telemetry.Metrics.EnvelopesRejected.Inc()
		return
	}

	node.Link = node.Permalink()
	node.ChannelID = env.ChannelID()

	subs := d.subs.Snapshot()
	d.telemetry.SetActiveSubscriptions(len(subs))
	if len(subs) == 0 {
		return
	}

	d.logger.Debug("dispatching cast",
		logger.String("cast_hash", node.Hash),
		logger.Int("subscriptions", len(subs)),
	)

	if d.concurrency == 1 {
		for _, sub := range subs {
			d.evaluateFor(ctx, sub, node, env)
		}
		return
	}

	// Evaluations are independent and read-only against shared state, so a
	// bounded pool can run them in parallel.
	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		sem <- struct{}{}
		go func(sub *registry.Subscription) {
			defer wg.Done()
			defer func() { <-sem }()
			d.evaluateFor(ctx, sub, node, env)
		}(sub)
	}
	wg.Wait()
}

func (d *Dispatcher) evaluateFor(ctx context.Context, sub *registry.Subscription, node *cast.Cast, env *cast.Envelope) {
	start := time.Now()
	decision := d.engine.Evaluate(ctx, sub.Prompt, node)
	d.telemetry.RecordEvaluation(normalizeDecision(decision.Decision), time.Since(start))

	if !decision.Recommended() {
		return
	}

	decision.Item = env
	if sub.Enqueue(decision) {
		d.telemetry.Metrics.DecisionsEnqueued.Inc()
		d.logger.Info("recommended cast enqueued",
			logger.String("prompt", truncate(sub.Prompt, 100)),
			logger.String("cast_hash", node.Hash),
		)
		return
	}

	d.telemetry.Metrics.DecisionsDropped.Inc()
	d.logger.Warn("subscription queue full, decision dropped",
		logger.String("prompt", truncate(sub.Prompt, 100)),
		logger.String("cast_hash", node.Hash),
		logger.Int("pending", sub.Pending()),
	)
}

// normalizeDecision keeps metric label cardinality bounded: model output is
// untrusted and could carry arbitrary classification strings.
func normalizeDecision(decision string) string {
	switch decision {
	case cast.DecisionRecommend, cast.DecisionInappropriate, cast.DecisionStop:
		return decision
	default:
		return "other"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
