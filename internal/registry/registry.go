// Package registry maps active subscription prompts to their delivery
// queues. Subscriptions are created lazily on first subscribe and live for
// the process lifetime; the prompt string is the subscriber identity key.
package registry

import (
	"sync"
	"time"

	"github.com/castsift/castsift/internal/cast"
	"github.com/castsift/castsift/internal/logger"
)

// DefaultQueueSize is the per-subscription pending-decision buffer used when
// no size is configured.
const DefaultQueueSize = 256

// Subscription is one registered prompt and its delivery queue. The dispatch
// loop is the producer; stream server connections are the consumers. Two
// connections subscribing with an identical prompt share this queue and
// compete for its decisions.
type Subscription struct {
	Prompt    string
	CreatedAt time.Time

	queue chan cast.Decision
}

func newSubscription(prompt string, queueSize int) *Subscription {
	return &Subscription{
		Prompt:    prompt,
		CreatedAt: time.Now(),
		queue:     make(chan cast.Decision, queueSize),
	}
}

// Enqueue attempts a non-blocking enqueue of a decision.
// Returns false if the queue is full (no connected consumer is draining it).
func (s *Subscription) Enqueue(d cast.Decision) bool {
	select {
	case s.queue <- d:
		return true
	default:
		return false
	}
}

// Decisions returns the receive side of the delivery queue.
func (s *Subscription) Decisions() <-chan cast.Decision {
	return s.queue
}

// Pending returns the number of queued decisions not yet delivered.
func (s *Subscription) Pending() int {
	return len(s.queue)
}

// Registry is the synchronized prompt-to-subscription mapping. It is read by
// the dispatch loop and written by stream server request handlers
// concurrently.
type Registry struct {
	mu        sync.RWMutex
	subs      map[string]*Subscription
	queueSize int
	logger    logger.Logger
}

// New creates an empty registry. queueSize <= 0 selects DefaultQueueSize.
func New(queueSize int, log logger.Logger) *Registry {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Registry{
		subs:      make(map[string]*Subscription),
		queueSize: queueSize,
		logger:    log,
	}
}

// GetOrCreate returns the subscription for prompt, creating it on first use.
func (r *Registry) GetOrCreate(prompt string) *Subscription {
	r.mu.RLock()
	sub, ok := r.subs[prompt]
	r.mu.RUnlock()
	if ok {
		return sub
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the write lock: another handler may have won the race.
	if sub, ok := r.subs[prompt]; ok {
		return sub
	}

	sub = newSubscription(prompt, r.queueSize)
	r.subs[prompt] = sub

	r.logger.Info("subscription registered",
		logger.String("prompt", truncate(prompt, 100)),
		logger.Int("active_subscriptions", len(r.subs)),
	)

	return sub
}

// Snapshot returns a point-in-time slice of all subscriptions. Dispatch
// iterates the snapshot, so prompts registered mid-iteration simply miss
// updates already in flight.
func (r *Registry) Snapshot() []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	return subs
}

// Len returns the number of registered subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
