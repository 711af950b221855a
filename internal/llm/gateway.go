// Package llm exposes a single completion capability over interchangeable
// model backends. The gateway hands back raw text with per-backend cleanup
// applied; interpreting the content is the evaluation engine's job.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/castsift/castsift/internal/config"
	"github.com/castsift/castsift/internal/logger"
)

// Provider identifies a completion backend.
type Provider string

// Known providers.
const (
	ProviderOpenGradient Provider = "opengradient"
	ProviderClaude       Provider = "claude"
)

// ErrUnknownProvider is returned when a completion is requested from a
// provider the gateway does not know.
var ErrUnknownProvider = errors.New("unknown llm provider")

// ParseProvider maps a configured provider name to a Provider.
func ParseProvider(name string) (Provider, error) {
	switch Provider(name) {
	case ProviderOpenGradient:
		return ProviderOpenGradient, nil
	case ProviderClaude:
		return ProviderClaude, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// backend is the two-operation capability every provider implements: the
// vendor call itself and the vendor-specific raw-text cleanup.
type backend interface {
	call(ctx context.Context, prompt string) (txID, raw string, err error)
	parseRaw(raw string) string
}

// Gateway dispatches completion requests to the selected backend. It does
// not retry: a failed call is the caller's to handle. Each backend sits
// behind its own breaker so a dead upstream fails fast instead of eating a
// full request timeout per evaluation.
type Gateway struct {
	opengradient backend
	claude       backend
	breakers     map[Provider]*breaker
	logger       logger.Logger
}

// NewGateway builds a gateway with both backends wired from configuration.
func NewGateway(cfg config.LLMConfig, httpClient *http.Client, log logger.Logger) *Gateway {
	g := &Gateway{
		opengradient: newOpenGradientBackend(cfg.OpenGradient, httpClient),
		claude:       newClaudeBackend(cfg.Claude),
		logger:       log,
	}
	g.breakers = map[Provider]*breaker{
		ProviderOpenGradient: newBreaker(g.logStateChange(ProviderOpenGradient)),
		ProviderClaude:       newBreaker(g.logStateChange(ProviderClaude)),
	}
	return g
}

func (g *Gateway) logStateChange(provider Provider) func(from, to breakerState) {
	return func(from, to breakerState) {
		g.logger.Warn("backend breaker state changed",
			logger.String("provider", string(provider)),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	}
}

// Complete runs one completion against the named provider and returns the
// opaque transaction id and the cleaned raw text.
func (g *Gateway) Complete(ctx context.Context, provider Provider, prompt string) (string, string, error) {
	var b backend
	switch provider {
	case ProviderOpenGradient:
		b = g.opengradient
	case ProviderClaude:
		b = g.claude
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	var txID, raw string
	err := g.breakers[provider].execute(ctx, func() error {
		var callErr error
		txID, raw, callErr = b.call(ctx, prompt)
		return callErr
	})
	if err != nil {
		return "", "", err
	}

	g.logger.Debug("completion received",
		logger.String("provider", string(provider)),
		logger.String("tx_id", txID),
		logger.Int("raw_len", len(raw)),
	)

	return txID, b.parseRaw(raw), nil
}
