// Package eval builds evaluation prompts for incoming casts, runs them
// through the LLM gateway, and maps the raw responses to decisions. Every
// failure path collapses to a conservative stop decision so one bad cast or
// provider hiccup never disturbs the rest of a dispatch iteration.
package eval

import (
	"context"
	"fmt"

	"github.com/castsift/castsift/internal/cast"
	"github.com/castsift/castsift/internal/llm"
	"github.com/castsift/castsift/internal/logger"
)

// TemplateSource supplies the base instruction template.
type TemplateSource interface {
	BaseTemplate(ctx context.Context) (string, error)
}

// Completer is the completion capability the engine evaluates through.
type Completer interface {
	Complete(ctx context.Context, provider llm.Provider, prompt string) (txID, text string, err error)
}

// Engine evaluates casts against subscription prompts.
type Engine struct {
	templates TemplateSource
	gateway   Completer
	provider  llm.Provider
	logger    logger.Logger
}

// NewEngine builds an evaluation engine using the given default provider.
func NewEngine(templates TemplateSource, gateway Completer, provider llm.Provider, log logger.Logger) *Engine {
	return &Engine{
		templates: templates,
		gateway:   gateway,
		provider:  provider,
		logger:    log,
	}
}

// Evaluate judges one cast against one subscription prompt. It never returns
// an error: any failure becomes a stop decision.
func (e *Engine) Evaluate(ctx context.Context, prompt string, c *cast.Cast) cast.Decision {
	d, err := e.evaluate(ctx, prompt, c)
	if err != nil {
		e.logger.Error("evaluation failed, stopping cast",
			logger.String("prompt", truncate(prompt, 100)),
			logger.String("cast_hash", c.Hash),
			logger.Error(err),
		)
		return cast.StopDecision()
	}
	return d
}

func (e *Engine) evaluate(ctx context.Context, prompt string, c *cast.Cast) (cast.Decision, error) {
	author, err := c.DisplayName()
	if err != nil {
		return cast.Decision{}, err
	}

	base, err := e.templates.BaseTemplate(ctx)
	if err != nil {
		return cast.Decision{}, err
	}

	full := buildPrompt(base, prompt, c, author)

	txID, raw, err := e.gateway.Complete(ctx, e.provider, full)
	if err != nil {
		return cast.Decision{}, err
	}

	d, err := ParseDecision(raw)
	if err != nil {
		return cast.Decision{}, err
	}

	e.logger.Debug("cast evaluated",
		logger.String("prompt", truncate(prompt, 100)),
		logger.String("cast_hash", c.Hash),
		logger.String("decision", d.Decision),
		logger.String("tx_id", txID),
	)

	return d, nil
}

// buildPrompt composes the full evaluation prompt: base template, the
// subscription prompt framed as user intent, the cast under evaluation, and
// a strict output-schema instruction.
func buildPrompt(base, prompt string, c *cast.Cast, author string) string {
	return fmt.Sprintf(` %s

-------------------
Here is the conversation history to check intent:
- User: Show me %s and nothing else.
-------------------
New cast update to evaluate:

Cast Text: %s
Cast Link: %s
Cast Author: [%s](%s)

Output response only in JSON format with the following structure:
{
    "decision": "recommend" | "inappropriate" | "stop",
    "rationale": "explanation for the decision",
    "score": numeric_value,
    "message": "update message for the conversation"
}`, base, prompt, c.Text, c.Link, author, c.ProfileURL())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
