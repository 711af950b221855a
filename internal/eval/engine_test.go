package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castsift/castsift/internal/cast"
	"github.com/castsift/castsift/internal/llm"
	"github.com/castsift/castsift/internal/logger"
)

type fakeTemplates struct {
	base string
	err  error
}

func (f *fakeTemplates) BaseTemplate(_ context.Context) (string, error) {
	return f.base, f.err
}

type fakeGateway struct {
	raw       string
	err       error
	gotPrompt string
	calls     int
}

func (f *fakeGateway) Complete(_ context.Context, _ llm.Provider, prompt string) (string, string, error) {
	f.calls++
	f.gotPrompt = prompt
	return "tx-1", f.raw, f.err
}

func testCast() *cast.Cast {
	return &cast.Cast{
		Hash:   "abcdef1234567890",
		Author: cast.Author{Name: "Alice", Username: "alice"},
		Text:   "shipping a new zk rollup",
		Link:   "https://warpcast.com/alice/abcdef123456",
	}
}

func TestEvaluate_Recommend(t *testing.T) {
	templates := &fakeTemplates{base: "You are a feed curator."}
	gateway := &fakeGateway{raw: `{"decision":"recommend","rationale":"matches","score":0.8,"message":"new cast"}`}
	engine := NewEngine(templates, gateway, llm.ProviderClaude, logger.NewNop())

	d := engine.Evaluate(context.Background(), "zk rollups", testCast())

	require.Equal(t, cast.DecisionRecommend, d.Decision)
	assert.Equal(t, 0.8, d.Score)

	// The composed prompt carries the template, the framed subscription
	// prompt, and the cast fields.
	assert.Contains(t, gateway.gotPrompt, "You are a feed curator.")
	assert.Contains(t, gateway.gotPrompt, "Show me zk rollups and nothing else.")
	assert.Contains(t, gateway.gotPrompt, "Cast Text: shipping a new zk rollup")
	assert.Contains(t, gateway.gotPrompt, "Cast Link: https://warpcast.com/alice/abcdef123456")
	assert.Contains(t, gateway.gotPrompt, "[Alice](https://warpcast.com/alice)")
}

func TestEvaluate_MissingAuthorStops(t *testing.T) {
	templates := &fakeTemplates{base: "base"}
	gateway := &fakeGateway{}
	engine := NewEngine(templates, gateway, llm.ProviderClaude, logger.NewNop())

	c := &cast.Cast{Hash: "ff", Text: "anonymous"}
	d := engine.Evaluate(context.Background(), "anything", c)

	assert.Equal(t, cast.DecisionStop, d.Decision)
	assert.Zero(t, gateway.calls, "no completion should run without an author")
}

func TestEvaluate_TemplateFetchFailureStops(t *testing.T) {
	templates := &fakeTemplates{err: errors.New("store unreachable")}
	gateway := &fakeGateway{}
	engine := NewEngine(templates, gateway, llm.ProviderClaude, logger.NewNop())

	d := engine.Evaluate(context.Background(), "anything", testCast())

	assert.Equal(t, cast.DecisionStop, d.Decision)
	assert.Zero(t, gateway.calls)
}

func TestEvaluate_CompletionFailureStops(t *testing.T) {
	templates := &fakeTemplates{base: "base"}
	gateway := &fakeGateway{err: errors.New("provider down")}
	engine := NewEngine(templates, gateway, llm.ProviderClaude, logger.NewNop())

	d := engine.Evaluate(context.Background(), "anything", testCast())

	assert.Equal(t, cast.DecisionStop, d.Decision)
}

func TestEvaluate_MalformedResponseStops(t *testing.T) {
	templates := &fakeTemplates{base: "base"}
	gateway := &fakeGateway{raw: "I cannot answer in JSON today"}
	engine := NewEngine(templates, gateway, llm.ProviderClaude, logger.NewNop())

	d := engine.Evaluate(context.Background(), "anything", testCast())

	assert.Equal(t, cast.DecisionStop, d.Decision)
	assert.Empty(t, d.Rationale)
	assert.Nil(t, d.Item)
}
