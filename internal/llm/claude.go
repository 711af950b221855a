package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/castsift/castsift/internal/config"
)

// Completion parameters fixed for the hosted generative-model backend.
const (
	claudeMaxTokens   = 512
	claudeTemperature = 0.2
	claudeTopP        = 0.95
)

// claudeBackend calls the hosted generative model through its official SDK.
type claudeBackend struct {
	client anthropic.Client
	model  string
}

func newClaudeBackend(cfg config.ClaudeConfig) *claudeBackend {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return &claudeBackend{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (b *claudeBackend) call(ctx context.Context, prompt string) (string, string, error) {
	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(b.model),
		MaxTokens:   claudeMaxTokens,
		Temperature: anthropic.Float(claudeTemperature),
		TopP:        anthropic.Float(claudeTopP),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("claude completion: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return msg.ID, sb.String(), nil
}

// parseRaw strips the markdown code fence the model tends to wrap JSON in.
func (b *claudeBackend) parseRaw(raw string) string {
	if strings.Contains(raw, "```json") {
		parts := strings.Split(raw, "```json")
		raw = parts[len(parts)-1]
		raw = strings.Split(raw, "```")[0]
	}
	return strings.TrimSpace(raw)
}
