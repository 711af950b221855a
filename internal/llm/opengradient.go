package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/castsift/castsift/internal/config"
)

// Completion parameters fixed for the decentralized-inference backend. The
// stop sequence ends generation at the closing brace of the JSON object the
// prompt asks for; parseRaw puts the brace back.
const (
	ogMaxTokens   = 5000
	ogTemperature = 0.2
)

// openGradientBackend calls a decentralized inference network over its HTTP
// completion API.
type openGradientBackend struct {
	cfg    config.OpenGradientConfig
	client *http.Client
}

func newOpenGradientBackend(cfg config.OpenGradientConfig, client *http.Client) *openGradientBackend {
	return &openGradientBackend{cfg: cfg, client: client}
}

type ogCompletionRequest struct {
	ModelCID     string   `json:"model_cid"`
	Prompt       string   `json:"prompt"`
	MaxTokens    int      `json:"max_tokens"`
	Temperature  float64  `json:"temperature"`
	StopSequence []string `json:"stop_sequence"`
}

type ogCompletionResponse struct {
	TxHash           string `json:"tx_hash"`
	CompletionOutput string `json:"completion_output"`
}

func (b *openGradientBackend) call(ctx context.Context, prompt string) (string, string, error) {
	body, err := json.Marshal(ogCompletionRequest{
		ModelCID:     b.cfg.ModelCID,
		Prompt:       prompt,
		MaxTokens:    ogMaxTokens,
		Temperature:  ogTemperature,
		StopSequence: []string{"}"},
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("opengradient completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", "", fmt.Errorf("opengradient completion: unexpected status %d: %s", resp.StatusCode, snippet)
	}

	var out ogCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decode completion response: %w", err)
	}

	return out.TxHash, out.CompletionOutput, nil
}

// parseRaw re-appends the closing brace the stop sequence swallowed.
func (b *openGradientBackend) parseRaw(raw string) string {
	return raw + "}"
}
