// Package promptstore fetches base evaluation instructions from a remote
// content store by content identifier.
package promptstore

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/castsift/castsift/internal/config"
	"github.com/castsift/castsift/internal/httpx"
)

// Client retrieves the base evaluation template. Fetches are deliberately
// uncached: evaluation volume is bounded by feed rate times active-prompt
// count, and an uncached read always reflects the latest published template.
type Client struct {
	storeURL string
	cid      string
	client   *http.Client
}

// NewClient builds a template store client from configuration.
func NewClient(cfg config.TemplateConfig) *Client {
	return &Client{
		storeURL: cfg.StoreURL,
		cid:      cfg.CID,
		client:   httpx.NewClient(&httpx.ClientConfig{Timeout: cfg.Timeout}),
	}
}

// BaseTemplate fetches the configured base instruction template.
func (c *Client) BaseTemplate(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/%s", c.storeURL, c.cid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build template request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch template %s: %w", c.cid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch template %s: unexpected status %d", c.cid, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read template body: %w", err)
	}

	return string(body), nil
}
