// Package openai implements the embedding gateway against any
// OpenAI-compatible /embeddings endpoint (OpenAI, LM Studio, HF routers).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/antigravity/decision-support/core"
)

// Config configures the HTTP embedding client.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey is sent as a Bearer token when non-empty.
	APIKey string

	// Model is the embedding model id. Default: "text-embedding-3-small".
	Model string

	// Dimensions is the expected vector size. Default: 1536 for the default
	// model; set 384 for MiniLM-class models behind local servers.
	Dimensions int

	// Timeout bounds each HTTP call. Default: 30s.
	Timeout time.Duration
}

// Client calls an OpenAI-compatible embeddings API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates an embedding client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Embed converts a single text to an embedding vector. Transport failures
// and non-2xx responses are classified as provider errors so callers can
// retry with backoff.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, _ := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"input": []string{text},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings request: %v", core.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: embeddings http %d: %s", core.ErrProvider, resp.StatusCode, string(data))
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode embeddings response: %v", core.ErrProvider, err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embeddings response", core.ErrProvider)
	}
	return out.Data[0].Embedding, nil
}

// Dimensions returns the configured embedding size.
func (c *Client) Dimensions() int {
	return c.cfg.Dimensions
}
