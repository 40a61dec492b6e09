// Package llmclient talks to the external script-generation collaborator: a
// service that turns a natural-language prompt into either an action-DSL
// document or a standalone eval script for a given page. Its output is
// untrusted until it passes through internal/actions validation.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tomasbasham/pageshot/internal/model"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = int64(1 << 20) // 1MB
)

// Config configures the collaborator client.
type Config struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	MaxResponseBytes int64
	HTTPClient       *http.Client
}

// Client wraps the script-generation collaborator's HTTP API.
type Client struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	maxBytes int64
}

// NewClient creates a collaborator client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("llmclient: base_url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResponseBytes
	}

	return &Client{baseURL: baseURL, apiKey: cfg.APIKey, client: client, maxBytes: maxBytes}, nil
}

// GenerateRequest describes what the collaborator should produce.
type GenerateRequest struct {
	PageURL  string           `json:"page_url"`
	Prompt   string           `json:"prompt"`
	Viewport int              `json:"viewport,omitempty"`
	Kind     model.ScriptType `json:"kind"`
}

// GenerateResponse is the collaborator's raw, not-yet-validated output.
type GenerateResponse struct {
	Script      string `json:"script"`
	Explanation string `json:"explanation,omitempty"`
}

// GenerateActionScript asks the collaborator for an action-DSL document
// driving interactions before capture.
func (c *Client) GenerateActionScript(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	req.Kind = model.ScriptTypeActions
	return c.generate(ctx, "/generate-action-script", req)
}

// GenerateActionTest asks the collaborator for an action-DSL document
// containing at least one assertion.
func (c *Client) GenerateActionTest(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	req.Kind = model.ScriptTypeActions
	return c.generate(ctx, "/generate-action-test", req)
}

// GenerateScript asks the collaborator for a standalone eval script used as
// an instruction.
func (c *Client) GenerateScript(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	req.Kind = model.ScriptTypeEval
	return c.generate(ctx, "/generate-script", req)
}

// GenerateTest asks the collaborator for a standalone eval script used as a
// test (expected to evaluate to a boolean).
func (c *Client) GenerateTest(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	req.Kind = model.ScriptTypeEval
	return c.generate(ctx, "/generate-test", req)
}

// DiscoverPages asks the collaborator to crawl a site and propose a list of
// page URLs worth monitoring.
func (c *Client) DiscoverPages(ctx context.Context, siteURL string) ([]string, error) {
	body, err := c.do(ctx, http.MethodPost, "/discover-pages", map[string]string{"site_url": siteURL})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Pages []string `json:"pages"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("llmclient: decode discover-pages response: %w", err)
	}
	return resp.Pages, nil
}

func (c *Client) generate(ctx context.Context, path string, req GenerateRequest) (GenerateResponse, error) {
	body, err := c.do(ctx, http.MethodPost, path, req)
	if err != nil {
		return GenerateResponse{}, err
	}
	var resp GenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return GenerateResponse{}, fmt.Errorf("llmclient: decode %s response: %w", path, err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return nil, fmt.Errorf("llmclient: encode request body: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("llmclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llmclient: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.maxBytes)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("llmclient: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("llmclient: %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
