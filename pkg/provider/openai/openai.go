// Package openai implements provider.Provider for OpenAI-compatible
// Chat Completions backends (api.openai.com, vLLM, LiteLLM, and friends).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fhuber/dozent/pkg/api"
	"github.com/fhuber/dozent/pkg/debug"
	"github.com/fhuber/dozent/pkg/provider"
)

// Config holds the backend connection settings.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.openai.com".
	// The "/v1/chat/completions" path is appended.
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Timeout bounds a single inference call (default: 120s).
	Timeout time.Duration
}

// Provider performs HTTP requests against a Chat Completions backend.
type Provider struct {
	cfg    Config
	client *http.Client
}

// Ensure Provider implements provider.Provider at compile time.
var _ provider.Provider = (*Provider)(nil)

// New creates a new Provider with the given configuration.
func New(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: BaseURL is required")
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "openai"
}

// chatResponse is the non-streaming response from /v1/chat/completions.
type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int              `json:"index"`
	Message      provider.Message `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Complete performs non-streaming inference against the Chat Completions
// endpoint. provider.Request already carries Chat Completions field names,
// so it is marshaled directly.
func (p *Provider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	debug.Log("provider", "backend request",
		"model", req.Model,
		"messages", len(req.Messages),
		"tools", len(req.Tools),
	)
	if debug.TraceIsEnabled("provider") {
		debug.Raw("provider", string(body))
	}

	url := p.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapHTTPError(httpResp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, api.NewModelError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	return translateResponse(&chatResp)
}

// translateResponse converts the wire response into a provider.Response.
// Only choices[0] is used.
func translateResponse(resp *chatResponse) (*provider.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, api.NewModelError("backend produced no choices")
	}

	choice := resp.Choices[0]

	pr := &provider.Response{
		Model:        resp.Model,
		Message:      choice.Message,
		FinishReason: mapFinishReason(choice.FinishReason),
	}

	if resp.Usage != nil {
		pr.Usage = provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
	}

	return pr, nil
}

// mapFinishReason normalizes backend finish reasons. Unknown values map
// to FinishStop so the caller treats the content as final.
func mapFinishReason(s string) provider.FinishReason {
	switch s {
	case "tool_calls", "function_call":
		return provider.FinishToolCalls
	case "length":
		return provider.FinishLength
	default:
		return provider.FinishStop
	}
}

// Close releases the HTTP client's idle connections.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
