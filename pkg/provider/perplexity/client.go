// Package perplexity adapts the router's completion contract to the
// Perplexity chat API. There is no official Go SDK, so the adapter speaks
// the HTTP API directly and surfaces the citation list the API returns.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/soen-app/praxis/pkg/envelope"
	"github.com/soen-app/praxis/pkg/provider"
)

const (
	providerName     = "perplexity"
	defaultBaseURL   = "https://api.perplexity.ai"
	defaultMaxTokens = 4096
)

// Client implements provider.Adapter over the Perplexity HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxTokens  int
}

// New creates a new Perplexity adapter with injected credentials.
func New(cfg provider.Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("perplexity: API key not configured")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		// Per-attempt deadlines come from the router context; the client
		// timeout is only a safety net.
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		maxTokens:  maxTokens,
	}, nil
}

// Name implements provider.Adapter.
func (c *Client) Name() string { return providerName }

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	SearchRecencyFilter string        `json:"search_recency_filter,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Citations []string `json:"citations"`
}

// Complete implements provider.Adapter.
func (c *Client) Complete(ctx context.Context, modelID string, req *envelope.Request) (*provider.Result, error) {
	body := chatRequest{
		Model:     modelID,
		MaxTokens: c.maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: "Answer with sourced, up-to-date information."},
		},
	}
	switch p := req.Payload.(type) {
	case envelope.ResearchPayload:
		body.Messages = append(body.Messages, chatMessage{Role: "user", Content: p.Query})
		body.SearchRecencyFilter = p.Recency
	default:
		body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Payload.Normalize()})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID,
			errors.Wrap(err, "failed to encode request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if provider.IsTimeout(err) {
			return nil, provider.NewError(provider.FailureTimeout, providerName, modelID, err)
		}
		return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, provider.NewError(provider.KindFromStatus(resp.StatusCode), providerName, modelID,
			fmt.Errorf("status=%d body=%q", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID,
			errors.Wrap(err, "failed to decode response"))
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID,
			fmt.Errorf("response contained no content"))
	}

	return &provider.Result{
		Content:   parsed.Choices[0].Message.Content,
		TokensIn:  parsed.Usage.PromptTokens,
		TokensOut: parsed.Usage.CompletionTokens,
		Citations: parsed.Citations,
	}, nil
}
