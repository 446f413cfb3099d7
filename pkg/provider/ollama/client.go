// Package ollama adapts the router's completion contract to locally hosted
// models. Local completions cost nothing, which makes Ollama the terminal
// fallback candidate in the default routing rules.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/soen-app/praxis/pkg/envelope"
	"github.com/soen-app/praxis/pkg/provider"
)

const (
	providerName     = "ollama"
	defaultMaxTokens = 4096
)

// Client implements provider.Adapter over a local Ollama server.
type Client struct {
	client    *api.Client
	maxTokens int
}

// New creates a new Ollama adapter. BaseURL selects the server address;
// when empty the standard environment-derived client configuration applies.
func New(cfg provider.Config) (*Client, error) {
	var (
		client *api.Client
		err    error
	)
	if cfg.BaseURL != "" {
		var base *url.URL
		base, err = url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("ollama: invalid base URL: %w", err)
		}
		client = api.NewClient(base, http.DefaultClient)
	} else {
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		client:    client,
		maxTokens: maxTokens,
	}, nil
}

// Name implements provider.Adapter.
func (c *Client) Name() string { return providerName }

// Complete implements provider.Adapter.
func (c *Client) Complete(ctx context.Context, modelID string, req *envelope.Request) (*provider.Result, error) {
	messages := messagesFor(req)

	stream := false
	chatRequest := &api.ChatRequest{
		Model:    modelID,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": 0.1,
			"num_predict": c.maxTokens,
		},
	}

	var final api.ChatResponse
	err := c.client.Chat(ctx, chatRequest, func(resp api.ChatResponse) error {
		final = resp
		return nil
	})
	if err != nil {
		if provider.IsTimeout(err) {
			return nil, provider.NewError(provider.FailureTimeout, providerName, modelID, err)
		}
		return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID, err)
	}

	content := final.Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID,
			fmt.Errorf("response contained no content"))
	}

	if _, ok := req.Payload.(envelope.TaskPayload); ok {
		if _, perr := envelope.ParseTaskContent(content); perr != nil {
			return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID, perr)
		}
	}

	return &provider.Result{
		Content:   content,
		TokensIn:  final.Metrics.PromptEvalCount,
		TokensOut: final.Metrics.EvalCount,
	}, nil
}

func messagesFor(req *envelope.Request) []api.Message {
	switch p := req.Payload.(type) {
	case envelope.ChatPayload:
		system := "You are Soen, a concise personal productivity assistant."
		if len(p.Context) > 0 {
			system += "\nConversation context:\n" + strings.Join(p.Context, "\n")
		}
		return []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: p.Message},
		}
	case envelope.TaskPayload:
		system := "Parse the user's text into a task JSON object with keys " +
			"title, notes, start_time, duration_minutes, priority, tags. Respond only with JSON."
		if p.Timezone != "" {
			system += " Interpret times in the " + p.Timezone + " timezone."
		}
		return []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: p.Text},
		}
	case envelope.BriefingPayload:
		user := "Briefing date: " + p.Date
		if len(p.Sections) > 0 {
			user += "\nSections: " + strings.Join(p.Sections, ", ")
		}
		return []api.Message{
			{Role: "system", Content: "Write a long-form daily briefing for a personal productivity dashboard."},
			{Role: "user", Content: user},
		}
	default:
		return []api.Message{{Role: "user", Content: req.Payload.Normalize()}}
	}
}
