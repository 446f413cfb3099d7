// Package anthropic adapts the router's completion contract to Claude models.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/soen-app/praxis/pkg/envelope"
	"github.com/soen-app/praxis/pkg/provider"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 4096
)

// Client implements provider.Adapter over the Anthropic Messages API.
type Client struct {
	client    *anthropic.Client
	maxTokens int
}

// New creates a new Anthropic adapter with injected credentials.
func New(cfg provider.Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key not configured")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		client:    &client,
		maxTokens: maxTokens,
	}, nil
}

// Name implements provider.Adapter.
func (c *Client) Name() string { return providerName }

// Complete implements provider.Adapter.
func (c *Client) Complete(ctx context.Context, modelID string, req *envelope.Request) (*provider.Result, error) {
	system, blocks := contentFor(req)

	params := anthropic.MessageNewParams{
		MaxTokens: int64(c.maxTokens),
		Model:     anthropic.Model(modelID),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, c.classify(modelID, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := sb.String()
	if strings.TrimSpace(content) == "" {
		return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID,
			fmt.Errorf("message contained no text content"))
	}

	// Task parsing answers must decode into the structured shape.
	if _, ok := req.Payload.(envelope.TaskPayload); ok {
		content = stripCodeFence(content)
		if _, perr := envelope.ParseTaskContent(content); perr != nil {
			return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID, perr)
		}
	}

	return &provider.Result{
		Content:   content,
		TokensIn:  int(msg.Usage.InputTokens),
		TokensOut: int(msg.Usage.OutputTokens),
	}, nil
}

// contentFor builds the system prompt and user content blocks per payload.
func contentFor(req *envelope.Request) (string, []anthropic.ContentBlockParamUnion) {
	switch p := req.Payload.(type) {
	case envelope.ChatPayload:
		system := "You are Soen, a concise personal productivity assistant."
		if len(p.Context) > 0 {
			system += "\nConversation context:\n" + strings.Join(p.Context, "\n")
		}
		return system, []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(p.Message)}
	case envelope.TaskPayload:
		system := "Parse the user's text into a task. Respond only with a JSON object with keys " +
			"title, notes, start_time, duration_minutes, priority, tags. No prose, no code fences."
		if p.Timezone != "" {
			system += " Interpret times in the " + p.Timezone + " timezone."
		}
		return system, []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(p.Text)}
	case envelope.VisionPayload:
		prompt := p.Prompt
		if prompt == "" {
			prompt = "Extract all text and relevant details from this image."
		}
		mediaType := p.MediaType
		if mediaType == "" {
			mediaType = "image/png"
		}
		return "", []anthropic.ContentBlockParamUnion{
			anthropic.NewImageBlockBase64(mediaType, p.ImageBase64),
			anthropic.NewTextBlock(prompt),
		}
	case envelope.BriefingPayload:
		system := "Write a long-form daily briefing for a personal productivity dashboard."
		if p.Style != "" {
			system += " Tone: " + p.Style + "."
		}
		user := "Briefing date: " + p.Date
		if len(p.Sections) > 0 {
			user += "\nSections: " + strings.Join(p.Sections, ", ")
		}
		return system, []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(user)}
	default:
		return "", []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.Payload.Normalize())}
	}
}

// classify maps SDK errors to the typed failure set.
func (c *Client) classify(modelID string, err error) *provider.Error {
	if provider.IsTimeout(err) {
		return provider.NewError(provider.FailureTimeout, providerName, modelID, err)
	}
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return provider.NewError(provider.KindFromStatus(apierr.StatusCode), providerName, modelID, err)
	}
	return provider.NewError(provider.FailureInvalidResponse, providerName, modelID, err)
}

// stripCodeFence removes a surrounding markdown fence if the model added one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
