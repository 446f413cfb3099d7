// Package gemini adapts the router's completion contract to Gemini models.
// Gemini is the free-credit-pool vendor in the default routing rules.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/soen-app/praxis/pkg/envelope"
	"github.com/soen-app/praxis/pkg/provider"
)

const (
	providerName     = "gemini"
	defaultMaxTokens = 4096
)

// Client implements provider.Adapter over the Gemini API.
type Client struct {
	client    *genai.Client
	maxTokens int
}

// New creates a new Gemini adapter with injected credentials.
func New(ctx context.Context, cfg provider.Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
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
	contents, config, err := c.contentsFor(req)
	if err != nil {
		return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID, err)
	}

	resp, err := c.client.Models.GenerateContent(ctx, modelID, contents, config)
	if err != nil {
		return nil, c.classify(modelID, err)
	}

	content := resp.Text()
	if strings.TrimSpace(content) == "" {
		return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID,
			fmt.Errorf("response contained no text"))
	}

	if _, ok := req.Payload.(envelope.TaskPayload); ok {
		if _, perr := envelope.ParseTaskContent(content); perr != nil {
			return nil, provider.NewError(provider.FailureInvalidResponse, providerName, modelID, perr)
		}
	}

	result := &provider.Result{Content: content}
	if resp.UsageMetadata != nil {
		result.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		result.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

func (c *Client) contentsFor(req *envelope.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
	}

	switch p := req.Payload.(type) {
	case envelope.ChatPayload:
		system := "You are Soen, a concise personal productivity assistant."
		if len(p.Context) > 0 {
			system += "\nConversation context:\n" + strings.Join(p.Context, "\n")
		}
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
		return []*genai.Content{genai.NewContentFromText(p.Message, genai.RoleUser)}, config, nil

	case envelope.TaskPayload:
		// Gemini supports native JSON output; the prompt still names the keys.
		config.ResponseMIMEType = "application/json"
		system := "Parse the user's text into a task JSON object with keys " +
			"title, notes, start_time, duration_minutes, priority, tags."
		if p.Timezone != "" {
			system += " Interpret times in the " + p.Timezone + " timezone."
		}
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
		return []*genai.Content{genai.NewContentFromText(p.Text, genai.RoleUser)}, config, nil

	case envelope.VisionPayload:
		prompt := p.Prompt
		if prompt == "" {
			prompt = "Extract all text and relevant details from this image."
		}
		mediaType := p.MediaType
		if mediaType == "" {
			mediaType = "image/png"
		}
		data, err := base64.StdEncoding.DecodeString(p.ImageBase64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid image encoding: %w", err)
		}
		parts := []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: mediaType, Data: data}},
		}
		return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config, nil

	case envelope.BriefingPayload:
		system := "Write a long-form daily briefing for a personal productivity dashboard."
		if p.Style != "" {
			system += " Tone: " + p.Style + "."
		}
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
		user := "Briefing date: " + p.Date
		if len(p.Sections) > 0 {
			user += "\nSections: " + strings.Join(p.Sections, ", ")
		}
		return []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}, config, nil

	default:
		return []*genai.Content{genai.NewContentFromText(req.Payload.Normalize(), genai.RoleUser)}, config, nil
	}
}

// classify maps SDK errors to the typed failure set.
func (c *Client) classify(modelID string, err error) *provider.Error {
	if provider.IsTimeout(err) {
		return provider.NewError(provider.FailureTimeout, providerName, modelID, err)
	}
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		return provider.NewError(provider.KindFromStatus(apierr.Code), providerName, modelID, err)
	}
	return provider.NewError(provider.FailureInvalidResponse, providerName, modelID, err)
}
