// Package openai adapts the router's completion contract to the OpenAI API.
// The same adapter serves any OpenAI-compatible vendor (Grok / x.ai) through
// a base URL override.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/soen-app/praxis/pkg/envelope"
	"github.com/soen-app/praxis/pkg/provider"
)

const defaultMaxTokens = 4096

// Client implements provider.Adapter over the OpenAI chat and image APIs.
type Client struct {
	client    openai.Client
	name      string
	maxTokens int
}

// New creates an adapter for the OpenAI API proper.
func New(cfg provider.Config) (*Client, error) {
	return NewCompatible("openai", cfg)
}

// NewCompatible creates an adapter for an OpenAI-compatible endpoint under a
// different provider name. The base URL in cfg selects the vendor.
func NewCompatible(name string, cfg provider.Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key not configured", name)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		client:    openai.NewClient(opts...),
		name:      name,
		maxTokens: maxTokens,
	}, nil
}

// Name implements provider.Adapter.
func (c *Client) Name() string { return c.name }

// Complete implements provider.Adapter.
func (c *Client) Complete(ctx context.Context, modelID string, req *envelope.Request) (*provider.Result, error) {
	switch p := req.Payload.(type) {
	case envelope.ImagePayload:
		return c.generateImage(ctx, modelID, p)
	case envelope.TaskPayload:
		return c.parseTask(ctx, modelID, p)
	case envelope.VisionPayload:
		return c.describeImage(ctx, modelID, p)
	default:
		return c.chat(ctx, modelID, req)
	}
}

func (c *Client) chat(ctx context.Context, modelID string, req *envelope.Request) (*provider.Result, error) {
	system, user := promptFor(req)

	messages := []openai.ChatCompletionMessageParamUnion{}
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               shared.ChatModel(modelID),
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return nil, c.classify(modelID, err)
	}
	return c.resultFrom(modelID, completion)
}

func (c *Client) parseTask(ctx context.Context, modelID string, p envelope.TaskPayload) (*provider.Result, error) {
	schema, err := envelope.TaskSchema()
	if err != nil {
		return nil, provider.NewError(provider.FailureInvalidResponse, c.name, modelID, err)
	}

	system := "Parse the user's text into a task. Respond only with JSON matching the schema."
	if p.Timezone != "" {
		system += " Interpret times in the " + p.Timezone + " timezone."
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(p.Text),
		},
		Model:               shared.ChatModel(modelID),
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "parsed_task",
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, c.classify(modelID, err)
	}

	result, rerr := c.resultFrom(modelID, completion)
	if rerr != nil {
		return nil, rerr
	}
	if _, perr := envelope.ParseTaskContent(result.Content); perr != nil {
		return nil, provider.NewError(provider.FailureInvalidResponse, c.name, modelID, perr)
	}
	return result, nil
}

func (c *Client) describeImage(ctx context.Context, modelID string, p envelope.VisionPayload) (*provider.Result, error) {
	prompt := p.Prompt
	if prompt == "" {
		prompt = "Extract all text and relevant details from this image."
	}
	mediaType := p.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, p.ImageBase64)

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		Model:               shared.ChatModel(modelID),
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return nil, c.classify(modelID, err)
	}
	return c.resultFrom(modelID, completion)
}

func (c *Client) generateImage(ctx context.Context, modelID string, p envelope.ImagePayload) (*provider.Result, error) {
	prompt := p.Prompt
	if p.Style != "" {
		prompt = prompt + " Style: " + p.Style
	}

	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(modelID),
		N:      openai.Int(1),
	}
	if p.Size != "" {
		params.Size = openai.ImageGenerateParamsSize(p.Size)
	}

	res, err := c.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, c.classify(modelID, err)
	}
	if len(res.Data) == 0 {
		return nil, provider.NewError(provider.FailureInvalidResponse, c.name, modelID,
			fmt.Errorf("image response contained no data"))
	}

	content := res.Data[0].URL
	if content == "" {
		content = res.Data[0].B64JSON
	}
	return &provider.Result{Content: content}, nil
}

func (c *Client) resultFrom(modelID string, completion *openai.ChatCompletion) (*provider.Result, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return nil, provider.NewError(provider.FailureInvalidResponse, c.name, modelID,
			fmt.Errorf("completion contained no choices"))
	}
	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, provider.NewError(provider.FailureInvalidResponse, c.name, modelID,
			fmt.Errorf("completion contained empty content"))
	}
	return &provider.Result{
		Content:   content,
		TokensIn:  int(completion.Usage.PromptTokens),
		TokensOut: int(completion.Usage.CompletionTokens),
	}, nil
}

// classify maps SDK errors to the typed failure set.
func (c *Client) classify(modelID string, err error) *provider.Error {
	if provider.IsTimeout(err) {
		return provider.NewError(provider.FailureTimeout, c.name, modelID, err)
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return provider.NewError(provider.KindFromStatus(apierr.StatusCode), c.name, modelID, err)
	}
	return provider.NewError(provider.FailureInvalidResponse, c.name, modelID, err)
}

// promptFor builds the system and user strings for text features.
func promptFor(req *envelope.Request) (system, user string) {
	switch p := req.Payload.(type) {
	case envelope.ChatPayload:
		system = "You are Soen, a concise personal productivity assistant."
		if len(p.Context) > 0 {
			system += "\nConversation context:\n" + strings.Join(p.Context, "\n")
		}
		return system, p.Message
	case envelope.BriefingPayload:
		system = "Write a long-form daily briefing for a personal productivity dashboard."
		if p.Style != "" {
			system += " Tone: " + p.Style + "."
		}
		user = "Briefing date: " + p.Date
		if len(p.Sections) > 0 {
			user += "\nSections: " + strings.Join(p.Sections, ", ")
		}
		return system, user
	case envelope.ResearchPayload:
		return "Answer with sourced, up-to-date information.", p.Query
	default:
		return "", req.Payload.Normalize()
	}
}
