package claude

import (
	"context"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultModel       = "claude-sonnet-4-20250514"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7

	providerName = "claude"
)

var (
	claudePromptScope   = ctxlog.NewScope("claude_prompt", ctxlog.EnabledBy("ADVISOR_LOGGING_CLAUDE_PROMPT"))
	claudeResponseScope = ctxlog.NewScope("claude_response", ctxlog.EnabledBy("ADVISOR_LOGGING_CLAUDE_RESPONSE"))
)

// Client is a client for the Claude messages API.
type Client struct {
	apiClient apiClient

	// model is the model to use for chat completions.
	// It can be overridden using WithModel option.
	model string

	// region and projectID route requests through Vertex AI when set.
	region    string
	projectID string

	temperature float64
	maxTokens   int64
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for chat completions.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithTemperature sets the temperature parameter for text generation.
func WithTemperature(temp float64) Option {
	return func(c *Client) {
		c.temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int64) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithVertexAI serves Claude through Vertex AI using Google application default credentials.
func WithVertexAI(region, projectID string) Option {
	return func(c *Client) {
		c.region = region
		c.projectID = projectID
	}
}

// New creates a new client for the Claude API. apiKey is required unless WithVertexAI is given.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	client := newClient(options...)

	var reqOpts []option.RequestOption
	switch {
	case client.region != "" && client.projectID != "":
		reqOpts = append(reqOpts, vertex.WithGoogleAuth(ctx, client.region, client.projectID))
	case client.region != "" || client.projectID != "":
		return nil, goerr.Wrap(advisor.ErrInvalidConfig, "both region and project are required for Vertex AI",
			goerr.V("region", client.region),
			goerr.V("project", client.projectID),
		)
	case apiKey == "":
		return nil, goerr.Wrap(advisor.ErrInvalidConfig, "ANTHROPIC_API_KEY is not configured")
	default:
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}

	newClient := anthropic.NewClient(reqOpts...)
	client.apiClient = &realAPIClient{client: &newClient}

	return client, nil
}

func newClient(options ...Option) *Client {
	client := &Client{
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Info returns the model configuration.
func (c *Client) Info() advisor.ModelInfo {
	return advisor.ModelInfo{
		Provider:    providerName,
		Model:       c.model,
		Temperature: float32(c.temperature),
		MaxTokens:   int(c.maxTokens),
	}
}

// createRequest creates a message request for the prompt
func (c *Client) createRequest(p *advisor.Prompt) (anthropic.MessageNewParams, error) {
	messages := make([]anthropic.MessageParam, 0, len(p.History)+1)
	for _, entry := range p.History {
		block := anthropic.NewTextBlock(entry.Content)
		switch entry.Role {
		case advisor.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(block))
		case advisor.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(block))
		default:
			return anthropic.MessageNewParams{}, goerr.Wrap(advisor.ErrInvalidPrompt, "unsupported role", goerr.V("role", entry.Role))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(p.Input)))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages:    messages,
	}
	if p.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.System}}
	}
	return params, nil
}

// Generate sends the prompt to Claude and returns the text blocks of the reply.
func (c *Client) Generate(ctx context.Context, p *advisor.Prompt) (*advisor.Response, error) {
	params, err := c.createRequest(p)
	if err != nil {
		return nil, err
	}

	if logger := ctxlog.From(ctx, claudePromptScope); logger.Enabled(ctx, slog.LevelInfo) {
		logger.Info("Claude prompt",
			"model", c.model,
			"system_prompt", p.System,
			"messages", len(params.Messages),
			"input", p.Input,
		)
	}

	resp, err := c.apiClient.MessagesNew(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create message", goerr.V("model", c.model))
	}

	response := processResponse(resp)
	if response.Model == "" {
		response.Model = c.model
	}

	if logger := ctxlog.From(ctx, claudeResponseScope); logger.Enabled(ctx, slog.LevelInfo) {
		logger.Info("Claude response",
			"stop_reason", resp.StopReason,
			"input_tokens", response.InputTokens,
			"output_tokens", response.OutputTokens,
			"text", response.Text,
		)
	}

	return response, nil
}

// processResponse converts Claude response to advisor.Response
func processResponse(resp *anthropic.Message) *advisor.Response {
	if resp == nil {
		return &advisor.Response{}
	}

	var texts []string
	for _, content := range resp.Content {
		if content.Type == "text" {
			texts = append(texts, content.Text)
		}
	}

	return &advisor.Response{
		Text:         strings.Join(texts, ""),
		Model:        string(resp.Model),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
}
