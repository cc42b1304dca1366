package openai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7

	providerName = "openai"
)

var (
	openaiPromptScope   = ctxlog.NewScope("openai_prompt", ctxlog.EnabledBy("ADVISOR_LOGGING_OPENAI_PROMPT"))
	openaiResponseScope = ctxlog.NewScope("openai_response", ctxlog.EnabledBy("ADVISOR_LOGGING_OPENAI_RESPONSE"))
)

// Client is a client for the OpenAI chat completion API.
type Client struct {
	apiClient apiClient

	// model is the model to use for chat completions.
	model string

	// baseURL overrides the API endpoint, e.g. for an OpenAI compatible server.
	baseURL string

	temperature float32
	maxTokens   int
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for chat completions.
// Default: "gpt-4o-mini"
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithTemperature sets the temperature parameter for text generation.
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithBaseURL sets the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// New creates a new client for the OpenAI API.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.Wrap(advisor.ErrInvalidConfig, "OPENAI_API_KEY is not configured")
	}

	client := newClient(options...)

	config := openai.DefaultConfig(apiKey)
	if client.baseURL != "" {
		config.BaseURL = client.baseURL
	}
	client.apiClient = &realAPIClient{client: openai.NewClientWithConfig(config)}

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
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
}

func (c *Client) createRequest(p *advisor.Prompt) (openai.ChatCompletionRequest, error) {
	messages, err := convertPrompt(p)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}, nil
}

// Generate sends the prompt as a chat completion request.
func (c *Client) Generate(ctx context.Context, p *advisor.Prompt) (*advisor.Response, error) {
	req, err := c.createRequest(p)
	if err != nil {
		return nil, err
	}

	if logger := ctxlog.From(ctx, openaiPromptScope); logger.Enabled(ctx, slog.LevelInfo) {
		logger.Info("OpenAI prompt", "model", req.Model, "messages", req.Messages)
	}

	resp, err := c.apiClient.CreateChatCompletion(ctx, req)
	if err != nil {
		opts := append(tokenLimitErrorOptions(err), goerr.V("model", c.model))
		return nil, goerr.Wrap(err, "failed to create chat completion", opts...)
	}

	response := &advisor.Response{
		Model:        c.model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if resp.Model != "" {
		response.Model = resp.Model
	}
	if len(resp.Choices) > 0 {
		response.Text = resp.Choices[0].Message.Content
	}

	if logger := ctxlog.From(ctx, openaiResponseScope); logger.Enabled(ctx, slog.LevelInfo) {
		var finishReason openai.FinishReason
		if len(resp.Choices) > 0 {
			finishReason = resp.Choices[0].FinishReason
		}
		logger.Info("OpenAI response",
			"finish_reason", finishReason,
			"usage", resp.Usage,
			"text", response.Text,
		)
	}

	return response, nil
}

func convertPrompt(p *advisor.Prompt) ([]openai.ChatCompletionMessage, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(p.History)+2)
	if p.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.System,
		})
	}

	for _, entry := range p.History {
		var role string
		switch entry.Role {
		case advisor.RoleUser:
			role = openai.ChatMessageRoleUser
		case advisor.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		default:
			return nil, goerr.Wrap(advisor.ErrInvalidPrompt, "unsupported role", goerr.V("role", entry.Role))
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: entry.Content,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: p.Input,
	})
	return messages, nil
}

// tokenLimitErrorOptions checks if the error is a context length exceeded error
// and returns goerr.Option to tag the error with ErrTagTokenExceeded.
func tokenLimitErrorOptions(err error) []goerr.Option {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return nil
	}

	if apiErr.Type != "invalid_request_error" {
		return nil
	}

	codeStr, ok := apiErr.Code.(string)
	if !ok {
		return nil
	}

	if codeStr == "context_length_exceeded" {
		return []goerr.Option{goerr.Tag(advisor.ErrTagTokenExceeded)}
	}

	return nil
}
