package gemini

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7

	providerName = "gemini"
)

var (
	// geminiPromptScope is the logging scope for Gemini prompts
	geminiPromptScope = ctxlog.NewScope("gemini_prompt", ctxlog.EnabledBy("ADVISOR_LOGGING_GEMINI_PROMPT"))

	// geminiResponseScope is the logging scope for Gemini responses
	geminiResponseScope = ctxlog.NewScope("gemini_response", ctxlog.EnabledBy("ADVISOR_LOGGING_GEMINI_RESPONSE"))
)

// Client is a client for the Gemini API.
type Client struct {
	apiClient apiClient

	// projectID and location select the Vertex AI backend when both are set.
	projectID string
	location  string

	// model is the model to use for chat completions.
	// It can be overridden using WithModel option.
	model string

	temperature float32
	maxTokens   int32
}

// Option is a configuration option for the Gemini client.
type Option func(*Client)

// WithModel sets the model to use for text generation.
// Default: "gemini-2.5-flash"
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithTemperature sets the temperature parameter for text generation.
// Default: 0.7
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
// Default: 4096
func WithMaxTokens(maxTokens int32) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithVertexAI uses the Vertex AI backend in the given project and location instead of an API key.
func WithVertexAI(projectID, location string) Option {
	return func(c *Client) {
		c.projectID = projectID
		c.location = location
	}
}

// New creates a new client for the Gemini API. apiKey is required unless WithVertexAI is given.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	client := newClient(options...)

	config := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if client.projectID != "" || client.location != "" {
		if client.projectID == "" || client.location == "" {
			return nil, goerr.Wrap(advisor.ErrInvalidConfig, "both project and location are required for Vertex AI",
				goerr.V("project", client.projectID),
				goerr.V("location", client.location),
			)
		}
		config = &genai.ClientConfig{
			Project:  client.projectID,
			Location: client.location,
			Backend:  genai.BackendVertexAI,
		}
	} else if apiKey == "" {
		return nil, goerr.Wrap(advisor.ErrInvalidConfig, "GEMINI_API_KEY is not configured")
	}

	newClient, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}

	client.apiClient = &realAPIClient{client: newClient}
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
		MaxTokens:   int(c.maxTokens),
	}
}

func (c *Client) generationConfig(systemPrompt string) *genai.GenerateContentConfig {
	temp := c.temperature
	config := &genai.GenerateContentConfig{
		Temperature:      &temp,
		MaxOutputTokens:  c.maxTokens,
		ResponseMIMEType: "text/plain",
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Role:  "system",
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	return config
}

// Generate sends the prompt to Gemini and returns the generated text.
// A response without text is returned with an empty Text rather than an error.
func (c *Client) Generate(ctx context.Context, p *advisor.Prompt) (*advisor.Response, error) {
	contents, err := convertPrompt(p)
	if err != nil {
		return nil, err
	}
	config := c.generationConfig(p.System)

	advisor.LoggerFromContext(ctx).Debug("calling Gemini",
		"model", c.model,
		"contents", len(contents),
	)

	promptLogger := ctxlog.From(ctx, geminiPromptScope)
	if promptLogger.Enabled(ctx, slog.LevelInfo) {
		var messages []map[string]any
		for _, content := range contents {
			for _, part := range content.Parts {
				messages = append(messages, map[string]any{
					"role":    content.Role,
					"content": part.Text,
				})
			}
		}
		promptLogger.Info("Gemini prompt",
			"system_prompt", p.System,
			"messages", messages,
		)
	}

	result, err := c.apiClient.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", c.model))
	}

	resp, err := processResponse(result)
	if err != nil {
		return nil, err
	}
	resp.Model = c.model

	responseLogger := ctxlog.From(ctx, geminiResponseScope)
	if responseLogger.Enabled(ctx, slog.LevelInfo) {
		var finishReason string
		if len(result.Candidates) > 0 {
			finishReason = string(result.Candidates[0].FinishReason)
		}
		responseLogger.Info("Gemini response",
			"finish_reason", finishReason,
			"usage", map[string]any{
				"prompt_tokens":     resp.InputTokens,
				"candidates_tokens": resp.OutputTokens,
			},
			"text", resp.Text,
		)
	}

	return resp, nil
}

// processResponse converts a Gemini response to an advisor.Response
func processResponse(resp *genai.GenerateContentResponse) (*advisor.Response, error) {
	response := &advisor.Response{}
	if resp == nil {
		return response, nil
	}

	if resp.UsageMetadata != nil {
		response.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		response.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	var texts []string
	for _, candidate := range resp.Candidates {
		if strings.Contains(string(candidate.FinishReason), "PROHIBITED_CONTENT") {
			return nil, goerr.Wrap(advisor.ErrProhibitedContent, "prohibited content",
				goerr.V("finish_reason", candidate.FinishReason),
			)
		}

		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				texts = append(texts, part.Text)
			}
		}
		// Only the first candidate with content is used.
		if len(texts) > 0 {
			break
		}
	}

	response.Text = strings.Join(texts, "")
	return response, nil
}
