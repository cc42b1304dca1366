package gemini

import "google.golang.org/genai"

// Export for testing
type APIClient = apiClient

var (
	ConvertPrompt   = convertPrompt
	ProcessResponse = processResponse
)

// NewWithAPIClient creates a client with a custom API client for testing
func NewWithAPIClient(client apiClient, options ...Option) *Client {
	c := newClient(options...)
	c.apiClient = client
	return c
}

// GetGenerationConfig returns the generation config for testing
func (c *Client) GetGenerationConfig(systemPrompt string) *genai.GenerateContentConfig {
	return c.generationConfig(systemPrompt)
}
