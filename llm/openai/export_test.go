package openai

// Export for testing
type APIClient = apiClient

var (
	ConvertPrompt          = convertPrompt
	TokenLimitErrorOptions = tokenLimitErrorOptions
)

// NewWithAPIClient creates a client with a custom API client for testing
func NewWithAPIClient(client apiClient, options ...Option) *Client {
	c := newClient(options...)
	c.apiClient = client
	return c
}
