package claude

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/m-mizutani/advisor"
)

// Export for testing
type APIClient = apiClient

var ProcessResponse = processResponse

// NewWithAPIClient creates a client with a custom API client for testing
func NewWithAPIClient(client apiClient, options ...Option) *Client {
	c := newClient(options...)
	c.apiClient = client
	return c
}

// CreateRequest exposes createRequest for testing
func (c *Client) CreateRequest(p *advisor.Prompt) (anthropic.MessageNewParams, error) {
	return c.createRequest(p)
}
