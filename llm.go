package advisor

import (
	"context"
	"log/slog"
)

//go:generate go tool moq -out mock/mock.go -pkg mock . ModelClient

// ModelClient is the external language-model call: it receives the assembled prompt and
// returns generated text. Implementations live under llm/.
type ModelClient interface {
	Generate(ctx context.Context, prompt *Prompt) (*Response, error)
	Info() ModelInfo
}

// Response is the result of one model call.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// ModelInfo describes the configured model for display.
type ModelInfo struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

func (x ModelInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", x.Provider),
		slog.String("model", x.Model),
		slog.Float64("temperature", float64(x.Temperature)),
		slog.Int("max_tokens", x.MaxTokens),
	)
}
