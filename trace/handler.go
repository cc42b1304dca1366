package trace

import "context"

// Handler is the interface for trace backends.
// Implementations receive lifecycle events of each conversation turn
// and can record, export, or forward them as needed.
type Handler interface {
	// StartTurn starts the root span of a turn in the given session.
	StartTurn(ctx context.Context, sessionID string) context.Context
	// EndTurn ends the root span. err is the reason the turn fell back, if any.
	EndTurn(ctx context.Context, err error)

	// StartLLMCall starts an LLM call span.
	StartLLMCall(ctx context.Context) context.Context
	// EndLLMCall ends an LLM call span with the given data.
	EndLLMCall(ctx context.Context, data *LLMCallData, err error)

	// AddEvent adds an event to the current span.
	AddEvent(ctx context.Context, kind string, data any)

	// Finish completes the trace and performs any final operations.
	Finish(ctx context.Context) error
}
