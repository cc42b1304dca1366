package trace

// LLMCallData holds data specific to an LLM call span.
type LLMCallData struct {
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model,omitempty"`

	Request  *LLMRequest  `json:"request"`
	Response *LLMResponse `json:"response"`
}

// LLMRequest represents the prompt sent to a model.
type LLMRequest struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	History      []Message `json:"history,omitempty"`
	Input        string    `json:"input"`
}

// LLMResponse represents the text returned by a model.
type LLMResponse struct {
	Text string `json:"text"`
}

// Message is one history entry as sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// EventData holds data of an event span. Kind names what happened, Data is any
// JSON-serializable value describing it.
type EventData struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}
