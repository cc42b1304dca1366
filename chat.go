package advisor

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/m-mizutani/advisor/trace"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// DefaultFallbackMessage is shown to the user when the model call fails or returns
	// unusable text.
	DefaultFallbackMessage = "I'm experiencing technical difficulties connecting to the AI service. Please try again in a moment.\n\n" +
		"In the meantime, consider:\n" +
		"- Reviewing your career goals and skills\n" +
		"- Preparing questions about your career path\n" +
		"- Researching industry trends in your field"

	// minResponseChars is the shortest trimmed response accepted from the model.
	minResponseChars = 10

	pingSystemPrompt = "Respond with a simple greeting."
	pingInput        = "Say hello"
)

// Chat drives one conversation: it records turns, keeps the log within its retention
// ceiling, selects the context window and calls the model.
type Chat struct {
	id     string
	client ModelClient
	log    *ConversationLog

	retention *RetentionPolicy
	selector  *ContextWindowSelector
	assembler *PromptAssembler

	chatConfig
}

type chatConfig struct {
	maxMessages  int
	tokenBudget  int
	fullHistory  bool
	systemPrompt string
	fallback     string
	now          func() time.Time
	logger       *slog.Logger
	tracer       trace.Handler
}

// Option configures a Chat.
type Option func(*chatConfig)

// WithLogger sets the logger for the chat and its components.
func WithLogger(logger *slog.Logger) Option {
	return func(c *chatConfig) {
		c.logger = logger
	}
}

// WithMaxMessages sets the retention ceiling. Default: DefaultMaxMessages.
func WithMaxMessages(n int) Option {
	return func(c *chatConfig) {
		c.maxMessages = n
	}
}

// WithTokenBudget sets the context window budget. Default: DefaultTokenBudget.
func WithTokenBudget(n int) Option {
	return func(c *chatConfig) {
		c.tokenBudget = n
	}
}

// WithFullHistory sends the whole retained log to the model instead of a budgeted window.
func WithFullHistory() Option {
	return func(c *chatConfig) {
		c.fullHistory = true
	}
}

// WithSystemPrompt sets the instruction prompt attached to every model call.
func WithSystemPrompt(prompt string) Option {
	return func(c *chatConfig) {
		c.systemPrompt = prompt
	}
}

// WithFallbackMessage replaces DefaultFallbackMessage.
func WithFallbackMessage(msg string) Option {
	return func(c *chatConfig) {
		c.fallback = msg
	}
}

// WithChatClock replaces time.Now for the conversation log.
func WithChatClock(now func() time.Time) Option {
	return func(c *chatConfig) {
		c.now = now
	}
}

// WithTrace records every Ask as a trace turn with its model call.
func WithTrace(h trace.Handler) Option {
	return func(c *chatConfig) {
		c.tracer = h
	}
}

// NewChat creates a chat session backed by client.
func NewChat(client ModelClient, options ...Option) (*Chat, error) {
	cfg := chatConfig{
		maxMessages: DefaultMaxMessages,
		tokenBudget: DefaultTokenBudget,
		fallback:    DefaultFallbackMessage,
		now:         time.Now,
		logger:      defaultLogger,
	}
	for _, opt := range options {
		opt(&cfg)
	}

	if client == nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "model client is required")
	}
	if cfg.tokenBudget <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "token budget must be positive", goerr.V("token_budget", cfg.tokenBudget))
	}

	retention, err := NewRetentionPolicy(cfg.maxMessages, WithRetentionLogger(cfg.logger))
	if err != nil {
		return nil, err
	}

	x := &Chat{
		id:         uuid.Must(uuid.NewV7()).String(),
		client:     client,
		log:        NewConversationLog(WithClock(cfg.now), WithLogLogger(cfg.logger)),
		retention:  retention,
		selector:   NewContextWindowSelector(),
		assembler:  NewPromptAssembler(cfg.systemPrompt),
		chatConfig: cfg,
	}

	x.logger.Info("chat session created",
		"session_id", x.id,
		"max_messages", cfg.maxMessages,
		"token_budget", cfg.tokenBudget,
		"full_history", cfg.fullHistory,
		"model", client.Info(),
	)

	return x, nil
}

// Reply is the outcome of one Ask call. When Fallback is true, Text is the fallback message,
// Cause describes what went wrong and nothing was added to the log.
type Reply struct {
	Text     string
	Fallback bool
	Cause    error

	Model        string
	InputTokens  int
	OutputTokens int

	ContextMessages int
	ContextTokens   int
}

// Ask records the user's text, calls the model with the selected context and records the
// answer. Model failures do not return an error: they produce a fallback Reply.
func (x *Chat) Ask(ctx context.Context, text string) (*Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, goerr.Wrap(ErrEmptyInput, "user message is blank")
	}
	ctx = ctxlog.With(ctxWithLogger(ctx, x.logger), x.logger)

	if x.tracer == nil {
		return x.ask(ctx, text)
	}

	ctx = trace.WithHandler(ctx, x.tracer)
	ctx = x.tracer.StartTurn(ctx, x.id)
	reply, err := x.ask(ctx, text)

	cause := err
	if reply != nil && reply.Fallback {
		cause = reply.Cause
	}
	x.tracer.EndTurn(ctx, cause)
	if err := x.tracer.Finish(ctx); err != nil {
		x.logger.Warn("failed to finish trace", "error", err)
	}
	return reply, err
}

func (x *Chat) ask(ctx context.Context, text string) (*Reply, error) {
	x.log.AppendUser(text)
	x.retention.Apply(x.log)

	window := x.contextWindow()
	prompt, err := x.assembler.Assemble(window.Entries)
	if err != nil {
		return nil, err
	}
	if x.tracer != nil {
		x.tracer.AddEvent(ctx, "context_window", map[string]any{
			"messages":     window.Len(),
			"tokens":       window.Tokens,
			"budget":       x.tokenBudget,
			"full_history": x.fullHistory,
		})
	}

	start := time.Now()
	resp, err := x.generate(ctx, prompt)
	if err != nil {
		x.logger.Error("model call failed",
			"error", err,
			"context_messages", window.Len(),
			"context_tokens", window.Tokens,
		)
		return x.fallbackReply(ctx, window, err), nil
	}

	if !ValidResponse(resp.Text) {
		x.logger.Warn("invalid or empty response received",
			"response_chars", utf8.RuneCountInString(resp.Text),
		)
		return x.fallbackReply(ctx, window, goerr.Wrap(ErrEmptyResponse, "response too short",
			goerr.V("response", resp.Text),
		)), nil
	}

	x.log.AppendAssistant(resp.Text, Metadata{
		"model":            resp.Model,
		"input_tokens":     resp.InputTokens,
		"output_tokens":    resp.OutputTokens,
		"context_messages": window.Len(),
		"context_tokens":   window.Tokens,
	})
	x.retention.Apply(x.log)

	x.logger.Info("successfully generated response",
		"message_chars", utf8.RuneCountInString(text),
		"response_chars", utf8.RuneCountInString(resp.Text),
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"duration", time.Since(start),
	)

	return &Reply{
		Text:            resp.Text,
		Model:           resp.Model,
		InputTokens:     resp.InputTokens,
		OutputTokens:    resp.OutputTokens,
		ContextMessages: window.Len(),
		ContextTokens:   window.Tokens,
	}, nil
}

// generate calls the model inside an llm_call span when tracing is enabled.
func (x *Chat) generate(ctx context.Context, p *Prompt) (*Response, error) {
	if x.tracer == nil {
		return x.client.Generate(ctx, p)
	}

	callCtx := x.tracer.StartLLMCall(ctx)
	resp, err := x.client.Generate(callCtx, p)

	data := &trace.LLMCallData{
		Model:   x.client.Info().Model,
		Request: &trace.LLMRequest{SystemPrompt: p.System, Input: p.Input},
	}
	for _, h := range p.History {
		data.Request.History = append(data.Request.History, trace.Message{
			Role:    string(h.Role),
			Content: h.Content,
		})
	}
	if resp != nil {
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.InputTokens = resp.InputTokens
		data.OutputTokens = resp.OutputTokens
		data.Response = &trace.LLMResponse{Text: resp.Text}
	}
	x.tracer.EndLLMCall(callCtx, data, err)

	return resp, err
}

// contextWindow chooses the history for the next call. The newest user turn is always
// included, even when it alone exceeds the budget.
func (x *Chat) contextWindow() ContextWindow {
	if x.fullHistory {
		var w ContextWindow
		for entry := range x.log.History() {
			w.Entries = append(w.Entries, entry)
			w.Tokens += EstimateTokens(entry.Content)
		}
		return w
	}

	w := x.selector.Select(x.log, x.tokenBudget)
	if w.Len() == 0 {
		if last, ok := x.log.Last(); ok {
			x.logger.Warn("newest message exceeds token budget, sending it alone",
				"estimated_tokens", EstimateTokens(last.Content),
				"token_budget", x.tokenBudget,
			)
			return ContextWindow{
				Entries: []HistoryEntry{last.Entry()},
				Tokens:  EstimateTokens(last.Content),
			}
		}
	}
	return w
}

func (x *Chat) fallbackReply(ctx context.Context, window ContextWindow, cause error) *Reply {
	x.logger.Warn("returning fallback response", "cause", cause.Error())
	if x.tracer != nil {
		x.tracer.AddEvent(ctx, "fallback", map[string]any{"cause": cause.Error()})
	}
	return &Reply{
		Text:            x.fallback,
		Fallback:        true,
		Cause:           cause,
		ContextMessages: window.Len(),
		ContextTokens:   window.Tokens,
	}
}

// ValidResponse reports whether text is long enough to be shown as an answer.
func ValidResponse(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= minResponseChars
}

// Ping sends a fixed greeting request to check that the model is reachable.
func (x *Chat) Ping(ctx context.Context) error {
	resp, err := x.client.Generate(ctx, &Prompt{
		System: pingSystemPrompt,
		Input:  pingInput,
	})
	if err != nil {
		x.logger.Error("connection test failed", "error", err)
		return goerr.Wrap(err, "connection test failed")
	}
	if strings.TrimSpace(resp.Text) == "" {
		x.logger.Error("connection test failed: empty response")
		return goerr.Wrap(ErrEmptyResponse, "connection test returned no text")
	}

	x.logger.Info("connection test successful", "model", resp.Model)
	return nil
}

// ID returns the session identifier used when saving transcripts.
func (x *Chat) ID() string { return x.id }

// ModelInfo describes the model behind the chat.
func (x *Chat) ModelInfo() ModelInfo { return x.client.Info() }

// History yields the conversation as role/content pairs.
func (x *Chat) History() iter.Seq[HistoryEntry] { return x.log.History() }

// Messages returns a copy of the stored messages.
func (x *Chat) Messages() []Message { return x.log.Messages() }

// Stats returns session statistics.
func (x *Chat) Stats() SessionStats { return Snapshot(x.log) }

// Summary returns the human-readable conversation digest.
func (x *Chat) Summary() string { return x.log.Summary() }

// Display returns the timestamped transcript text.
func (x *Chat) Display() string { return x.log.Display() }

// Export returns the serializable conversation.
func (x *Chat) Export() []MessageRecord { return x.log.Export() }

// Clear drops the conversation and restarts the session clock.
func (x *Chat) Clear() { x.log.Clear() }

// Transcript bundles the export with the session identity.
func (x *Chat) Transcript() *Transcript {
	return &Transcript{
		Version:      TranscriptVersion,
		SessionID:    x.id,
		SessionStart: x.log.SessionStart().Format(time.RFC3339Nano),
		Messages:     x.log.Export(),
	}
}

// Save persists the transcript under the session ID.
func (x *Chat) Save(ctx context.Context, repo ConversationRepository) error {
	if err := repo.Save(ctx, x.id, x.Transcript()); err != nil {
		return goerr.Wrap(err, "failed to save conversation", goerr.V("session_id", x.id))
	}
	x.logger.Info("conversation saved", "session_id", x.id, "messages", x.log.Len())
	return nil
}

// Resume replaces the conversation with a saved transcript and adopts its session ID and
// session start. An empty SessionStart keeps the current one. The retention ceiling is
// applied to the restored messages.
func (x *Chat) Resume(t *Transcript) error {
	if t == nil {
		return goerr.Wrap(ErrInvalidRecord, "transcript is nil")
	}
	if t.Version != TranscriptVersion {
		return goerr.Wrap(ErrTranscriptVersionMismatch, "unsupported transcript version",
			goerr.V("got", t.Version),
			goerr.V("want", TranscriptVersion),
		)
	}

	start := x.log.SessionStart()
	if t.SessionStart != "" {
		parsed, err := time.Parse(time.RFC3339Nano, t.SessionStart)
		if err != nil {
			return goerr.Wrap(ErrInvalidRecord, "malformed session start",
				goerr.V("session_start", t.SessionStart),
				goerr.V("error", err.Error()),
			)
		}
		start = parsed
	}

	if err := x.log.RestoreSession(start, t.Messages); err != nil {
		return goerr.Wrap(err, "failed to restore conversation", goerr.V("session_id", t.SessionID))
	}
	if t.SessionID != "" {
		x.id = t.SessionID
	}
	x.retention.Apply(x.log)
	return nil
}
