// Package logger provides a trace handler that writes conversation turns to slog.
package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/advisor/trace"
)

// Event represents a trace event type that can be selectively enabled.
type Event int

const (
	// Turn enables logging of turn start/end.
	Turn Event = iota
	// LLMRequest enables logging of the prompt sent to the model.
	LLMRequest
	// LLMResponse enables logging of the model's text and token usage.
	LLMResponse
	// CustomEvent enables logging of events added during a turn.
	CustomEvent

	eventCount // sentinel for iteration
)

type config struct {
	logger *slog.Logger
	events map[Event]bool
}

// Option configures the logger handler.
type Option func(*config)

// WithLogger sets a custom slog.Logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithEvents enables only the specified event types.
// When not specified, all events are enabled.
func WithEvents(events ...Event) Option {
	return func(c *config) {
		c.events = make(map[Event]bool, len(events))
		for _, e := range events {
			c.events[e] = true
		}
	}
}

type handler struct {
	cfg config
}

// New creates a new trace.Handler that logs trace events via slog.
func New(opts ...Option) trace.Handler {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.events == nil {
		cfg.events = make(map[Event]bool, eventCount)
		for i := Event(0); i < eventCount; i++ {
			cfg.events[i] = true
		}
	}

	return &handler{cfg: cfg}
}

func (h *handler) logger() *slog.Logger {
	if h.cfg.logger != nil {
		return h.cfg.logger
	}
	return slog.Default()
}

func (h *handler) enabled(e Event) bool {
	return h.cfg.events[e]
}

type startTimeKey struct{}

func withStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey{}, t)
}

func startTimeFrom(ctx context.Context) time.Time {
	t, _ := ctx.Value(startTimeKey{}).(time.Time)
	return t
}

type sessionIDKey struct{}

func sessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// StartTurn logs the start of a turn.
func (h *handler) StartTurn(ctx context.Context, sessionID string) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey{}, sessionID)
	if h.enabled(Turn) {
		h.logger().InfoContext(ctx, "turn started", slog.String("session_id", sessionID))
	}
	return withStartTime(ctx, time.Now())
}

// EndTurn logs the end of a turn with duration and error info.
func (h *handler) EndTurn(ctx context.Context, err error) {
	if !h.enabled(Turn) {
		return
	}

	attrs := []any{
		slog.String("session_id", sessionIDFrom(ctx)),
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	h.logger().InfoContext(ctx, "turn ended", attrs...)
}

// StartLLMCall records the start time for duration calculation.
func (h *handler) StartLLMCall(ctx context.Context) context.Context {
	return withStartTime(ctx, time.Now())
}

// EndLLMCall logs LLM call details based on enabled events.
// If either LLMRequest or LLMResponse is enabled, model and token usage are included.
func (h *handler) EndLLMCall(ctx context.Context, data *trace.LLMCallData, err error) {
	reqEnabled := h.enabled(LLMRequest)
	respEnabled := h.enabled(LLMResponse)
	if !reqEnabled && !respEnabled {
		return
	}

	attrs := []any{
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
	}

	if data != nil {
		attrs = append(attrs,
			slog.String("model", data.Model),
			slog.Int("input_tokens", data.InputTokens),
			slog.Int("output_tokens", data.OutputTokens),
		)

		if reqEnabled && data.Request != nil {
			attrs = append(attrs, slog.Any("request", data.Request))
		}
		if respEnabled && data.Response != nil {
			attrs = append(attrs, slog.Any("response", data.Response))
		}
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	h.logger().InfoContext(ctx, "llm call", attrs...)
}

// AddEvent logs an event added during a turn.
func (h *handler) AddEvent(ctx context.Context, kind string, data any) {
	if !h.enabled(CustomEvent) {
		return
	}

	h.logger().InfoContext(ctx, "event",
		slog.String("kind", kind),
		slog.Any("data", data),
	)
}

// Finish is a no-op for the logger handler.
func (h *handler) Finish(_ context.Context) error {
	return nil
}
