// Package otel bridges conversation turn traces to OpenTelemetry spans, so turns and model
// calls show up in any OTel-compatible backend (Jaeger, Zipkin, OTLP, etc.).
//
// Basic usage with global TracerProvider:
//
//	chat, err := advisor.NewChat(client, advisor.WithTrace(otel.New()))
package otel

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/advisor/trace"
	otelAPI "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/m-mizutani/advisor"
)

// Option is a functional option for configuring the OTel handler.
type Option func(*handler)

// WithTracerProvider sets an explicit TracerProvider.
// If not set, the global TracerProvider is used.
func WithTracerProvider(tp otelTrace.TracerProvider) Option {
	return func(h *handler) {
		h.tracerProvider = tp
	}
}

type handler struct {
	tracerProvider otelTrace.TracerProvider
	tracer         otelTrace.Tracer
}

// New creates a new OTel trace handler.
func New(opts ...Option) trace.Handler {
	h := &handler{}
	for _, opt := range opts {
		opt(h)
	}

	if h.tracerProvider == nil {
		h.tracerProvider = otelAPI.GetTracerProvider()
	}
	h.tracer = h.tracerProvider.Tracer(tracerName)

	return h
}

func (h *handler) StartTurn(ctx context.Context, sessionID string) context.Context {
	ctx, _ = h.tracer.Start(ctx, "turn",
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
		otelTrace.WithAttributes(sessionIDAttr(sessionID)),
	)
	return ctx
}

func (h *handler) EndTurn(ctx context.Context, err error) {
	endSpan(otelTrace.SpanFromContext(ctx), err)
}

func (h *handler) StartLLMCall(ctx context.Context) context.Context {
	ctx, _ = h.tracer.Start(ctx, "llm_call",
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
	)
	return ctx
}

func (h *handler) EndLLMCall(ctx context.Context, data *trace.LLMCallData, err error) {
	span := otelTrace.SpanFromContext(ctx)
	if data != nil {
		span.SetAttributes(
			llmModelAttr(data.Model),
			llmInputTokensAttr(data.InputTokens),
			llmOutputTokensAttr(data.OutputTokens),
		)
	}
	endSpan(span, err)
}

func (h *handler) AddEvent(ctx context.Context, kind string, data any) {
	span := otelTrace.SpanFromContext(ctx)
	if data == nil {
		span.AddEvent(kind)
		return
	}
	if b, err := json.Marshal(data); err == nil {
		span.AddEvent(kind, otelTrace.WithAttributes(eventDataAttr(string(b))))
	} else {
		span.AddEvent(kind)
	}
}

// Finish is a no-op. Spans are exported by the TracerProvider's SpanProcessor.
func (h *handler) Finish(_ context.Context) error {
	return nil
}

func endSpan(span otelTrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
