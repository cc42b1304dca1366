package trace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Option is a functional option for configuring a Recorder.
type Option func(*Recorder)

// WithRepository sets the repository for persisting trace data.
func WithRepository(repo Repository) Option {
	return func(r *Recorder) {
		r.repo = repo
	}
}

// WithMetadata sets the metadata copied into every trace. SessionID is filled per turn.
func WithMetadata(meta TraceMetadata) Option {
	return func(r *Recorder) {
		r.metadata = meta
	}
}

// Recorder collects one Trace per conversation turn in memory.
// It implements the Handler interface and provides access to the latest Trace via Trace().
type Recorder struct {
	trace    *Trace
	mu       sync.Mutex
	repo     Repository
	metadata TraceMetadata
}

// New creates a new Recorder with the given options.
func New(opts ...Option) *Recorder {
	r := &Recorder{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// context key types
type handlerKey struct{}
type currentSpanKey struct{}

// WithHandler stores the Handler in the context.
func WithHandler(ctx context.Context, h Handler) context.Context {
	return context.WithValue(ctx, handlerKey{}, h)
}

// HandlerFrom retrieves the Handler from the context. Returns nil if not set.
func HandlerFrom(ctx context.Context) Handler {
	h, _ := ctx.Value(handlerKey{}).(Handler)
	return h
}

func withCurrentSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, currentSpanKey{}, span)
}

func currentSpanFrom(ctx context.Context) *Span {
	s, _ := ctx.Value(currentSpanKey{}).(*Span)
	return s
}

func newSpanID() string {
	return uuid.New().String()
}

// StartTurn starts a new trace whose root is a turn span. The previous trace is replaced.
func (r *Recorder) StartTurn(ctx context.Context, sessionID string) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	span := &Span{
		SpanID:    newSpanID(),
		Kind:      SpanKindTurn,
		Name:      "turn",
		StartedAt: now,
		Status:    SpanStatusOK,
	}

	meta := r.metadata
	meta.SessionID = sessionID

	r.trace = &Trace{
		TraceID:   uuid.Must(uuid.NewV7()).String(),
		RootSpan:  span,
		Metadata:  meta,
		StartedAt: now,
	}

	return withCurrentSpan(ctx, span)
}

// EndTurn ends the root turn span.
func (r *Recorder) EndTurn(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != SpanKindTurn {
		return
	}

	now := time.Now()
	endSpan(span, now, err)

	if r.trace != nil {
		r.trace.EndedAt = now
	}
}

// StartLLMCall starts an llm_call span as a child of the current span.
func (r *Recorder) StartLLMCall(ctx context.Context) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent := currentSpanFrom(ctx)
	if parent == nil {
		return ctx
	}

	span := &Span{
		SpanID:    newSpanID(),
		ParentID:  parent.SpanID,
		Kind:      SpanKindLLMCall,
		Name:      "llm_call",
		StartedAt: time.Now(),
		Status:    SpanStatusOK,
	}

	parent.Children = append(parent.Children, span)
	return withCurrentSpan(ctx, span)
}

// EndLLMCall ends the llm_call span with the given data.
func (r *Recorder) EndLLMCall(ctx context.Context, data *LLMCallData, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != SpanKindLLMCall {
		return
	}

	span.LLMCall = data
	endSpan(span, time.Now(), err)

	if data != nil && r.trace != nil && r.trace.Metadata.Model == "" {
		r.trace.Metadata.Model = data.Model
	}
}

// AddEvent adds an event span as a child of the current span.
func (r *Recorder) AddEvent(ctx context.Context, kind string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent := currentSpanFrom(ctx)
	if parent == nil {
		return
	}

	now := time.Now()
	parent.Children = append(parent.Children, &Span{
		SpanID:    newSpanID(),
		ParentID:  parent.SpanID,
		Kind:      SpanKindEvent,
		Name:      kind,
		StartedAt: now,
		EndedAt:   now,
		Status:    SpanStatusOK,
		Event: &EventData{
			Kind: kind,
			Data: data,
		},
	})
}

// Finish persists the latest trace to the Repository.
func (r *Recorder) Finish(ctx context.Context) error {
	r.mu.Lock()
	trace := r.trace
	repo := r.repo
	r.mu.Unlock()

	if trace == nil || repo == nil {
		return nil
	}

	return repo.Save(ctx, trace)
}

// Trace returns the latest trace data. Returns nil if no turn has started.
func (r *Recorder) Trace() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trace
}

func endSpan(span *Span, now time.Time, err error) {
	span.EndedAt = now
	span.Duration = now.Sub(span.StartedAt)
	if err != nil {
		span.Status = SpanStatusError
		span.Error = err.Error()
	}
}
