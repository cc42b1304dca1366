package trace

import (
	"context"
	"errors"
)

// multiHandler fans out trace events to multiple Handler implementations.
// Each handler receives its own isolated context.
type multiHandler struct {
	handlers []Handler
}

// Multi creates a Handler that forwards all events to the given handlers.
// Nil handlers are skipped. With a single handler, that handler is returned as is.
func Multi(handlers ...Handler) Handler {
	var hs []Handler
	for _, h := range handlers {
		if h != nil {
			hs = append(hs, h)
		}
	}
	switch len(hs) {
	case 0:
		return nil
	case 1:
		return hs[0]
	}
	return &multiHandler{handlers: hs}
}

type multiCtxKey struct{}

// getContexts retrieves per-handler contexts. If not found, returns the base context for each handler.
func (m *multiHandler) getContexts(ctx context.Context) []context.Context {
	if v, ok := ctx.Value(multiCtxKey{}).([]context.Context); ok {
		return v
	}
	ctxs := make([]context.Context, len(m.handlers))
	for i := range ctxs {
		ctxs[i] = ctx
	}
	return ctxs
}

func (m *multiHandler) wrapContexts(base context.Context, handlerCtxs []context.Context) context.Context {
	return context.WithValue(base, multiCtxKey{}, handlerCtxs)
}

func (m *multiHandler) StartTurn(ctx context.Context, sessionID string) context.Context {
	handlerCtxs := make([]context.Context, len(m.handlers))
	for i, h := range m.handlers {
		handlerCtxs[i] = h.StartTurn(ctx, sessionID)
	}
	return m.wrapContexts(ctx, handlerCtxs)
}

func (m *multiHandler) EndTurn(ctx context.Context, err error) {
	ctxs := m.getContexts(ctx)
	for i, h := range m.handlers {
		h.EndTurn(ctxs[i], err)
	}
}

func (m *multiHandler) StartLLMCall(ctx context.Context) context.Context {
	parentCtxs := m.getContexts(ctx)
	handlerCtxs := make([]context.Context, len(m.handlers))
	for i, h := range m.handlers {
		handlerCtxs[i] = h.StartLLMCall(parentCtxs[i])
	}
	return m.wrapContexts(ctx, handlerCtxs)
}

func (m *multiHandler) EndLLMCall(ctx context.Context, data *LLMCallData, err error) {
	ctxs := m.getContexts(ctx)
	for i, h := range m.handlers {
		h.EndLLMCall(ctxs[i], data, err)
	}
}

func (m *multiHandler) AddEvent(ctx context.Context, kind string, data any) {
	ctxs := m.getContexts(ctx)
	for i, h := range m.handlers {
		h.AddEvent(ctxs[i], kind, data)
	}
}

func (m *multiHandler) Finish(ctx context.Context) error {
	var errs []error
	for _, h := range m.handlers {
		if err := h.Finish(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
