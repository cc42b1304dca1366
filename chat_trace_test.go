package advisor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/advisor/trace"
	"github.com/m-mizutani/gt"
)

func TestAskTrace(t *testing.T) {
	rec := trace.New()
	chat, err := advisor.NewChat(echoClient(),
		advisor.WithSystemPrompt("You are a career advisor."),
		advisor.WithTrace(rec),
	)
	gt.NoError(t, err)

	ctx := context.Background()
	_, err = chat.Ask(ctx, "first question")
	gt.NoError(t, err)
	_, err = chat.Ask(ctx, "second question")
	gt.NoError(t, err)

	tr := rec.Trace()
	gt.NotNil(t, tr)
	gt.Equal(t, tr.Metadata.SessionID, chat.ID())
	gt.Equal(t, tr.Metadata.Model, "mock-model")

	root := tr.RootSpan
	gt.Equal(t, root.Kind, trace.SpanKindTurn)
	gt.Equal(t, root.Status, trace.SpanStatusOK)
	gt.A(t, root.Children).Length(2)

	window := root.Children[0]
	gt.Equal(t, window.Kind, trace.SpanKindEvent)
	gt.Equal(t, window.Name, "context_window")

	call := root.Children[1]
	gt.Equal(t, call.Kind, trace.SpanKindLLMCall)
	gt.Equal(t, call.LLMCall.Request.SystemPrompt, "You are a career advisor.")
	gt.Equal(t, call.LLMCall.Request.Input, "second question")
	gt.A(t, call.LLMCall.Request.History).Length(2)
	gt.Equal(t, call.LLMCall.Request.History[0].Role, "user")
	gt.Equal(t, call.LLMCall.Request.History[1].Role, "assistant")
	gt.Equal(t, call.LLMCall.Response.Text, "Advice about: second question")
	gt.Equal(t, call.LLMCall.InputTokens, 100)
}

func TestAskTraceFallback(t *testing.T) {
	rec := trace.New()
	client := newMockClient(func(ctx context.Context, p *advisor.Prompt) (*advisor.Response, error) {
		// The model client sees the turn's handler in its context.
		gt.NotNil(t, trace.HandlerFrom(ctx))
		return nil, errors.New("service unavailable")
	})
	chat, err := advisor.NewChat(client, advisor.WithTrace(rec))
	gt.NoError(t, err)

	reply, err := chat.Ask(context.Background(), "hello")
	gt.NoError(t, err)
	gt.True(t, reply.Fallback)

	root := rec.Trace().RootSpan
	gt.Equal(t, root.Status, trace.SpanStatusError)
	gt.A(t, root.Children).Length(3)
	gt.Equal(t, root.Children[1].Status, trace.SpanStatusError)
	gt.Equal(t, root.Children[1].Error, "service unavailable")
	gt.Equal(t, root.Children[2].Name, "fallback")
}

func TestAskTraceSaved(t *testing.T) {
	dir := t.TempDir()
	rec := trace.New(trace.WithRepository(trace.NewFileRepository(dir)))
	chat, err := advisor.NewChat(echoClient(), advisor.WithTrace(rec))
	gt.NoError(t, err)

	_, err = chat.Ask(context.Background(), "hello")
	gt.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, chat.ID(), rec.Trace().TraceID+".json"))
	gt.NoError(t, err)
}
