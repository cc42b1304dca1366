package trace_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/advisor/trace"
	"github.com/m-mizutani/gt"
)

func TestFileRepository(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traces")
	repo := trace.NewFileRepository(dir)
	rec := trace.New(trace.WithRepository(repo))

	ctx := rec.StartTurn(context.Background(), "session-1")
	llmCtx := rec.StartLLMCall(ctx)
	rec.EndLLMCall(llmCtx, &trace.LLMCallData{Model: "m", InputTokens: 5}, nil)
	rec.EndTurn(ctx, nil)
	gt.NoError(t, rec.Finish(ctx))

	traceID := rec.Trace().TraceID
	gt.Equal(t, repo.Path(rec.Trace()), filepath.Join(dir, "session-1", traceID+".json"))
	data, err := os.ReadFile(filepath.Join(dir, "session-1", traceID+".json"))
	gt.NoError(t, err)

	var loaded trace.Trace
	gt.NoError(t, json.Unmarshal(data, &loaded))
	gt.Equal(t, loaded.TraceID, traceID)
	gt.Equal(t, loaded.Metadata.SessionID, "session-1")
	gt.A(t, loaded.RootSpan.Children).Length(1)
	gt.Equal(t, loaded.RootSpan.Children[0].LLMCall.InputTokens, 5)
}

func TestFileRepositoryGroupsTurnsBySession(t *testing.T) {
	dir := t.TempDir()
	repo := trace.NewFileRepository(dir)
	rec := trace.New(trace.WithRepository(repo))

	for _, sessionID := range []string{"session-a", "session-a", "session-b"} {
		ctx := rec.StartTurn(context.Background(), sessionID)
		rec.EndTurn(ctx, nil)
		gt.NoError(t, rec.Finish(ctx))
	}

	a, err := os.ReadDir(filepath.Join(dir, "session-a"))
	gt.NoError(t, err)
	gt.A(t, a).Length(2)
	b, err := os.ReadDir(filepath.Join(dir, "session-b"))
	gt.NoError(t, err)
	gt.A(t, b).Length(1)
}

func TestFileRepositoryUnusableSessionID(t *testing.T) {
	dir := t.TempDir()
	repo := trace.NewFileRepository(dir)

	for _, sessionID := range []string{"", "..", "a/b"} {
		tr := &trace.Trace{TraceID: "t1", Metadata: trace.TraceMetadata{SessionID: sessionID}}
		gt.Equal(t, repo.Path(tr), filepath.Join(dir, "t1.json"))
	}

	gt.NoError(t, repo.Save(context.Background(), &trace.Trace{TraceID: "t1", Metadata: trace.TraceMetadata{SessionID: "../escape"}}))
	_, err := os.Stat(filepath.Join(dir, "t1.json"))
	gt.NoError(t, err)

	gt.Error(t, repo.Save(context.Background(), &trace.Trace{}))
}

type failingRepository struct{}

func (failingRepository) Save(context.Context, *trace.Trace) error {
	return os.ErrPermission
}

func TestRecorderFinishError(t *testing.T) {
	rec := trace.New(trace.WithRepository(failingRepository{}))
	ctx := rec.StartTurn(context.Background(), "s")
	rec.EndTurn(ctx, nil)
	gt.Error(t, rec.Finish(ctx))
}
