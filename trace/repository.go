package trace

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Repository is the interface for persisting turn traces.
type Repository interface {
	Save(ctx context.Context, trace *Trace) error
}

// FileRepository writes each turn trace as a JSON file, grouped by conversation.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a new FileRepository rooted at dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Path returns where Save writes the trace: {dir}/{session_id}/{trace_id}.json, or
// {dir}/{trace_id}.json when the trace has no usable session ID.
func (r *FileRepository) Path(trace *Trace) string {
	name := trace.TraceID + ".json"
	if sessionDir(trace.Metadata.SessionID) {
		return filepath.Join(r.dir, trace.Metadata.SessionID, name)
	}
	return filepath.Join(r.dir, name)
}

func sessionDir(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// Save writes the trace. Turns of the same conversation share one directory.
func (r *FileRepository) Save(_ context.Context, trace *Trace) error {
	if trace.TraceID == "" {
		return goerr.New("trace has no ID", goerr.V("session_id", trace.Metadata.SessionID))
	}

	filePath := r.Path(trace)
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return goerr.Wrap(err, "failed to create trace directory", goerr.V("dir", filepath.Dir(filePath)))
	}

	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal trace", goerr.V("trace_id", trace.TraceID))
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return goerr.Wrap(err, "failed to write trace file", goerr.V("path", filePath))
	}

	return nil
}
