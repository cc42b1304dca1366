package advisor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// ConversationRepository is an interface for storing and loading exported conversations.
// Implementations can use any storage backend (filesystem, Cloud Storage, etc.).
type ConversationRepository interface {
	// Load retrieves a Transcript by session ID.
	// Returns nil Transcript and nil error if the session ID is not found.
	Load(ctx context.Context, sessionID string) (*Transcript, error)

	// Save persists a Transcript with the given session ID.
	// If a Transcript already exists for the session ID, it is overwritten.
	Save(ctx context.Context, sessionID string, t *Transcript) error
}

// TranscriptLister is implemented by repositories that can enumerate saved conversations.
type TranscriptLister interface {
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
}

// TranscriptSummary describes a saved conversation from storage metadata only.
type TranscriptSummary struct {
	SessionID string    `json:"session_id"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListRequest selects one page of saved conversations. PageSize <= 0 means DefaultPageSize.
type ListRequest struct {
	PageSize  int
	PageToken string
}

type ListResponse struct {
	Transcripts   []TranscriptSummary
	NextPageToken string
}

const (
	TranscriptVersion = 1

	DefaultPageSize = 20
)

// Transcript is the persisted form of one conversation.
type Transcript struct {
	Version      int             `json:"version"`
	SessionID    string          `json:"session_id"`
	SessionStart string          `json:"session_start"`
	Messages     []MessageRecord `json:"messages"`
}

// UnmarshalJSON implements json.Unmarshaler with version validation.
// Returns ErrTranscriptVersionMismatch if the serialized version does not match TranscriptVersion.
func (x *Transcript) UnmarshalJSON(data []byte) error {
	type transcriptAlias Transcript
	var t transcriptAlias
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}

	if t.Version != TranscriptVersion {
		return goerr.Wrap(ErrTranscriptVersionMismatch, "unsupported transcript version",
			goerr.Value("got", t.Version),
			goerr.Value("want", TranscriptVersion),
		)
	}

	*x = Transcript(t)
	return nil
}

// FileRepository persists transcripts as JSON files.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a new FileRepository that writes to the given directory.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

func (r *FileRepository) path(sessionID string) (string, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return "", err
	}
	return filepath.Join(r.dir, sessionID+".json"), nil
}

// ValidateSessionID rejects IDs that cannot be used as a single file or object name.
func ValidateSessionID(sessionID string) error {
	if sessionID == "" || sessionID == "." || sessionID == ".." || strings.ContainsAny(sessionID, `/\`) {
		return goerr.Wrap(ErrInvalidSessionID, "session ID is not a plain name", goerr.V("session_id", sessionID))
	}
	return nil
}

// Save writes the transcript as JSON to {dir}/{session_id}.json.
func (r *FileRepository) Save(_ context.Context, sessionID string, t *Transcript) error {
	if err := os.MkdirAll(r.dir, 0750); err != nil {
		return goerr.Wrap(err, "failed to create transcript directory", goerr.V("dir", r.dir))
	}

	filePath, err := r.path(sessionID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal transcript")
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return goerr.Wrap(err, "failed to write transcript file", goerr.V("path", filePath))
	}

	return nil
}

// Load reads {dir}/{session_id}.json.
func (r *FileRepository) Load(_ context.Context, sessionID string) (*Transcript, error) {
	filePath, err := r.path(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to read transcript file", goerr.V("path", filePath))
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal transcript", goerr.V("path", filePath))
	}
	return &t, nil
}

// List returns saved transcripts ordered by session ID. Session IDs are UUIDv7, so the order
// is also creation order.
func (r *FileRepository) List(_ context.Context, req ListRequest) (*ListResponse, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ListResponse{}, nil
		}
		return nil, goerr.Wrap(err, "failed to read transcript directory", goerr.V("dir", r.dir))
	}

	type fileEntry struct {
		name string
		info fs.FileInfo
	}
	var files []fileEntry
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileEntry{name: e.Name(), info: info})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].name < files[j].name
	})

	startIdx := 0
	if req.PageToken != "" {
		lastFile, err := decodePageToken(req.PageToken)
		if err != nil {
			return nil, err
		}
		startIdx = sort.Search(len(files), func(i int) bool {
			return files[i].name > lastFile
		})
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	endIdx := min(startIdx+pageSize, len(files))

	resp := &ListResponse{}
	for _, f := range files[startIdx:endIdx] {
		resp.Transcripts = append(resp.Transcripts, TranscriptSummary{
			SessionID: strings.TrimSuffix(f.name, ".json"),
			Size:      f.info.Size(),
			UpdatedAt: f.info.ModTime(),
		})
	}

	if endIdx < len(files) {
		resp.NextPageToken = encodePageToken(files[endIdx-1].name)
	}

	return resp, nil
}

func encodePageToken(fileName string) string {
	return base64.URLEncoding.EncodeToString([]byte(fileName))
}

func decodePageToken(token string) (string, error) {
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", goerr.Wrap(err, "invalid page token", goerr.V("token", token))
	}
	return string(b), nil
}
