// Package cs stores conversation transcripts as JSON objects in a Google Cloud Storage bucket.
package cs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Repository implements advisor.ConversationRepository and advisor.TranscriptLister.
// Objects are named {prefix}{session_id}.json.
type Repository struct {
	bucket string
	prefix string
	store  objectStore
}

var (
	_ advisor.ConversationRepository = (*Repository)(nil)
	_ advisor.TranscriptLister       = (*Repository)(nil)
)

// New creates a Repository. opts are passed to storage.NewClient, e.g. option.WithCredentialsFile.
func New(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Repository, error) {
	if bucket == "" {
		return nil, goerr.Wrap(advisor.ErrInvalidConfig, "bucket is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}

	return newRepository(bucket, prefix, &gcsStore{client: client}), nil
}

func newRepository(bucket, prefix string, store objectStore) *Repository {
	return &Repository{
		bucket: bucket,
		prefix: prefix,
		store:  store,
	}
}

func (r *Repository) objectName(sessionID string) string {
	return r.prefix + sessionID + ".json"
}

// Save writes the transcript, overwriting any object with the same session ID.
func (r *Repository) Save(ctx context.Context, sessionID string, t *advisor.Transcript) error {
	if err := advisor.ValidateSessionID(sessionID); err != nil {
		return err
	}

	data, err := json.Marshal(t)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal transcript")
	}

	objectName := r.objectName(sessionID)
	if err := r.store.Write(ctx, r.bucket, objectName, data); err != nil {
		return goerr.Wrap(err, "failed to write transcript object",
			goerr.V("bucket", r.bucket),
			goerr.V("object", objectName),
		)
	}
	return nil
}

// Load reads the transcript. A missing object yields nil, nil.
func (r *Repository) Load(ctx context.Context, sessionID string) (*advisor.Transcript, error) {
	if err := advisor.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	objectName := r.objectName(sessionID)
	data, err := r.store.Read(ctx, r.bucket, objectName)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to read transcript object",
			goerr.V("bucket", r.bucket),
			goerr.V("object", objectName),
		)
	}

	var t advisor.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, goerr.Wrap(err, "failed to parse transcript object",
			goerr.V("bucket", r.bucket),
			goerr.V("object", objectName),
		)
	}
	return &t, nil
}

// List returns one page of transcripts directly under the prefix.
func (r *Repository) List(ctx context.Context, req advisor.ListRequest) (*advisor.ListResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = advisor.DefaultPageSize
	}

	attrs, nextToken, err := r.store.List(ctx, r.bucket, r.prefix, pageSize, req.PageToken)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list objects",
			goerr.V("bucket", r.bucket),
			goerr.V("prefix", r.prefix),
		)
	}

	resp := &advisor.ListResponse{NextPageToken: nextToken}
	for _, attr := range attrs {
		if !strings.HasSuffix(attr.Name, ".json") {
			continue
		}
		sessionID := strings.TrimSuffix(strings.TrimPrefix(attr.Name, r.prefix), ".json")
		// Skip directory-like entries
		if sessionID == "" || strings.Contains(sessionID, "/") {
			continue
		}

		resp.Transcripts = append(resp.Transcripts, advisor.TranscriptSummary{
			SessionID: sessionID,
			Size:      attr.Size,
			UpdatedAt: attr.Updated,
		})
	}

	return resp, nil
}

// objectStore is the subset of Cloud Storage the repository uses.
type objectStore interface {
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	Write(ctx context.Context, bucket, object string, data []byte) error
	List(ctx context.Context, bucket, prefix string, pageSize int, pageToken string) ([]*storage.ObjectAttrs, string, error)
}

type gcsStore struct {
	client *storage.Client
}

func (s *gcsStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	return io.ReadAll(reader)
}

func (s *gcsStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *gcsStore) List(ctx context.Context, bucket, prefix string, pageSize int, pageToken string) ([]*storage.ObjectAttrs, string, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	pager := iterator.NewPager(it, pageSize, pageToken)
	var attrs []*storage.ObjectAttrs
	nextToken, err := pager.NextPage(&attrs)
	if err != nil {
		return nil, "", err
	}
	return attrs, nextToken, nil
}
