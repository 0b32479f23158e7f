package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/aqureshiest/parse-pdf/internal/gcp"
	"github.com/aqureshiest/parse-pdf/internal/models"
)

const DefaultPrefix = "parsed/"

// GCSStore keeps one JSON object per key in a bucket. Writes are conditional on the
// object not existing, so the first writer for a key wins.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("CACHE_BUCKET must be set for the gcs cache backend")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSStore) objectName(key string) string {
	return s.prefix + key + ".json"
}

func (s *GCSStore) Get(ctx context.Context, key string) (*models.ParsedDocument, bool, error) {
	data, err := gcp.ReadGCSObject(ctx, s.client, s.bucket, s.objectName(key))
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var doc *models.ParsedDocument
	err = json.Unmarshal(data, &doc)
	if err == nil {
		err = checkRecord(key, doc)
	}
	if err != nil {
		s.discard(ctx, key, err)
		return nil, false, nil
	}
	return doc, true, nil
}

// discard removes a corrupt object so the conditional write on the next Put can replace it.
func (s *GCSStore) discard(ctx context.Context, key string, cause error) {
	logCtx := slog.With("gcsBucket", s.bucket, "gcsObject", s.objectName(key))
	logCtx.Warn("Discarding corrupt cache object.", "error", cause)
	err := s.client.Bucket(s.bucket).Object(s.objectName(key)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		logCtx.Error("Failed to delete corrupt cache object.", "error", err)
	}
}

func (s *GCSStore) Put(ctx context.Context, key string, doc *models.ParsedDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal cache record: %w", err)
	}
	return gcp.SaveToGCSAtomically(ctx, s.client.Bucket(s.bucket), s.objectName(key), data)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
