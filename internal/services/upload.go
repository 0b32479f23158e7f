package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aqureshiest/parse-pdf/internal/gcp"
	"github.com/aqureshiest/parse-pdf/internal/models"
)

// objectReader fetches a GCS object. It is a field so tests can avoid real GCS.
type objectReader func(ctx context.Context, bucket, object string) ([]byte, error)

// UploadFunction parses PDFs as they land in a bucket so the cache is warm before
// anyone asks for them.
type UploadFunction struct {
	parser     *ParserFunction
	readObject objectReader
	closer     func() error
}

// NewUploadHandler creates the storage client used to download uploaded objects.
func NewUploadHandler(ctx context.Context, parser *ParserFunction) (*UploadFunction, error) {
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &UploadFunction{
		parser: parser,
		readObject: func(ctx context.Context, bucket, object string) ([]byte, error) {
			return gcp.ReadGCSObject(ctx, storageClient, bucket, object)
		},
		closer: storageClient.Close,
	}, nil
}

// Process handles one GCS finalize event. Non-PDF objects are ignored.
func (f *UploadFunction) Process(ctx context.Context, e models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	if !strings.EqualFold(path.Ext(e.Name), ".pdf") {
		logCtx.Info("Ignoring non-PDF object.")
		return nil
	}

	data, err := f.readObject(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download uploaded PDF", "error", err)
		return err
	}

	result, err := f.parser.Process(ctx, &ParseRequest{Data: data, Filename: e.Name})
	if err != nil {
		logCtx.Error("Failed to parse uploaded PDF", "error", err)
		return err
	}

	logCtx.Info("Uploaded PDF parsed.", "fingerprint", result.Fingerprint, "cacheHit", result.CacheHit, "pageCount", result.PageCount)
	return nil
}

func (f *UploadFunction) Close() error {
	if f.closer != nil {
		return f.closer()
	}
	return nil
}
