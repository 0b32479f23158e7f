package cache

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/aqureshiest/parse-pdf/internal/gcp"
	"github.com/aqureshiest/parse-pdf/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const DefaultCollection = "parsed_documents"

// FirestoreStore keeps one document per key; the document ID is the key.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(ctx context.Context, projectID, databaseID, collection string) (*FirestoreStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := gcp.NewFirestoreClient(ctx, projectID, databaseID)
	if err != nil {
		return nil, err
	}
	return &FirestoreStore{client: client, collection: collection}, nil
}

func (s *FirestoreStore) Get(ctx context.Context, key string) (*models.ParsedDocument, bool, error) {
	snap, err := s.client.Collection(s.collection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache document: %w", err)
	}

	var doc models.ParsedDocument
	if err := snap.DataTo(&doc); err != nil {
		slog.Warn("Discarding unreadable cache document.", "collection", s.collection, "documentId", key, "error", err)
		return nil, false, nil
	}
	if err := checkRecord(key, &doc); err != nil {
		slog.Warn("Discarding corrupt cache document.", "collection", s.collection, "documentId", key, "error", err)
		return nil, false, nil
	}
	return &doc, true, nil
}

func (s *FirestoreStore) Put(ctx context.Context, key string, doc *models.ParsedDocument) error {
	if _, err := s.client.Collection(s.collection).Doc(key).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to write cache document: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
