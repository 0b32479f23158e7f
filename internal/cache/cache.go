// Package cache persists composed documents keyed by the content fingerprint of the source PDF.
//
// Every backend follows the same contract: a missing key is a miss, not an error, and a record
// that cannot be decoded is reported as a miss as well so that a damaged entry is rebuilt instead
// of served.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aqureshiest/parse-pdf/internal/models"
)

// Store is a key-value store for parsed documents.
type Store interface {
	// Get returns (nil, false, nil) when key is absent.
	Get(ctx context.Context, key string) (*models.ParsedDocument, bool, error)
	// Put creates any storage location it needs on first use.
	Put(ctx context.Context, key string, doc *models.ParsedDocument) error
	Close() error
}

// Fingerprint returns the lower-case hex SHA-256 of the raw document bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key combines a fingerprint with the extraction policy version.
// An empty version yields the bare fingerprint.
func Key(fingerprint, policyVersion string) string {
	policyVersion = strings.TrimSpace(policyVersion)
	if policyVersion == "" {
		return fingerprint
	}
	return fingerprint + "-" + policyVersion
}

// checkRecord rejects a decoded record that does not belong to key. JSON such as null or {}
// decodes without error but carries no fingerprint.
func checkRecord(key string, doc *models.ParsedDocument) error {
	if doc == nil || doc.Fingerprint == "" {
		return fmt.Errorf("record has no fingerprint")
	}
	if key != doc.Fingerprint && !strings.HasPrefix(key, doc.Fingerprint+"-") {
		return fmt.Errorf("record fingerprint %s does not match key %s", doc.Fingerprint, key)
	}
	return nil
}

const (
	BackendFile      = "file"
	BackendMemory    = "memory"
	BackendGCS       = "gcs"
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	// file
	Dir string

	// gcs
	Bucket string
	Prefix string

	// firestore
	ProjectID  string
	DatabaseID string
	Collection string

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFile:
		return NewFileStore(cfg.Dir), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendGCS:
		return NewGCSStore(ctx, cfg.Bucket, cfg.Prefix)
	case BackendFirestore:
		return NewFirestoreStore(ctx, cfg.ProjectID, cfg.DatabaseID, cfg.Collection)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
