package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aqureshiest/parse-pdf/internal/models"
)

const DefaultDir = ".cache"

// FileStore keeps one JSON file per key under a directory.
type FileStore struct {
	dir string
}

// NewFileStore does not touch the filesystem; the directory is created on the first Put.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultDir
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Get(_ context.Context, key string) (*models.ParsedDocument, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var doc *models.ParsedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("Discarding unreadable cache record.", "path", s.path(key), "error", err)
		return nil, false, nil
	}
	if err := checkRecord(key, doc); err != nil {
		slog.Warn("Discarding corrupt cache record.", "path", s.path(key), "error", err)
		return nil, false, nil
	}
	return doc, true, nil
}

// Put writes through a temp file and rename so readers never see a partial record.
func (s *FileStore) Put(_ context.Context, key string, doc *models.ParsedDocument) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir %s: %w", s.dir, err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal cache record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
