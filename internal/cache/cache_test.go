package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/aqureshiest/parse-pdf/internal/models"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint([]byte("%PDF-1.4 same bytes"))
	b := Fingerprint([]byte("%PDF-1.4 same bytes"))
	c := Fingerprint([]byte("%PDF-1.4 other bytes"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	// sha256("") is a well-known constant.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Fingerprint(nil))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "abc-v1", Key("abc", "v1"))
	assert.Equal(t, "abc", Key("abc", ""))
	assert.Equal(t, "abc", Key("abc", "   "))
}

func TestFileStore_MissThenHit(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", ".cache")
	store := NewFileStore(dir)

	doc, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, doc)

	want := &models.ParsedDocument{
		Fingerprint:   "abc",
		PolicyVersion: "v1",
		Content:       "--- Page 1 ---\n\nhello",
		CreatedAt:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Put(ctx, "abc-v1", want))

	_, err = os.Stat(filepath.Join(dir, "abc-v1.json"))
	require.NoError(t, err, "Put should create the cache directory and file")

	got, ok, err := store.Get(ctx, "abc-v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Content, got.Content)
	assert.Equal(t, want.Fingerprint, got.Fingerprint)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should be left behind")
}

func TestFileStore_CorruptRecordIsMiss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	store := NewFileStore(dir)
	doc, ok, err := store.Get(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, doc)
}

func TestFileStore_RecordWithoutMatchingFingerprintIsMiss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir)

	records := map[string]string{
		"null":     `null`,
		"empty":    `{}`,
		"noprint":  `{"content":"--- Page 1 ---\n\nstale"}`,
		"mismatch": `{"fingerprint":"other","content":"--- Page 1 ---\n\nstale"}`,
	}
	for name, body := range records {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "abc-v1.json"), []byte(body), 0o644))

			doc, ok, err := store.Get(ctx, "abc-v1")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, doc)
		})
	}

	// A fresh Put replaces the damaged record.
	require.NoError(t, store.Put(ctx, "abc-v1", &models.ParsedDocument{Fingerprint: "abc", PolicyVersion: "v1", Content: "fresh"}))
	doc, ok, err := store.Get(ctx, "abc-v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fresh", doc.Content)
}

func TestCheckRecord(t *testing.T) {
	assert.NoError(t, checkRecord("abc", &models.ParsedDocument{Fingerprint: "abc"}))
	assert.NoError(t, checkRecord("abc-v1", &models.ParsedDocument{Fingerprint: "abc"}))
	assert.Error(t, checkRecord("abc-v1", nil))
	assert.Error(t, checkRecord("abc-v1", &models.ParsedDocument{}))
	assert.Error(t, checkRecord("abc-v1", &models.ParsedDocument{Fingerprint: "abcd"}))
	assert.Error(t, checkRecord("abc", &models.ParsedDocument{Fingerprint: "ab"}))
}

// fakeBucket serves object reads over the XML path and deletes over the JSON API.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/cache-bucket/"):
		data, ok := b.objects[strings.TrimPrefix(r.URL.Path, "/cache-bucket/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/storage/v1/b/cache-bucket/o/"):
		name := strings.TrimPrefix(r.URL.Path, "/storage/v1/b/cache-bucket/o/")
		b.deleted = append(b.deleted, name)
		delete(b.objects, name)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unexpected request", http.StatusBadRequest)
	}
}

func newFakeGCSStore(t *testing.T, bucket *fakeBucket) *GCSStore {
	t.Helper()
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return &GCSStore{client: client, bucket: "cache-bucket", prefix: DefaultPrefix}
}

func TestGCSStore_CorruptObjectIsDeleted(t *testing.T) {
	ctx := context.Background()
	bucket := &fakeBucket{objects: map[string][]byte{
		"parsed/abc-v1.json": []byte(`{}`),
		"parsed/def-v1.json": []byte(`{"fingerprint":"def","policyVersion":"v1","content":"cached"}`),
	}}
	store := newFakeGCSStore(t, bucket)

	doc, ok, err := store.Get(ctx, "abc-v1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, doc)
	assert.Equal(t, []string{"parsed/abc-v1.json"}, bucket.deleted)

	doc, ok, err = store.Get(ctx, "def-v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cached", doc.Content)

	doc, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, doc)
	assert.Len(t, bucket.deleted, 1)
}

func TestFileStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())

	require.NoError(t, store.Put(ctx, "k", &models.ParsedDocument{Fingerprint: "k", Content: "first"}))
	require.NoError(t, store.Put(ctx, "k", &models.ParsedDocument{Fingerprint: "k", Content: "second"}))

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", got.Content)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "k", &models.ParsedDocument{Content: "doc"}))
	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "doc", got.Content)
	assert.Equal(t, 1, store.Len())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(ctx, Config{Backend: "Memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = Open(ctx, Config{Backend: "gcs"})
	assert.Error(t, err, "gcs requires a bucket")

	_, err = Open(ctx, Config{Backend: "floppy"})
	assert.Error(t, err)
}
