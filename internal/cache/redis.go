package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/aqureshiest/parse-pdf/internal/models"
)

const redisKeyPrefix = "pdfparse:"

// RedisStore keeps one string value per key with no expiry.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*models.ParsedDocument, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key: %w", err)
	}

	var doc *models.ParsedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		slog.Warn("Discarding unreadable cache value.", "key", redisKeyPrefix+key, "error", err)
		return nil, false, nil
	}
	if err := checkRecord(key, doc); err != nil {
		slog.Warn("Discarding corrupt cache value.", "key", redisKeyPrefix+key, "error", err)
		return nil, false, nil
	}
	return doc, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, doc *models.ParsedDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal cache record: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cache key: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
