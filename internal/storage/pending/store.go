// Package pending keeps generated batches in Redis until they are reviewed.
package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"story-workers/internal/common/logger"
	"story-workers/internal/models"
	"story-workers/internal/storage"
)

const keyPrefix = "storygen:pending"

// Store is a Redis-backed storage.PendingStore. Entries expire after ttl.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewStore(client *redis.Client, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"store": "pending"}),
	}
}

// Key returns the Redis key for a project, module and kind.
func Key(project, module string, kind models.BatchKind) string {
	return fmt.Sprintf("%s:%s:%s:%s",
		keyPrefix,
		strings.TrimSpace(project),
		kind,
		strings.ToLower(storage.FileSafe(module)),
	)
}

// Save replaces any pending batch with the same key.
func (s *Store) Save(ctx context.Context, batch *models.PendingBatch) error {
	if batch == nil {
		return fmt.Errorf("nil batch")
	}
	if !batch.Kind.Valid() {
		return fmt.Errorf("unknown batch kind %q", batch.Kind)
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode pending batch: %w", err)
	}

	key := Key(batch.Project, batch.Module, batch.Kind)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save pending batch %s: %w", key, err)
	}

	s.logger.Debug("pending batch saved", map[string]interface{}{
		"key":     key,
		"batchId": batch.ID,
		"records": batch.Len(),
	})
	return nil
}

// Load returns storage.ErrNotFound when no batch is pending.
func (s *Store) Load(ctx context.Context, project, module string, kind models.BatchKind) (*models.PendingBatch, error) {
	key := Key(project, module, kind)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pending batch %s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load pending batch %s: %w", key, err)
	}

	var batch models.PendingBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("decode pending batch %s: %w", key, err)
	}
	return &batch, nil
}

func (s *Store) Delete(ctx context.Context, project, module string, kind models.BatchKind) error {
	key := Key(project, module, kind)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete pending batch %s: %w", key, err)
	}
	return nil
}
