package code

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const codeKeyPrefix = "docgate:vcode:"

// retentionGrace keeps expired records around past their logical expiry so the
// service can answer "expired" instead of "not found" before Redis garbage
// collects them.
const retentionGrace = time.Hour

// RedisStore is the production-recommended code store for distributed
// deployments: multiple instances share attempt counters and the
// one-active-code-per-document rule through a single key per document.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, docID string) (*Record, error) {
	raw, err := s.client.Get(ctx, codeKeyPrefix+docID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get code record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode code record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Put(ctx context.Context, record *Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode code record: %w", err)
	}
	ttl := time.Until(record.ExpiresAt) + retentionGrace
	if ttl <= 0 {
		ttl = retentionGrace
	}
	if err := s.client.Set(ctx, codeKeyPrefix+record.DocID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("put code record: %w", err)
	}
	return nil
}
