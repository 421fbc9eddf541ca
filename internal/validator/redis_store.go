package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/srthknk/biomuseum/internal/errors"
)

// RedisStore keeps outcomes as JSON strings with a Redis TTL.
type RedisStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewRedisStore creates a store using client. Keys are prefixed with prefix.
func NewRedisStore(client goredis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (Outcome, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Outcome{}, false, nil
	}
	if err != nil {
		return Outcome{}, false, s.storeError(err, "get")
	}

	var out Outcome
	if err := json.Unmarshal(data, &out); err != nil {
		return Outcome{}, false, s.storeError(fmt.Errorf("decode cached outcome: %w", err), "get")
	}
	return out, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, out Outcome, ttl time.Duration) error {
	data, err := json.Marshal(out)
	if err != nil {
		return s.storeError(err, "set")
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return s.storeError(err, "set")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) storeError(err error, operation string) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryImageCache).
		Context("store", "redis").
		Context("operation", operation).
		Build()
}
