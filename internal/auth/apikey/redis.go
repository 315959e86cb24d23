package apikey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sendrelay/smsgw/internal/observability"
)

// DefaultKeyPrefix is the default Redis key namespace for API key records.
const DefaultKeyPrefix = "smsgw:apikey:"

// RedisStore is a Redis-backed implementation of the Store interface.
// The key-management service writes records; the gateway only reads them,
// so key rotation takes effect without a restart.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    observability.Logger
}

// RedisStoreOption is a functional option for the Redis store.
type RedisStoreOption func(*RedisStore)

// WithRedisKeyPrefix sets the Redis key namespace.
func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.keyPrefix = prefix
	}
}

// WithRedisLogger sets the logger.
func WithRedisLogger(logger observability.Logger) RedisStoreOption {
	return func(s *RedisStore) {
		s.logger = logger
	}
}

// NewRedisStore creates a new Redis-backed API key store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: DefaultKeyPrefix,
		logger:    observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// redisKey builds the Redis key for an API key ID.
func (s *RedisStore) redisKey(id string) string {
	return s.keyPrefix + id
}

// Get retrieves an API key by its public ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*APIKey, error) {
	data, err := s.client.Get(ctx, s.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var key APIKey
	if err := json.Unmarshal(data, &key); err != nil {
		s.logger.Warn("corrupt API key record",
			observability.String("key_id", id),
			observability.Error(err),
		)
		return nil, ErrKeyNotFound
	}

	return &key, nil
}

// List returns all API keys under the store's prefix.
func (s *RedisStore) List(ctx context.Context) ([]*APIKey, error) {
	var keys []*APIKey

	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("redis get: %w", err)
		}

		var key APIKey
		if err := json.Unmarshal(data, &key); err != nil {
			continue
		}
		keys = append(keys, &key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}

	return keys, nil
}

// Put stores an API key record. Used by tests and provisioning tools.
func (s *RedisStore) Put(ctx context.Context, key *APIKey) error {
	data, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("marshal API key: %w", err)
	}

	if err := s.client.Set(ctx, s.redisKey(key.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
