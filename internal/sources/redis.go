package sources

import (
	"context"

	"github.com/redis/go-redis/v9"

	"bespoke/internal/services"
)

// RedisOptions configures a Redis-backed store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// ListKey names the Redis list holding the ordered source keys.
	ListKey string
}

// RedisStore reads sources from a Redis list and per-source hashes.
type RedisStore struct {
	client  *redis.Client
	listKey string
}

// NewRedisStore constructs a store. No connection is made until first use.
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisStore{client: client, listKey: opts.ListKey}
}

// ListKey reports the list key this store reads.
func (s *RedisStore) ListKey() string {
	return s.listKey
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.client.LRange(ctx, s.listKey, 0, -1).Result()
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "list sources", s.listKey, err)
	}
	return keys, nil
}

func (s *RedisStore) Fields(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "fetch fields", key, err)
	}
	if fields == nil {
		fields = map[string]string{}
	}
	return fields, nil
}

// Ping verifies the Redis server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return services.Wrap(services.ErrStore, "store", "ping", s.client.Options().Addr, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
