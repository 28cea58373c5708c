package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// KeyPrefix namespaces every key written by RedisStorage.
const KeyPrefix = "reviewgoat:result:"

// RedisStorage caches the latest result per company, source and window.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStorage connects and pings the server. A zero ttl keeps keys forever.
func NewRedisStorage(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	if addr == "" {
		return nil, &types.ConfigurationError{Field: "storage.redis_addr", Message: "required for redis storage"}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &types.StorageError{Backend: "redis", Err: fmt.Errorf("ping: %w", err)}
	}
	return &RedisStorage{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "redis_storage"),
	}, nil
}

func (s *RedisStorage) Name() string { return "redis" }

// Key returns the cache key for a result.
func Key(res *types.ScrapeResult) string {
	return fmt.Sprintf("%s%s:%s:%s_%s", KeyPrefix, res.Source, SafeName(res.Company), res.StartDate, res.EndDate)
}

// Store writes the JSON document under Key(res), replacing any earlier run.
func (s *RedisStorage) Store(ctx context.Context, res *types.ScrapeResult) (string, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return "", &types.StorageError{Backend: "redis", Err: err}
	}
	key := Key(res)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return "", &types.StorageError{Backend: "redis", Err: fmt.Errorf("set %s: %w", key, err)}
	}
	s.logger.Debug("result cached in redis", "key", key, "ttl", s.ttl)
	return "redis://" + key, nil
}

// Load returns the cached result for key, or nil when it is absent.
func (s *RedisStorage) Load(ctx context.Context, key string) (*types.ScrapeResult, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "redis", Err: err}
	}
	var res types.ScrapeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, &types.StorageError{Backend: "redis", Err: err}
	}
	return &res, nil
}

func (s *RedisStorage) Close() error { return s.client.Close() }
