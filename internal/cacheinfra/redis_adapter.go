package cacheinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable reports that the cache backend could not be reached.
// Read paths never surface it: a failed lookup falls through to the fetch
// function so callers are served from the source of truth.
var ErrUnavailable = errors.New("cache backend unavailable")

// redisScanBatch is the COUNT hint passed to SCAN during prefix sweeps.
const redisScanBatch = 128

// RedisClient is the subset of redis commands the adapter issues.
// *redis.Client satisfies it; tests substitute an in-memory fake.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisConfig holds connection settings for the redis-backed cache.
type RedisConfig struct {
	// Addr is the host:port of the redis server.
	Addr string

	// Password authenticates the connection. Empty means no auth.
	Password string

	// DB selects the redis logical database.
	DB int
}

// Validate checks the connection settings.
func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return &ConfigError{Field: "Addr", Message: "cannot be empty"}
	}
	return nil
}

// redisService caches entries in redis as JSON payloads. Payloads are
// decoded back into the fetch function's return type, so the same read
// path works against the in-process and the shared backend alike.
//
// Backend failures on the read path are logged and the loader result is
// served directly. A degraded cache must not take reads down with it.
type redisService struct {
	cfg    Config
	client RedisClient
	logger *slog.Logger
}

// NewRedisService connects to redis and returns a cache service backed
// by it. Only the TTL tiers of cfg apply; the sturdyc sizing fields are
// ignored because redis manages its own memory.
func NewRedisService(cfg Config, rcfg RedisConfig) (*redisService, error) {
	if err := rcfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rcfg.Addr,
		Password: rcfg.Password,
		DB:       rcfg.DB,
	})

	return NewRedisServiceWith(cfg, client, slog.Default())
}

// NewRedisServiceWith builds the service around an existing client.
func NewRedisServiceWith(cfg Config, client RedisClient, logger *slog.Logger) (*redisService, error) {
	if client == nil {
		return nil, &ConfigError{Field: "client", Message: "cannot be nil"}
	}
	if err := cfg.validateTTLs(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &redisService{cfg: cfg, client: client, logger: logger}, nil
}

// GetOrFetch attempts to retrieve a value from redis using the provided
// key. On a miss, on an unreachable backend, or on a payload that no
// longer decodes into the caller's type, it executes the fetchFn, stores
// the fresh value with the class's TTL, and returns it.
//
// Loader errors pass through to the caller unwrapped.
func (s *redisService) GetOrFetch(ctx context.Context, key string, class TTLClass, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	payload, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		value, decErr := decodePayload(payload, fetchResultType(fetchFn))
		if decErr == nil {
			return value, nil
		}
		s.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key, "error", decErr)
	case !errors.Is(err, redis.Nil):
		s.logger.WarnContext(ctx, "cache read failed, serving from source", "key", key, "error", err)
	}

	value, err := callFetchFn(ctx, fetchFn)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, class, value)
	return value, nil
}

// store writes a fetched value back to redis. Failures are logged, never
// returned: the caller already holds the value.
func (s *redisService) store(ctx context.Context, key string, class TTLClass, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.WarnContext(ctx, "cache entry not serializable", "key", key, "error", err)
		return
	}

	if err := s.client.Set(ctx, key, payload, s.cfg.TTLFor(class)).Err(); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

// Delete removes a single entry.
func (s *redisService) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete %q: %w: %w", key, ErrUnavailable, err)
	}
	return nil
}

// DeleteByPrefix removes all entries whose keys start with the given
// prefix. It walks the keyspace with SCAN so large sweeps do not block
// the server the way KEYS would.
func (s *redisService) DeleteByPrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", redisScanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan %q: %w: %w", prefix, ErrUnavailable, err)
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("sweep %q: %w: %w", prefix, ErrUnavailable, err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// InvalidateKeys removes multiple entries in a single DEL.
func (s *redisService) InvalidateKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate %d keys: %w: %w", len(keys), ErrUnavailable, err)
	}
	return nil
}

// decodePayload unmarshals a cached payload into a fresh value of the
// given type.
func decodePayload(payload []byte, typ reflect.Type) (any, error) {
	target := reflect.New(typ)
	if err := json.Unmarshal(payload, target.Interface()); err != nil {
		return nil, err
	}
	return target.Elem().Interface(), nil
}
