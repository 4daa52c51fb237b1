package cache

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-repository-engine/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
// The three TTLs map to the tiers selected by TTLClass: EntityTTL backs
// ClassEntity, ListTTL backs ClassList, CountTTL backs ClassCount.
type Config struct {
	Capacity             int
	NumShards            int
	EntityTTL            time.Duration
	ListTTL              time.Duration
	CountTTL             time.Duration
	EvictionPercentage   int
	EarlyRefresh         *EarlyRefreshConfig
	MissingRecordStorage bool
	EvictionInterval     time.Duration
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// RedisConfig holds connection settings for the redis-backed cache service.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisClient is the narrow command surface the redis-backed service
// issues. *redis.Client satisfies it.
type RedisClient = cacheinfra.RedisClient

// DefaultConfig returns a Config populated with sensible defaults:
// entities cache for 5 minutes, lists for 1 minute, counts for 30 seconds.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the default in-process cache service using
// the provided configuration.
func NewCacheService(cfg Config) (CacheService, error) {
	return cacheinfra.NewSturdycService(cfg.toInternal())
}

// NewRedisCacheService constructs a cache service backed by a shared
// redis instance, for deployments where several processes must see the
// same cached state. Only the TTL tiers of cfg apply; redis manages its
// own memory, so the sturdyc sizing fields are ignored.
func NewRedisCacheService(cfg Config, rcfg RedisConfig) (CacheService, error) {
	return cacheinfra.NewRedisService(cfg.toInternal(), cacheinfra.RedisConfig{
		Addr:     rcfg.Addr,
		Password: rcfg.Password,
		DB:       rcfg.DB,
	})
}

// NewRedisCacheServiceWith is like NewRedisCacheService but reuses an
// existing client connection and logger. The client only needs the
// narrow command surface the adapter issues, which keeps it fakeable in
// tests.
func NewRedisCacheServiceWith(cfg Config, client RedisClient, logger *slog.Logger) (CacheService, error) {
	return cacheinfra.NewRedisServiceWith(cfg.toInternal(), client, logger)
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	return cacheinfra.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		EntityTTL:            c.EntityTTL,
		ListTTL:              c.ListTTL,
		CountTTL:             c.CountTTL,
		EvictionPercentage:   c.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	return Config{
		Capacity:             cfg.Capacity,
		NumShards:            cfg.NumShards,
		EntityTTL:            cfg.EntityTTL,
		ListTTL:              cfg.ListTTL,
		CountTTL:             cfg.CountTTL,
		EvictionPercentage:   cfg.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: cfg.MissingRecordStorage,
		EvictionInterval:     cfg.EvictionInterval,
	}
}
