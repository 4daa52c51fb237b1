package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// TTLClass selects which expiry tier a cache entry belongs to. Entity
// lookups tolerate longer staleness than list pages, and counts go stale
// the moment any row changes, so each tier carries its own TTL.
type TTLClass int

const (
	// ClassEntity is for single-record lookups keyed by identity.
	ClassEntity TTLClass = iota

	// ClassList is for query results whose membership shifts as rows change.
	ClassList

	// ClassCount is for aggregate counts.
	ClassCount
)

// Config holds the configuration shared by the cache adapters.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int

	// EntityTTL is the time-to-live for single-record entries.
	// Must be greater than 0.
	EntityTTL time.Duration

	// ListTTL is the time-to-live for list and query results.
	// Must be greater than 0.
	ListTTL time.Duration

	// CountTTL is the time-to-live for aggregate counts.
	// Must be greater than 0.
	CountTTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int

	// EarlyRefresh configures early refresh behavior for cached entries.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage enables storage for missing record flags.
	// When enabled, the cache will remember keys that returned no results
	// to prevent repeated database queries for non-existent records.
	MissingRecordStorage bool

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig configures early refresh behavior.
// Early refresh prevents cache stampedes by refreshing entries
// before they expire when they're frequently accessed.
type EarlyRefreshConfig struct {
	// MinAsyncRefreshTime is the minimum time after which an async refresh can occur
	MinAsyncRefreshTime time.Duration

	// MaxAsyncRefreshTime is the maximum time after which an async refresh can occur
	MaxAsyncRefreshTime time.Duration

	// SyncRefreshTime is when a refresh becomes synchronous instead of async
	SyncRefreshTime time.Duration

	// RetryBaseDelay is the base delay for retry attempts when early refresh fails
	RetryBaseDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
// The TTL tiers assume entities change rarely relative to how often the
// queries over them shift.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		EntityTTL:          5 * time.Minute,
		ListTTL:            time.Minute,
		CountTTL:           30 * time.Second,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		MissingRecordStorage: true,
		EvictionInterval:     0, // Use default
	}
}

// TTLFor returns the time-to-live for the given class.
// Unknown classes fall back to the entity tier.
func (c Config) TTLFor(class TTLClass) time.Duration {
	switch class {
	case ClassList:
		return c.ListTTL
	case ClassCount:
		return c.CountTTL
	default:
		return c.EntityTTL
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// This method maps our configuration parameters to the sturdyc options.
// Note: Capacity, NumShards, the per-class TTL, and EvictionPercentage are
// passed directly to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
// Returns an error if any configuration parameter is invalid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if err := c.validateTTLs(); err != nil {
		return err
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EarlyRefresh != nil {
		if c.EarlyRefresh.MinAsyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.MinAsyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.MaxAsyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.MaxAsyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.SyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.SyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.RetryBaseDelay < 0 {
			return &ConfigError{Field: "EarlyRefresh.RetryBaseDelay", Message: "must be non-negative"}
		}
	}

	return nil
}

// validateTTLs checks the per-class expiry tiers. The redis adapter only
// needs the TTLs, so it validates these and skips the sturdyc fields.
func (c Config) validateTTLs() error {
	if c.EntityTTL <= 0 {
		return &ConfigError{Field: "EntityTTL", Message: "must be greater than 0"}
	}
	if c.ListTTL <= 0 {
		return &ConfigError{Field: "ListTTL", Message: "must be greater than 0"}
	}
	if c.CountTTL <= 0 {
		return &ConfigError{Field: "CountTTL", Message: "must be greater than 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
