// Package cache provides the caching interfaces, key serialization, and
// backend facades used to put a read-through cache in front of repositories.
//
// # Overview
//
// The package exports two main interfaces and their default implementations:
//
//   - CacheService: A read-through cache with tiered TTLs and bulk invalidation
//   - KeySerializer: Builds stable cache keys from method names and arguments
//
// Two backends are provided. NewCacheService returns an in-process service
// built on sturdyc (sharded, stampede-protected). NewRedisCacheService
// returns a service backed by a shared redis instance for multi-process
// deployments; entries are stored as JSON and decoded back into the
// caller's type.
//
// # TTL tiers
//
// Every read declares a TTLClass, which selects how long the entry lives:
//
//   - ClassEntity: single-record lookups, EntityTTL (default 5m)
//   - ClassList: query results, ListTTL (default 1m)
//   - ClassCount: aggregate counts, CountTTL (default 30s)
//
// The tiers encode how quickly each shape of result goes stale: a record
// is immutable until someone writes it, a list shifts whenever any row
// matching the query changes, and a count changes on every insert.
//
// # Basic Usage
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("GetByID", "card-123")
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	card, err := cache.GetOrFetch(ctx, svc, key, cache.ClassEntity, func(ctx context.Context) (*Card, error) {
//		return repo.GetByID(ctx, "card-123")
//	})
//
// # Failure semantics
//
// A cache must never make reads less available than the store behind it.
// GetOrFetch therefore only returns two kinds of error: a malformed
// fetch function, or whatever the fetch function itself returned. When
// the backend is unreachable or holds a payload that no longer decodes,
// the service logs a warning and serves the loader result directly.
// Invalidation calls (Delete, DeleteByPrefix, InvalidateKeys) do report
// backend failures, wrapped in ErrUnavailable, so callers can log them;
// they are advisory and the entries expire by TTL regardless.
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection to handle various Go types:
//
//   - Basic types: Direct string representation
//   - Slices/arrays: Recursive serialization of elements
//   - Maps: Sorted key-value pairs for deterministic output
//   - Structs: Exported fields with name:value pairs
//   - Function pointers: %p formatting, stable only within one process
//   - Complex types: JSON fallback with error handling
//
// Keys built purely from data (IDs, filter conditions, limits) are stable
// across processes and safe to share through redis. Avoid putting
// function values into keys when the redis backend is in play; their
// addresses differ per process.
//
// # Custom Key Serializers
//
// You can implement your own KeySerializer for specialized key generation:
//
//	type CustomKeySerializer struct {
//		prefix string
//	}
//
//	func (s *CustomKeySerializer) SerializeKey(method string, args ...any) string {
//		// Custom logic here
//		return s.prefix + ":" + method + ":" + /* serialize args */
//	}
//
// This is useful when you need different key formats for different cache
// backends or application-specific namespacing.
//
// # See Also
//
// For the repository decorator that drives this package, see the
// repositorycache package. For the backend implementations, see
// internal/cacheinfra.
package cache
