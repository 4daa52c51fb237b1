// Package repositorycache provides the cached repository decorator.
//
// # Overview
//
// This package implements the repository decorator pattern to add read-through
// caching to a repository.Repository[T]. The cached repository wraps a base
// repository, serves read operations from the cache and delegates write
// operations to the base, invalidating the entries the write stales.
//
// # Key Features
//
//   - **Type-safe caching**: Uses Go generics to maintain type safety across cached operations
//   - **Tiered expiry**: Entity, list and count results expire on separate TTLs
//   - **Write-through invalidation**: Writes drop the exact entries they stale
//   - **Transaction awareness**: Reads inside a transaction scope bypass the cache
//   - **Pluggable key strategy**: Configurable key serialization via cache.KeySerializer
//
// # Basic Usage
//
// Create a cached repository by wrapping an existing repository:
//
//	base := repository.New[*Card](bunstore.New[*Card](db))
//	service, err := cache.NewCacheService(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	cached := repositorycache.New[*Card](base, service, cache.NewDefaultKeySerializer())
//
//	// Use exactly like the base repository
//	card, err := cached.GetByID(ctx, "card-123")
//	cards, total, err := cached.List(ctx, store.WithConditions(store.Eq("status", "active")))
//
// # Cached vs Pass-through Operations
//
// Read operations are cached, each under the TTL class matching how fast its
// result goes stale:
//   - GetByID uses cache.ClassEntity
//   - Get, Find and List use cache.ClassList
//   - Count uses cache.ClassCount
//
// Write operations (Create, Update, Delete, ForceDelete) pass through to the
// base repository. Reads inside a transaction scope also pass through, so
// they observe the transaction's own uncommitted writes.
//
// # Key Structure
//
// Every key starts with the repository namespace. GetByID entries keep the
// record ID in clear text; query entries carry an xxhash digest of the
// resolved query options:
//
//	cards::GetByID::card-001
//	cards::List::1d46cf42a9a64f29
//	cards::Count::9c5ba1a07f3e2d11
//
// The namespace and operation segments stay in clear text so invalidation
// can sweep by prefix without tracking individual keys.
//
// # Invalidation
//
// After a successful write the decorator drops what the write staled:
//
//   - Create sweeps the namespace's Get, Find, List and Count entries. The
//     new record may match any cached filter, but no entity entry can name
//     an ID that did not exist yet.
//   - Update, Delete and ForceDelete drop the record's GetByID entry and
//     sweep the namespace's query entries.
//
// Failed invalidations never fail the write: the write already landed, so
// the decorator logs a warning and leaves the stale entry to its TTL.
//
// # Transaction Handling
//
// Reads on a context inside a transaction scope (store.InTx) go straight to
// the base repository. This prevents:
//   - Reading stale cached data within transactions
//   - Cache pollution from uncommitted transaction data
//
// Writes inside a transaction invalidate as they land, before the commit. A
// read between invalidation and commit can refill an entry with pre-commit
// state; the window closes at the entry's TTL. Callers that cannot tolerate
// it should read through the transaction context.
//
// # Error Handling
//
// Errors from the base repository are propagated unchanged, so errors.Is and
// errors.As see the repository package's typed errors through the decorator.
// Cache backend failures on the read path degrade to fetching from the base.
//
// # See Also
//
// For cache configuration and key serialization details, see the cache
// package. For container wiring, see the pkg/di package.
package repositorycache
