package repositorycache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"

	"github.com/goliatone/go-repository-engine/cache"
	"github.com/goliatone/go-repository-engine/repository"
	"github.com/goliatone/go-repository-engine/store"
)

// Interface assertion to ensure CachedRepository implements Repository[T]
var _ repository.Repository[store.Record] = (*CachedRepository[store.Record])(nil)

// listResult wraps the tuple result from List operations for caching
type listResult[T store.Record] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

// CachedRepository decorates a base repository with read-through caching.
// Reads are served from the cache and fall back to the base repository on a
// miss; writes pass through and invalidate the entries they stale. Inside a
// transaction scope every read bypasses the cache so it sees uncommitted
// writes.
type CachedRepository[T store.Record] struct {
	base          repository.Repository[T]
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	namespace     string
	logger        *slog.Logger
}

type settings struct {
	logger *slog.Logger
}

// Option configures a CachedRepository.
type Option func(*settings)

// WithLogger sets the logger for invalidation warnings. Defaults to
// slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a CachedRepository that wraps the base repository with caching.
// Cache keys are scoped by the base repository's namespace, so two
// repositories only share entries when they share a namespace.
func New[T store.Record](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *CachedRepository[T] {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return &CachedRepository[T]{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		namespace:     base.Namespace(),
		logger:        s.logger,
	}
}

// GetByID retrieves a record by ID, served from the entity tier.
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string) (T, error) {
	if store.InTx(ctx) {
		return c.base.GetByID(ctx, id)
	}
	return cache.GetOrFetch(ctx, c.cache, c.entityKey(id), cache.ClassEntity, func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id)
	})
}

// Get retrieves the first record matching the options, served from the list
// tier.
func (c *CachedRepository[T]) Get(ctx context.Context, opts ...store.QueryOption) (T, error) {
	if store.InTx(ctx) {
		return c.base.Get(ctx, opts...)
	}
	return cache.GetOrFetch(ctx, c.cache, c.queryKey("Get", opts), cache.ClassList, func(ctx context.Context) (T, error) {
		return c.base.Get(ctx, opts...)
	})
}

// Find retrieves every record matching the options, served from the list
// tier.
func (c *CachedRepository[T]) Find(ctx context.Context, opts ...store.QueryOption) ([]T, error) {
	if store.InTx(ctx) {
		return c.base.Find(ctx, opts...)
	}
	return cache.GetOrFetch(ctx, c.cache, c.queryKey("Find", opts), cache.ClassList, func(ctx context.Context) ([]T, error) {
		return c.base.Find(ctx, opts...)
	})
}

// List retrieves matching records plus the total count, cached as one entry
// in the list tier so the page and its count never disagree.
func (c *CachedRepository[T]) List(ctx context.Context, opts ...store.QueryOption) ([]T, int, error) {
	if store.InTx(ctx) {
		return c.base.List(ctx, opts...)
	}
	res, err := cache.GetOrFetch(ctx, c.cache, c.queryKey("List", opts), cache.ClassList, func(ctx context.Context) (listResult[T], error) {
		records, total, err := c.base.List(ctx, opts...)
		if err != nil {
			return listResult[T]{}, err
		}
		return listResult[T]{Records: records, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

// Count returns the number of records matching the options, served from the
// count tier.
func (c *CachedRepository[T]) Count(ctx context.Context, opts ...store.QueryOption) (int, error) {
	if store.InTx(ctx) {
		return c.base.Count(ctx, opts...)
	}
	return cache.GetOrFetch(ctx, c.cache, c.queryKey("Count", opts), cache.ClassCount, func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, opts...)
	})
}

// Create passes through and invalidates cached query results, which the new
// record may now belong to. Entity entries stay: no cached lookup can name
// an ID that did not exist yet.
func (c *CachedRepository[T]) Create(ctx context.Context, rec T) (T, error) {
	created, err := c.base.Create(ctx, rec)
	if err != nil {
		return created, err
	}
	c.invalidateQueries(ctx)
	return created, nil
}

// Update passes through and invalidates the record's entity entry plus every
// cached query result.
func (c *CachedRepository[T]) Update(ctx context.Context, rec T) (T, error) {
	updated, err := c.base.Update(ctx, rec)
	if err != nil {
		return updated, err
	}
	c.invalidateEntity(ctx, updated.RecordID())
	c.invalidateQueries(ctx)
	return updated, nil
}

// Delete soft-deletes through the base repository and invalidates the
// record's entity entry plus every cached query result.
func (c *CachedRepository[T]) Delete(ctx context.Context, rec T) error {
	if err := c.base.Delete(ctx, rec); err != nil {
		return err
	}
	c.invalidateEntity(ctx, rec.RecordID())
	c.invalidateQueries(ctx)
	return nil
}

// ForceDelete removes the row through the base repository and invalidates
// the record's entity entry plus every cached query result.
func (c *CachedRepository[T]) ForceDelete(ctx context.Context, rec T) error {
	if err := c.base.ForceDelete(ctx, rec); err != nil {
		return err
	}
	c.invalidateEntity(ctx, rec.RecordID())
	c.invalidateQueries(ctx)
	return nil
}

// InTransaction runs fn in the base repository's transaction scope. Reads
// inside the scope go straight to the base; writes invalidate as they land,
// so a rollback costs cache misses, never wrong data.
func (c *CachedRepository[T]) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.base.InTransaction(ctx, fn)
}

// Namespace returns the base repository's namespace.
func (c *CachedRepository[T]) Namespace() string { return c.namespace }

// entityKey is the exact key of one record's GetByID entry, for example
// "cards::GetByID::card-001".
func (c *CachedRepository[T]) entityKey(id string) string {
	return c.namespace + cache.KeySeparator + c.keySerializer.SerializeKey("GetByID", id)
}

// queryKey digests the resolved query options so option lists that resolve
// to the same QueryOptions share one entry, regardless of how the caller
// composed them. The operation name stays in clear text for prefix sweeps.
func (c *CachedRepository[T]) queryKey(op string, opts []store.QueryOption) string {
	digest := xxhash.Sum64String(c.keySerializer.SerializeKey(op, store.Apply(opts...)))
	return c.namespace + cache.KeySeparator + op + cache.KeySeparator + fmt.Sprintf("%016x", digest)
}

// invalidateEntity drops one record's GetByID entry. A failed delete means a
// stale read bounded by the entity TTL, so it logs and moves on rather than
// failing the write that already landed.
func (c *CachedRepository[T]) invalidateEntity(ctx context.Context, id string) {
	key := c.entityKey(id)
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed",
			"namespace", c.namespace,
			"key", key,
			"error", err,
		)
	}
}

// invalidateQueries sweeps every cached query result for the namespace. Any
// write can change which rows a filter matches, so Get, Find, List and Count
// entries all go together.
func (c *CachedRepository[T]) invalidateQueries(ctx context.Context) {
	for _, op := range []string{"Get", "Find", "List", "Count"} {
		prefix := c.namespace + cache.KeySeparator + op + cache.KeySeparator
		if err := c.cache.DeleteByPrefix(ctx, prefix); err != nil {
			c.logger.WarnContext(ctx, "cache sweep failed",
				"namespace", c.namespace,
				"prefix", prefix,
				"error", err,
			)
		}
	}
}
