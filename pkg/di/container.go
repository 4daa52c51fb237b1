package di

import (
	"fmt"
	"log/slog"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-repository-engine/cache"
	"github.com/goliatone/go-repository-engine/ledger"
	"github.com/goliatone/go-repository-engine/repository"
	"github.com/goliatone/go-repository-engine/repositorycache"
	"github.com/goliatone/go-repository-engine/store"
)

// Backend selects the cache service implementation the container builds.
type Backend string

const (
	// BackendMemory serves cache reads from an in-process sturdyc cache.
	BackendMemory Backend = "memory"
	// BackendRedis serves cache reads from a shared redis instance so
	// several processes see the same cached state.
	BackendRedis Backend = "redis"
)

// Config collects everything the container wires into repositories. The
// zero value is usable: it selects the memory backend, the default cache
// configuration, the default logger and no-op hooks.
type Config struct {
	Cache        cache.Config
	Backend      Backend
	Redis        cache.RedisConfig
	Logger       *slog.Logger
	AuditHook    repository.AuditHook
	QueryMonitor repository.QueryMonitor
}

// Container provides dependency injection for the repository engine.
// It manages singleton instances of the cache service and key serializer,
// memoizes assembled repositories so repeated factory calls share one
// instance, and carries the logger and hooks every repository it builds
// is wired with.
type Container struct {
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	config        Config
	logger        *slog.Logger
	hook          repository.AuditHook
	monitor       repository.QueryMonitor
	instances     *xsync.MapOf[string, any]
}

// NewContainer creates a DI container from the provided configuration.
// It builds the cache service for the selected backend and fills in
// defaults for anything left unset.
func NewContainer(config Config) (*Container, error) {
	if config.Cache == (cache.Config{}) {
		config.Cache = cache.DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.AuditHook == nil {
		config.AuditHook = repository.NopAuditHook{}
	}
	if config.QueryMonitor == nil {
		config.QueryMonitor = repository.NopQueryMonitor{}
	}

	var (
		cacheService cache.CacheService
		err          error
	)
	switch config.Backend {
	case BackendMemory, "":
		cacheService, err = cache.NewCacheService(config.Cache)
	case BackendRedis:
		cacheService, err = cache.NewRedisCacheService(config.Cache, config.Redis)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", config.Backend)
	}
	if err != nil {
		return nil, err
	}

	return &Container{
		cacheService:  cacheService,
		keySerializer: cache.NewDefaultKeySerializer(),
		config:        config,
		logger:        config.Logger,
		hook:          config.AuditHook,
		monitor:       config.QueryMonitor,
		instances:     xsync.NewMapOf[string, any](),
	}, nil
}

// NewContainerWithDefaults creates a DI container using default configuration.
// This is a convenience constructor for typical use cases where custom
// configuration is not required.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(Config{})
}

// CacheService returns the singleton cache service instance.
// This allows access to the underlying cache for advanced use cases.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
// This allows access to the key serializer for custom caching implementations.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Logger returns the logger wired into repositories built by this container.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

// repositoryOptions prepends the container-wide wiring so caller options
// override it.
func (c *Container) repositoryOptions(opts []repository.Option) []repository.Option {
	base := []repository.Option{
		repository.WithLogger(c.logger),
		repository.WithAuditHook(c.hook),
		repository.WithQueryMonitor(c.monitor),
	}
	return append(base, opts...)
}

// memoize returns the container-scoped instance stored under key, building
// it on first use. A slot holding another type yields a fresh instance
// rather than a panic, but keys embed the concrete type so that does not
// happen in practice.
func memoize[V any](c *Container, key string, build func() V) V {
	v, _ := c.instances.LoadOrCompute(key, func() any { return build() })
	if typed, ok := v.(V); ok {
		return typed
	}
	return build()
}

// NewRepository creates a base repository over the store, wired with the
// container's logger, audit hook and query monitor. Repeated calls for the
// same record type return the same instance.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function. Example: NewRepository[*User](container, st)
func NewRepository[T store.Record](c *Container, st store.Store[T], opts ...repository.Option) *repository.Base[T] {
	repo := repository.New[T](st, c.repositoryOptions(opts)...)
	key := fmt.Sprintf("base:%T:%s", repo, repo.Namespace())
	return memoize(c, key, func() *repository.Base[T] { return repo })
}

// NewCachedRepository creates a cached repository that wraps the provided
// base repository. It wires together the cache service, key serializer, and
// base repository to provide a drop-in replacement with caching capabilities.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function. Example: NewCachedRepository[*User](container, baseUserRepository)
func NewCachedRepository[T store.Record](c *Container, base repository.Repository[T]) *repositorycache.CachedRepository[T] {
	key := fmt.Sprintf("cached:%T:%s", base, base.Namespace())
	return memoize(c, key, func() *repositorycache.CachedRepository[T] {
		return repositorycache.New[T](base, c.cacheService, c.keySerializer,
			repositorycache.WithLogger(c.logger))
	})
}

// NewPaginated wraps a repository with the cursor pagination and streaming
// helpers. Wrapping a cached repository paginates through the cache;
// wrapping a base repository paginates straight through the store.
func NewPaginated[T store.Record](c *Container, base repository.Repository[T]) *repository.Paginated[T] {
	key := fmt.Sprintf("paginated:%T:%s", base, base.Namespace())
	return memoize(c, key, func() *repository.Paginated[T] {
		return repository.NewPaginated[T](base, repository.WithLogger(c.logger))
	})
}

// NewLedger assembles the ledger service over the entry store. Extra
// options reach the underlying repository; pass repository.WithTxRunner
// so the continuity check and insert share one transaction.
func NewLedger(c *Container, st store.Store[*ledger.Entry], opts ...repository.Option) *ledger.Ledger {
	return memoize(c, "ledger:"+ledger.TableName, func() *ledger.Ledger {
		opts = append(opts, repository.WithNamespace(ledger.TableName))
		base := repository.New[*ledger.Entry](st, c.repositoryOptions(opts)...)
		paged := repository.NewPaginated[*ledger.Entry](base, repository.WithLogger(c.logger))
		return ledger.New(paged, ledger.WithLogger(c.logger))
	})
}
