package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-repository-engine/internal/cacheinfra"
)

// TTLClass selects the expiry tier an entry is written under. Entities
// live longest, list pages less, counts least; see Config for the
// durations behind each tier.
type TTLClass = cacheinfra.TTLClass

const (
	// ClassEntity is for single-record lookups keyed by identity.
	ClassEntity = cacheinfra.ClassEntity

	// ClassList is for query results whose membership shifts as rows change.
	ClassList = cacheinfra.ClassList

	// ClassCount is for aggregate counts.
	ClassCount = cacheinfra.ClassCount
)

// ErrInvalidResultType reports that a cached value could not be converted
// to the type the caller asked GetOrFetch for. It usually means two call
// sites share a key but disagree about what is stored under it.
var ErrInvalidResultType = errors.New("cache: result does not match requested type")

// ErrUnavailable reports that the cache backend could not be reached.
// Only returned from invalidation calls; read paths degrade to the fetch
// function instead of failing.
var ErrUnavailable = cacheinfra.ErrUnavailable

// KeySerializer builds a cache key from a method name + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through caching operations we need when decorating repositories.
// It is exported so that other packages can reuse the default serializer or provide alternate cache backends.
//
// Implementations never fail a read because the backend is down: a
// GetOrFetch error is either a bad fetchFn or the fetchFn's own error.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, class TTLClass, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, class TTLClass, fetchFn FetchFn[T]) (T, error) {
	var zero T

	result, err := service.GetOrFetch(ctx, key, class, fetchFn)
	if err != nil {
		return zero, err
	}

	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: want %T, got %T", ErrInvalidResultType, zero, result)
	}
	return typed, nil
}
