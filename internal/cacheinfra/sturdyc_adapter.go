package cacheinfra

import (
	"context"
	"reflect"
	"strings"

	"github.com/viccon/sturdyc"
)

// sturdycService caches entries in-process using one sturdyc client per
// TTL class. Keys are unique across classes because callers embed the
// operation in the key, so deletes sweep every client rather than asking
// the caller to remember which tier a key was written under.
type sturdycService struct {
	clients [3]*sturdyc.Client[any]
}

// NewSturdycService creates the in-process cache service adapter.
// It validates the configuration and initializes one sturdyc client per
// TTL class with the provided settings.
//
// The constructor translates Config parameters to sturdyc initialization:
// - Capacity, NumShards, TTLFor(class), EvictionPercentage are passed to sturdyc.New()
// - Other options are applied via ToSturdycOptions()
//
// Version compatibility note: This implementation assumes sturdyc v1.x API.
// Monitor sturdyc version upgrades for potential option mapping changes.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	svc := &sturdycService{}
	for _, class := range []TTLClass{ClassEntity, ClassList, ClassCount} {
		svc.clients[class] = sturdyc.New[any](
			cfg.Capacity,
			cfg.NumShards,
			cfg.TTLFor(class),
			cfg.EvictionPercentage,
			cfg.ToSturdycOptions()...,
		)
	}

	return svc, nil
}

// clientFor maps a TTL class to its client. Out-of-range classes land in
// the entity tier rather than panicking.
func (s *sturdycService) clientFor(class TTLClass) *sturdyc.Client[any] {
	if class < 0 || int(class) >= len(s.clients) {
		return s.clients[ClassEntity]
	}
	return s.clients[class]
}

// GetOrFetch attempts to retrieve a value from the class's cache tier
// using the provided key. If the key is not found or expired, it executes
// the fetchFn to get a fresh value, stores it, and returns it.
//
// The fetchFn parameter must be a func(context.Context) (T, error) for
// some T. Loader errors pass through to the caller unwrapped.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, class TTLClass, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	typedFetchFn := func(ctx context.Context) (any, error) {
		return callFetchFn(ctx, fetchFn)
	}

	return s.clientFor(class).GetOrFetch(ctx, key, typedFetchFn)
}

// Delete removes a single entry so subsequent GetOrFetch calls fetch
// fresh data from the source.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	for _, client := range s.clients {
		client.Delete(key)
	}
	return nil
}

// DeleteByPrefix removes all entries whose keys start with the given
// prefix, across every TTL tier. This is how related entries are
// invalidated in bulk after a write (e.g. every cached query for one
// table).
func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, client := range s.clients {
		for _, key := range client.ScanKeys() {
			if strings.HasPrefix(key, prefix) {
				client.Delete(key)
			}
		}
	}
	return nil
}

// InvalidateKeys removes multiple entries in a single operation.
func (s *sturdycService) InvalidateKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		for _, client := range s.clients {
			client.Delete(key)
		}
	}
	return nil
}

// validateFetchFn performs comprehensive validation of the fetchFn parameter
// to ensure it matches the expected signature: func(context.Context) (T, error)
func validateFetchFn(fetchFn any) error {
	if fetchFn == nil {
		return &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
	}

	fnType := reflect.TypeOf(fetchFn)

	if fnType.Kind() != reflect.Func {
		return &ConfigError{Field: "fetchFn", Message: "must be a function"}
	}

	if fnType.NumIn() != 1 || fnType.NumOut() != 2 {
		return &ConfigError{Field: "fetchFn", Message: "must have signature func(context.Context) (T, error)"}
	}

	contextType := reflect.TypeOf((*context.Context)(nil)).Elem()
	if !fnType.In(0).Implements(contextType) {
		return &ConfigError{Field: "fetchFn", Message: "first parameter must be context.Context"}
	}

	errorType := reflect.TypeOf((*error)(nil)).Elem()
	if !fnType.Out(1).Implements(errorType) {
		return &ConfigError{Field: "fetchFn", Message: "second return value must be error"}
	}

	return nil
}

// callFetchFn invokes a function matching func(context.Context) (T, error)
// for any T and boxes the result. fetchFn must already have passed
// validateFetchFn.
func callFetchFn(ctx context.Context, fetchFn any) (any, error) {
	// Direct assertion covers the common case without reflection.
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return fn(ctx)
	}

	results := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(ctx)})

	var result any
	if v := results[0]; v.IsValid() && v.CanInterface() {
		result = v.Interface()
	}

	var err error
	if v := results[1]; v.IsValid() && !v.IsNil() {
		err = v.Interface().(error)
	}

	return result, err
}

// fetchResultType reports the value type a validated fetch function
// returns. Backends that serialize entries use it to decode payloads back
// into the caller's type.
func fetchResultType(fetchFn any) reflect.Type {
	return reflect.TypeOf(fetchFn).Out(0)
}
