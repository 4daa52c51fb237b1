// Package store defines the query contract the repository engine runs on: a
// small filter/order/limit option set, a Store interface per record type, and
// a TxRunner for transaction scopes. Concrete backends live in the bunstore
// and memstore subpackages; NewPostgresDB and NewSQLiteDB build the database
// handles the bun backend needs.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNoRows is returned by SelectOne when no record matches. Backends map
// their driver-specific miss (for example sql.ErrNoRows) onto this sentinel
// so callers never see driver errors.
var ErrNoRows = errors.New("store: no rows in result set")

// Record is the persistence contract for stored types. repository.Model
// provides a ready implementation that domain structs embed.
type Record interface {
	RecordID() string
	SetRecordID(id string)
	RecordVersion() int64
	SetRecordVersion(v int64)
	RecordDeletedAt() *time.Time
	SetRecordDeletedAt(t *time.Time)
	StampCreated(now time.Time)
	StampUpdated(now time.Time)
}

// Store executes queries for one record type against a concrete backend.
// Implementations must honor any transaction scope carried by the context.
type Store[T Record] interface {
	// Select returns every record matching the options, in option order.
	Select(ctx context.Context, opts QueryOptions) ([]T, error)

	// SelectOne returns the first record matching the options or ErrNoRows.
	SelectOne(ctx context.Context, opts QueryOptions) (T, error)

	// Count returns the number of records matching the option conditions.
	// Limit and Offset are ignored.
	Count(ctx context.Context, opts QueryOptions) (int, error)

	// Insert persists a new record.
	Insert(ctx context.Context, rec T) error

	// Update writes the record's current field values to every row matching
	// the option conditions and reports how many rows changed. Callers use
	// the count to detect compare-and-swap misses.
	Update(ctx context.Context, rec T, opts QueryOptions) (int64, error)

	// Delete removes the record's row outright.
	Delete(ctx context.Context, rec T) error
}

// TxRunner opens transaction scopes. RunInTx commits when fn returns nil and
// rolls back when it returns an error, handing back fn's original error.
// Implementations carry the open scope through the context they pass to fn,
// so nested RunInTx calls and store operations made with that context join
// the same transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txMarkerKey struct{}

// MarkTx tags the context as running inside a transaction scope. Backends
// call this when they open a scope; layers that must not interpose on
// transactional reads (such as cache decorators) check InTx.
func MarkTx(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, txMarkerKey{}, true)
}

// InTx reports whether the context is running inside a transaction scope.
func InTx(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(txMarkerKey{}).(bool)
	return v
}
