// Package memstore provides the in-memory store backend. It backs tests,
// examples and local development with the same query contract the SQL
// backend honors, including transaction scopes with snapshot rollback.
package memstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-repository-engine/store"
)

// DB is the shared in-memory database: named tables behind one mutex so a
// transaction can snapshot and restore all of them consistently.
type DB struct {
	mu       sync.Mutex
	tables   map[string]*table
	activeTx atomic.Pointer[txToken]
}

type table struct {
	rows  map[string]any
	order []string
}

type txToken struct{ _ byte }

type txCtxKey struct{}

// NewDB creates an empty in-memory database.
func NewDB() *DB {
	return &DB{tables: make(map[string]*table)}
}

var _ store.TxRunner = (*DB)(nil)

// RunInTx implements store.TxRunner. The whole database is locked for the
// duration of the scope, a snapshot is taken up front, and any error or
// panic from fn restores it. Nested calls that carry this DB's scope in
// their context run directly inside the outer scope.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tok, ok := ctx.Value(txCtxKey{}).(*txToken); ok && tok == db.activeTx.Load() {
		return fn(ctx)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	tok := &txToken{}
	db.activeTx.Store(tok)
	defer db.activeTx.Store(nil)

	snap := db.snapshotLocked()
	ctx = store.MarkTx(context.WithValue(ctx, txCtxKey{}, tok))

	defer func() {
		if p := recover(); p != nil {
			db.restoreLocked(snap)
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		db.restoreLocked(snap)
		return err
	}
	return nil
}

// acquire takes the database lock unless the context already runs inside
// this DB's transaction scope, in which case the scope's lock is reused.
func (db *DB) acquire(ctx context.Context) func() {
	if tok, ok := ctx.Value(txCtxKey{}).(*txToken); ok && tok == db.activeTx.Load() {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func (db *DB) tableFor(name string) *table {
	t, ok := db.tables[name]
	if !ok {
		t = &table{rows: make(map[string]any)}
		db.tables[name] = t
	}
	return t
}

func (db *DB) snapshotLocked() map[string]*table {
	snap := make(map[string]*table, len(db.tables))
	for name, t := range db.tables {
		rows := make(map[string]any, len(t.rows))
		for id, rec := range t.rows {
			rows[id] = rec
		}
		snap[name] = &table{
			rows:  rows,
			order: append([]string(nil), t.order...),
		}
	}
	return snap
}

func (db *DB) restoreLocked(snap map[string]*table) {
	db.tables = snap
}
