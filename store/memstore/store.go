package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/goliatone/go-repository-engine/internal/fieldref"
	"github.com/goliatone/go-repository-engine/store"
)

// Store is the in-memory implementation of store.Store for one record type.
// Rows are stored as value copies keyed by record ID; reads hand back fresh
// copies so callers never alias stored state.
type Store[T store.Record] struct {
	db    *DB
	table string
}

var _ store.Store[store.Record] = (*Store[store.Record])(nil)

// New creates a store for T in db. The table name is derived from the record
// type the same way bun derives table names (plural snake_case).
func New[T store.Record](db *DB) *Store[T] {
	return NewWithTable[T](db, fieldref.TableNameOf[T]())
}

// NewWithTable creates a store for T bound to an explicit table name.
func NewWithTable[T store.Record](db *DB, name string) *Store[T] {
	return &Store[T]{db: db, table: name}
}

// Select implements store.Store.
func (s *Store[T]) Select(ctx context.Context, opts store.QueryOptions) ([]T, error) {
	release := s.db.acquire(ctx)
	defer release()

	rows := s.matchLocked(opts.Conditions)
	sortRows(rows, opts.OrderBy)

	if opts.Offset > 0 {
		if opts.Offset >= len(rows) {
			return nil, nil
		}
		rows = rows[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(rows) {
		rows = rows[:opts.Limit]
	}

	out := make([]T, len(rows))
	for i, rec := range rows {
		out[i] = fieldref.Clone(rec)
	}
	return out, nil
}

// SelectOne implements store.Store.
func (s *Store[T]) SelectOne(ctx context.Context, opts store.QueryOptions) (T, error) {
	opts.Limit = 1
	opts.Offset = 0

	rows, err := s.Select(ctx, opts)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(rows) == 0 {
		var zero T
		return zero, store.ErrNoRows
	}
	return rows[0], nil
}

// Count implements store.Store.
func (s *Store[T]) Count(ctx context.Context, opts store.QueryOptions) (int, error) {
	release := s.db.acquire(ctx)
	defer release()

	return len(s.matchLocked(opts.Conditions)), nil
}

// Insert implements store.Store.
func (s *Store[T]) Insert(ctx context.Context, rec T) error {
	id := rec.RecordID()
	if id == "" {
		return fmt.Errorf("memstore: insert into %s requires a record id", s.table)
	}

	release := s.db.acquire(ctx)
	defer release()

	t := s.db.tableFor(s.table)
	if _, exists := t.rows[id]; exists {
		return fmt.Errorf("memstore: duplicate id %q in %s", id, s.table)
	}

	t.rows[id] = fieldref.Clone(rec)
	t.order = append(t.order, id)
	return nil
}

// Update implements store.Store. Every row matching the conditions is
// replaced with the record's current values; the caller is expected to scope
// the conditions to a single id.
func (s *Store[T]) Update(ctx context.Context, rec T, opts store.QueryOptions) (int64, error) {
	release := s.db.acquire(ctx)
	defer release()

	t := s.db.tableFor(s.table)
	var affected int64
	for _, id := range t.order {
		row, ok := t.rows[id]
		if !ok {
			continue
		}
		if !matches(row, opts.Conditions) {
			continue
		}
		t.rows[id] = fieldref.Clone(rec)
		affected++
	}
	return affected, nil
}

// Delete implements store.Store. Removing an absent row is a no-op.
func (s *Store[T]) Delete(ctx context.Context, rec T) error {
	release := s.db.acquire(ctx)
	defer release()

	t := s.db.tableFor(s.table)
	id := rec.RecordID()
	if _, ok := t.rows[id]; !ok {
		return nil
	}

	delete(t.rows, id)
	for i, other := range t.order {
		if other == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store[T]) matchLocked(conds []store.Condition) []T {
	t := s.db.tableFor(s.table)

	var out []T
	for _, id := range t.order {
		row, ok := t.rows[id]
		if !ok {
			continue
		}
		if matches(row, conds) {
			out = append(out, row.(T))
		}
	}
	return out
}

func matches(rec any, conds []store.Condition) bool {
	for _, c := range conds {
		if !matchCondition(rec, c) {
			return false
		}
	}
	return true
}

func matchCondition(rec any, c store.Condition) bool {
	if len(c.Any) > 0 {
		for _, child := range c.Any {
			if matchCondition(rec, child) {
				return true
			}
		}
		return false
	}
	if len(c.All) > 0 {
		for _, child := range c.All {
			if !matchCondition(rec, child) {
				return false
			}
		}
		return true
	}

	val, ok := fieldref.Value(rec, c.Field)

	switch c.Op {
	case store.OpIsNull:
		return ok && isNil(val)
	case store.OpNotNull:
		return ok && !isNil(val)
	}
	if !ok {
		return false
	}

	cmp, ok := fieldref.Compare(val, c.Value)
	if !ok {
		return false
	}

	switch c.Op {
	case store.OpEq:
		return cmp == 0
	case store.OpNotEq:
		return cmp != 0
	case store.OpGt:
		return cmp > 0
	case store.OpGte:
		return cmp >= 0
	case store.OpLt:
		return cmp < 0
	case store.OpLte:
		return cmp <= 0
	}
	return false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func sortRows[T any](rows []T, orderBy []store.Ordering) {
	if len(orderBy) == 0 {
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range orderBy {
			vi, _ := fieldref.Value(rows[i], ord.Field)
			vj, _ := fieldref.Value(rows[j], ord.Field)

			cmp, ok := fieldref.Compare(vi, vj)
			if !ok || cmp == 0 {
				continue
			}
			if ord.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
