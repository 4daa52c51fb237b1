// Package bunstore provides the SQL store backend on top of uptrace/bun.
// It translates the store query contract into bun queries and carries
// transaction scopes through the context, so repositories compose into
// transactions without separate *Tx method families.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-repository-engine/internal/fieldref"
	"github.com/goliatone/go-repository-engine/store"
)

type txKey struct{}

// Store is the bun-backed implementation of store.Store for one record type.
type Store[T store.Record] struct {
	db *bun.DB
}

var _ store.Store[store.Record] = (*Store[store.Record])(nil)

// New creates a store for T backed by the given bun database handle.
func New[T store.Record](db *bun.DB) *Store[T] {
	return &Store[T]{db: db}
}

// idb resolves the executor for the context: the open transaction when one
// is carried, the root handle otherwise.
func (s *Store[T]) idb(ctx context.Context) bun.IDB {
	if tx, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return tx
	}
	return s.db
}

// Select implements store.Store.
func (s *Store[T]) Select(ctx context.Context, opts store.QueryOptions) ([]T, error) {
	if err := validateConditions(opts.Conditions); err != nil {
		return nil, err
	}

	var rows []T
	q := s.idb(ctx).NewSelect().Model(&rows)
	q = applyQuery(q, opts)
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

// SelectOne implements store.Store.
func (s *Store[T]) SelectOne(ctx context.Context, opts store.QueryOptions) (T, error) {
	var zero T
	if err := validateConditions(opts.Conditions); err != nil {
		return zero, err
	}

	opts.Limit = 1
	opts.Offset = 0

	rec := fieldref.NewRecord[T]()
	q := s.idb(ctx).NewSelect().Model(rec)
	q = applyQuery(q, opts)
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, store.ErrNoRows
		}
		return zero, err
	}
	return rec, nil
}

// Count implements store.Store.
func (s *Store[T]) Count(ctx context.Context, opts store.QueryOptions) (int, error) {
	if err := validateConditions(opts.Conditions); err != nil {
		return 0, err
	}

	q := s.idb(ctx).NewSelect().Model(fieldref.NewRecord[T]())
	q = q.ApplyQueryBuilder(conditionsApplier(opts.Conditions))
	return q.Count(ctx)
}

// Insert implements store.Store.
func (s *Store[T]) Insert(ctx context.Context, rec T) error {
	_, err := s.idb(ctx).NewInsert().Model(rec).Exec(ctx)
	return err
}

// Update implements store.Store. The record's current values are written to
// every row matching the conditions; callers scope the conditions to a
// single id (plus the expected version for compare-and-swap writes).
func (s *Store[T]) Update(ctx context.Context, rec T, opts store.QueryOptions) (int64, error) {
	if err := validateConditions(opts.Conditions); err != nil {
		return 0, err
	}
	if len(opts.Conditions) == 0 {
		return 0, fmt.Errorf("bunstore: update requires at least one condition")
	}

	q := s.idb(ctx).NewUpdate().Model(rec)
	q = q.ApplyQueryBuilder(conditionsApplier(opts.Conditions))
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete implements store.Store. The row is removed outright; soft deletion
// is a repository concern.
func (s *Store[T]) Delete(ctx context.Context, rec T) error {
	_, err := s.idb(ctx).NewDelete().Model(rec).WherePK().Exec(ctx)
	return err
}

// TxRunner implements store.TxRunner over a bun database. RunInTx relies on
// bun's transaction helper for commit/rollback handling and stashes the open
// bun.Tx in the context so every Store sharing the handle joins the scope.
type TxRunner struct {
	db *bun.DB
}

var _ store.TxRunner = (*TxRunner)(nil)

// NewTxRunner creates a transaction runner for the given handle.
func NewTxRunner(db *bun.DB) *TxRunner {
	return &TxRunner{db: db}
}

// RunInTx implements store.TxRunner. A context already carrying an open
// transaction joins it instead of opening a new one.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return fn(ctx)
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(store.MarkTx(context.WithValue(ctx, txKey{}, tx)))
	})
}

func applyQuery(q *bun.SelectQuery, opts store.QueryOptions) *bun.SelectQuery {
	q = q.ApplyQueryBuilder(conditionsApplier(opts.Conditions))

	for _, ord := range opts.OrderBy {
		if ord.Desc {
			q = q.OrderExpr("? DESC", bun.Ident(ord.Field))
		} else {
			q = q.OrderExpr("? ASC", bun.Ident(ord.Field))
		}
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	return q
}

func conditionsApplier(conds []store.Condition) func(bun.QueryBuilder) bun.QueryBuilder {
	return func(qb bun.QueryBuilder) bun.QueryBuilder {
		for _, c := range conds {
			qb = applyCondition(qb, c, false)
		}
		return qb
	}
}

func applyCondition(qb bun.QueryBuilder, c store.Condition, or bool) bun.QueryBuilder {
	switch {
	case len(c.Any) > 0:
		return qb.WhereGroup(joiner(or), func(g bun.QueryBuilder) bun.QueryBuilder {
			for i, child := range c.Any {
				g = applyCondition(g, child, i > 0)
			}
			return g
		})
	case len(c.All) > 0:
		return qb.WhereGroup(joiner(or), func(g bun.QueryBuilder) bun.QueryBuilder {
			for _, child := range c.All {
				g = applyCondition(g, child, false)
			}
			return g
		})
	}

	switch c.Op {
	case store.OpIsNull:
		return where(qb, or, "? IS NULL", bun.Ident(c.Field))
	case store.OpNotNull:
		return where(qb, or, "? IS NOT NULL", bun.Ident(c.Field))
	default:
		return where(qb, or, "? "+sqlOp(c.Op)+" ?", bun.Ident(c.Field), c.Value)
	}
}

func where(qb bun.QueryBuilder, or bool, expr string, args ...any) bun.QueryBuilder {
	if or {
		return qb.WhereOr(expr, args...)
	}
	return qb.Where(expr, args...)
}

func joiner(or bool) string {
	if or {
		return " OR "
	}
	return " AND "
}

func sqlOp(op store.Operator) string {
	switch op {
	case store.OpEq:
		return "="
	case store.OpNotEq:
		return "<>"
	case store.OpGt:
		return ">"
	case store.OpGte:
		return ">="
	case store.OpLt:
		return "<"
	case store.OpLte:
		return "<="
	}
	return "="
}

func validateConditions(conds []store.Condition) error {
	for _, c := range conds {
		if c.IsComposite() {
			if len(c.Any) > 0 && len(c.All) > 0 {
				return fmt.Errorf("bunstore: condition mixes Any and All groups")
			}
			group := c.Any
			if len(group) == 0 {
				group = c.All
			}
			if err := validateConditions(group); err != nil {
				return err
			}
			continue
		}

		switch c.Op {
		case store.OpEq, store.OpNotEq, store.OpGt, store.OpGte, store.OpLt, store.OpLte,
			store.OpIsNull, store.OpNotNull:
		default:
			return fmt.Errorf("bunstore: unsupported operator %q on %q", c.Op, c.Field)
		}
	}
	return nil
}
