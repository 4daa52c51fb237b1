package repository

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-repository-engine/pagination"
	"github.com/goliatone/go-repository-engine/store"
)

// Paginated composes a repository with the cursor pagination engine and the
// streaming/batch helpers. It is a wrapper, not a subtype: any Repository
// implementation can be paginated, including a cached one.
type Paginated[T store.Record] struct {
	Repository[T]

	logger *slog.Logger
}

// NewPaginated wraps a repository. Only WithLogger applies here; everything
// else is configured on the wrapped repository.
func NewPaginated[T store.Record](base Repository[T], opts ...Option) *Paginated[T] {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return &Paginated[T]{Repository: base, logger: s.logger}
}

// CursorList fetches one page of a cursor traversal. Extra options contribute
// filter conditions; ordering and windowing belong to the request and any
// the caller sets are overridden.
func (p *Paginated[T]) CursorList(ctx context.Context, req pagination.PageRequest, extra ...store.QueryOption) (pagination.PageResult[T], error) {
	req = req.Normalize()

	rows, err := p.Find(ctx, p.pageOption(req, extra))
	if err != nil {
		return pagination.PageResult[T]{}, err
	}
	return pagination.ProcessResults(rows, req), nil
}

// CursorListWithTotal is CursorList plus the total match count, at the cost
// of one extra count query over the same filters.
func (p *Paginated[T]) CursorListWithTotal(ctx context.Context, req pagination.PageRequest, extra ...store.QueryOption) (pagination.PageResult[T], error) {
	page, err := p.CursorList(ctx, req, extra...)
	if err != nil {
		return page, err
	}
	total, err := p.Count(ctx, extra...)
	if err != nil {
		return page, err
	}
	return page.WithTotal(total), nil
}

// Connection fetches one page in the relay edges/pageInfo shape.
func (p *Paginated[T]) Connection(ctx context.Context, req pagination.PageRequest, extra ...store.QueryOption) (pagination.Connection[T], error) {
	req = req.Normalize()

	rows, err := p.Find(ctx, p.pageOption(req, extra))
	if err != nil {
		return pagination.Connection[T]{}, err
	}
	return pagination.BuildConnection(rows, req), nil
}

// OffsetList is legacy page/perPage listing with a total count. Pages are
// 1-based.
func (p *Paginated[T]) OffsetList(ctx context.Context, page, perPage int, extra ...store.QueryOption) ([]T, int, error) {
	opts := pagination.OffsetOptions(page, perPage)
	return p.List(ctx, append(extra, store.WithOptions(opts))...)
}

// pageOption folds the request's pagination constraints over the caller's
// extra filters. The cursor engine owns ORDER BY, limit and offset.
func (p *Paginated[T]) pageOption(req pagination.PageRequest, extra []store.QueryOption) store.QueryOption {
	page := pagination.BuildOptionsWith(p.logger, req)
	return func(q *store.QueryOptions) {
		for _, opt := range extra {
			if opt != nil {
				opt(q)
			}
		}
		q.Conditions = append(q.Conditions, page.Conditions...)
		q.OrderBy = page.OrderBy
		q.Limit = page.Limit
		q.Offset = 0
	}
}
