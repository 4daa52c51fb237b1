package pagination

import (
	"slices"

	"github.com/goliatone/go-repository-engine/cursor"
	"github.com/goliatone/go-repository-engine/internal/fieldref"
	"github.com/goliatone/go-repository-engine/store"
)

// PageInfo summarizes a page's position within the full result set.
type PageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor,omitempty"`
	EndCursor       string `json:"endCursor,omitempty"`
	TotalCount      *int   `json:"totalCount,omitempty"`
}

// PageResult is one page of records in display order.
type PageResult[T store.Record] struct {
	Data     []T      `json:"data"`
	PageInfo PageInfo `json:"pageInfo"`
}

// WithTotal attaches a total row count to the page. Totals cost an extra
// count query, so they are opt-in.
func (r PageResult[T]) WithTotal(n int) PageResult[T] {
	r.PageInfo.TotalCount = &n
	return r
}

// ProcessResults turns rows fetched with BuildOptions into a page.
//
// When the lookahead row is present it is popped and recorded as
// HasNextPage (forward) or HasPreviousPage (backward); the flag for the
// side the caller came from reports whether a cursor was supplied. Backward
// traversal reverses the remaining rows so Data is always in the caller's
// requested display order. The rows slice is truncated and reordered in
// place.
func ProcessResults[T store.Record](rows []T, req PageRequest) PageResult[T] {
	req = req.Normalize()

	lookahead := len(rows) > req.Limit
	if lookahead {
		rows = rows[:req.Limit]
	}

	backward := req.Direction == DirectionBackward
	if backward {
		slices.Reverse(rows)
	}

	info := PageInfo{}
	if backward {
		info.HasPreviousPage = lookahead
		info.HasNextPage = req.Cursor != ""
	} else {
		info.HasNextPage = lookahead
		info.HasPreviousPage = req.Cursor != ""
	}

	if len(rows) > 0 {
		info.StartCursor = cursorFor(rows[0], req.SortField)
		info.EndCursor = cursorFor(rows[len(rows)-1], req.SortField)
	}

	return PageResult[T]{Data: rows, PageInfo: info}
}

// cursorFor encodes a row's position as sort value plus id. A sort field the
// row does not have degrades to an id-only cursor.
func cursorFor[T store.Record](rec T, sortField string) string {
	m := cursor.Mapping{"id": rec.RecordID()}
	if v, ok := fieldref.Value(rec, sortField); ok {
		m[sortField] = v
	}
	return cursor.Encode(m)
}
