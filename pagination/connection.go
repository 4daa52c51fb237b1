package pagination

import "github.com/goliatone/go-repository-engine/store"

// Edge pairs a record with the cursor that resumes traversal right after it.
type Edge[T store.Record] struct {
	Node   T      `json:"node"`
	Cursor string `json:"cursor"`
}

// Connection is the relay-style page shape: per-row cursors plus PageInfo.
type Connection[T store.Record] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// WithTotal attaches a total row count to the connection.
func (c Connection[T]) WithTotal(n int) Connection[T] {
	c.PageInfo.TotalCount = &n
	return c
}

// BuildConnection wraps ProcessResults, giving every row its own cursor.
func BuildConnection[T store.Record](rows []T, req PageRequest) Connection[T] {
	req = req.Normalize()
	page := ProcessResults(rows, req)

	edges := make([]Edge[T], 0, len(page.Data))
	for _, row := range page.Data {
		edges = append(edges, Edge[T]{Node: row, Cursor: cursorFor(row, req.SortField)})
	}
	return Connection[T]{Edges: edges, PageInfo: page.PageInfo}
}
