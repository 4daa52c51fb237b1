// Package pagination turns cursor page requests into store queries and store
// rows into page results.
//
// # How a page is fetched
//
// A traversal is two pure transformations around one store call:
//
//	req := pagination.PageRequest{Limit: 25, SortField: "created_at"}
//	rows, err := st.Select(ctx, pagination.BuildOptions(req))
//	if err != nil {
//		return err
//	}
//	page := pagination.ProcessResults(rows, req)
//
// BuildOptions asks the store for one row more than the page size. That
// lookahead row never reaches the caller; its presence is what makes
// PageInfo.HasNextPage (or HasPreviousPage when walking backward) reliable
// without a count query. The next page is fetched by passing
// page.PageInfo.EndCursor as the request's Cursor.
//
// # Ordering and stability
//
// Every query is ordered by the primary sort field and then by id. The id
// tiebreak keeps pagination stable when many rows share the primary value,
// and the cursor carries both values so the seek condition can resume exactly
// after the last row seen:
//
//	created_at > t OR (created_at = t AND id > last)
//
// Backward traversal flips both the ORDER BY and the comparison; rows are
// reversed back to display order before they are returned.
//
// # Cursors
//
// Cursors are opaque tokens produced by the cursor package. A malformed token
// is treated as no cursor at all: the traversal restarts from the beginning
// of the set and a warning is logged. Callers never see a decode error.
//
// # Relay connections
//
// BuildConnection produces the edges/pageInfo shape used by relay-style APIs,
// where every row carries the cursor that resumes traversal right after it.
package pagination
