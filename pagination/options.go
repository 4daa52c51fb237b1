package pagination

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-repository-engine/cursor"
	"github.com/goliatone/go-repository-engine/store"
)

// BuildOptions translates a page request into store query options using
// slog.Default for cursor warnings.
func BuildOptions(req PageRequest) store.QueryOptions {
	return BuildOptionsWith(slog.Default(), req)
}

// BuildOptionsWith translates a page request into store query options.
//
// The limit is raised by one row beyond the requested page size; that
// lookahead row only signals whether a further page exists and is popped
// again by ProcessResults. Ordering is always the primary sort field followed
// by id, so rows sharing the primary value still paginate deterministically.
// Backward traversal flips the ORDER BY; ProcessResults restores display
// order.
//
// A cursor, when present, becomes a seek condition per its contents:
// primary+id produce the compound form
//
//	primary OP v OR (primary = v AND id OP idv)
//
// while an id-only cursor seeks on id alone. Malformed cursors decode to an
// empty mapping (logged by the codec) and the traversal restarts from the
// beginning of the set.
func BuildOptionsWith(logger *slog.Logger, req PageRequest) store.QueryOptions {
	req = req.Normalize()

	opts := store.QueryOptions{
		Limit: req.Limit + 1,
	}

	desc := req.SortOrder == SortDesc
	if req.Direction == DirectionBackward {
		desc = !desc
	}
	opts.OrderBy = []store.Ordering{
		{Field: req.SortField, Desc: desc},
		{Field: "id", Desc: desc},
	}

	if cond, ok := cursorCondition(logger, req); ok {
		opts.Conditions = append(opts.Conditions, cond)
	}
	return opts
}

func cursorCondition(logger *slog.Logger, req PageRequest) (store.Condition, bool) {
	if req.Cursor == "" {
		return store.Condition{}, false
	}

	m := cursor.DecodeWith(logger, req.Cursor)
	op := seekOperator(req.SortOrder, req.Direction)
	primary, hasPrimary := m[req.SortField]
	id, hasID := m["id"]

	switch {
	case hasPrimary && hasID:
		primary = restoreTime(primary)
		return store.AnyOf(
			store.Condition{Field: req.SortField, Op: op, Value: primary},
			store.AllOf(
				store.Eq(req.SortField, primary),
				store.Condition{Field: "id", Op: op, Value: id},
			),
		), true
	case hasID:
		return store.Condition{Field: "id", Op: op, Value: id}, true
	case hasPrimary:
		return store.Condition{Field: req.SortField, Op: op, Value: restoreTime(primary)}, true
	default:
		return store.Condition{}, false
	}
}

// seekOperator picks the comparison that advances the traversal: ascending
// forward and descending backward seek greater rows, the other two seek
// lesser rows.
func seekOperator(order SortOrder, dir Direction) store.Operator {
	greater := order != SortDesc
	if dir == DirectionBackward {
		greater = !greater
	}
	if greater {
		return store.OpGt
	}
	return store.OpLt
}

// restoreTime undoes the JSON flattening of the cursor wire format, which
// turns timestamps into RFC3339 strings. Store backends need the typed value
// back to compare against time columns.
func restoreTime(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return v
}

// OffsetOptions supports legacy page/perPage listing. Pages are 1-based;
// out-of-range inputs fall back to the first page and the default size.
func OffsetOptions(page, perPage int) store.QueryOptions {
	if perPage <= 0 {
		perPage = DefaultLimit
	}
	if perPage > MaxLimit {
		perPage = MaxLimit
	}
	if page < 1 {
		page = 1
	}
	return store.QueryOptions{
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}
}
