package pagination

// Direction selects which way a page request walks the result set relative
// to its cursor.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// SortOrder is the display order of the primary sort field.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	// DefaultLimit is applied when a request carries no page size.
	DefaultLimit = 50
	// MaxLimit caps the page size a single request can ask for.
	MaxLimit = 1000
	// DefaultSortField orders results by insertion time when no sort field
	// is given.
	DefaultSortField = "created_at"
)

// PageRequest describes one page of a cursor traversal. The zero value is a
// valid request for the first DefaultLimit rows ordered by created_at
// ascending.
type PageRequest struct {
	Limit     int       `json:"limit"`
	Cursor    string    `json:"cursor,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	SortField string    `json:"sortField,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty"`
}

// Normalize returns a copy of the request with defaults filled in and the
// limit clamped to [1, MaxLimit]. Unknown direction or sort order values fall
// back to forward and ascending. Normalize is idempotent; the query builders
// call it themselves, so callers only need it when they want to inspect the
// effective values.
func (r PageRequest) Normalize() PageRequest {
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	if r.Direction != DirectionBackward {
		r.Direction = DirectionForward
	}
	if r.SortOrder != SortDesc {
		r.SortOrder = SortAsc
	}
	if r.SortField == "" {
		r.SortField = DefaultSortField
	}
	return r
}
