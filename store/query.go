package store

// Operator enumerates the comparisons a Condition can express.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNotEq   Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpIsNull  Operator = "is_null"
	OpNotNull Operator = "not_null"
)

// Condition is one predicate in a query. A leaf condition populates Field,
// Op and (except for the null checks) Value. A composite condition populates
// exactly one of Any (children joined with OR) or All (children joined with
// AND) and leaves the leaf fields empty.
type Condition struct {
	Field string
	Op    Operator
	Value any

	Any []Condition
	All []Condition
}

// IsComposite reports whether the condition groups children instead of
// testing a field.
func (c Condition) IsComposite() bool {
	return len(c.Any) > 0 || len(c.All) > 0
}

// Eq matches rows whose column equals value.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

// NotEq matches rows whose column differs from value.
func NotEq(field string, value any) Condition {
	return Condition{Field: field, Op: OpNotEq, Value: value}
}

// Gt matches rows whose column is strictly greater than value.
func Gt(field string, value any) Condition {
	return Condition{Field: field, Op: OpGt, Value: value}
}

// Gte matches rows whose column is greater than or equal to value.
func Gte(field string, value any) Condition {
	return Condition{Field: field, Op: OpGte, Value: value}
}

// Lt matches rows whose column is strictly less than value.
func Lt(field string, value any) Condition {
	return Condition{Field: field, Op: OpLt, Value: value}
}

// Lte matches rows whose column is less than or equal to value.
func Lte(field string, value any) Condition {
	return Condition{Field: field, Op: OpLte, Value: value}
}

// IsNull matches rows whose column is NULL.
func IsNull(field string) Condition {
	return Condition{Field: field, Op: OpIsNull}
}

// NotNull matches rows whose column is not NULL.
func NotNull(field string) Condition {
	return Condition{Field: field, Op: OpNotNull}
}

// AnyOf groups conditions with OR.
func AnyOf(conds ...Condition) Condition {
	return Condition{Any: conds}
}

// AllOf groups conditions with AND.
func AllOf(conds ...Condition) Condition {
	return Condition{All: conds}
}

// Ordering is one ORDER BY term.
type Ordering struct {
	Field string
	Desc  bool
}

// QueryOptions collects the filters, ordering and windowing for a query.
// Top-level Conditions are joined with AND.
type QueryOptions struct {
	Conditions []Condition
	OrderBy    []Ordering
	Limit      int
	Offset     int

	// IncludeDeleted asks the repository layer to skip its soft-delete
	// filter. Backends ignore it; deleted_at is an ordinary column to them.
	IncludeDeleted bool
}

// QueryOption mutates QueryOptions. Query methods accept them variadically
// so call sites compose filters the way bun criteria compose.
type QueryOption func(*QueryOptions)

// Apply folds the options into a QueryOptions value.
func Apply(opts ...QueryOption) QueryOptions {
	var q QueryOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&q)
		}
	}
	return q
}

// WithConditions appends filter conditions.
func WithConditions(conds ...Condition) QueryOption {
	return func(q *QueryOptions) {
		q.Conditions = append(q.Conditions, conds...)
	}
}

// WithOrder appends an ORDER BY term.
func WithOrder(field string, desc bool) QueryOption {
	return func(q *QueryOptions) {
		q.OrderBy = append(q.OrderBy, Ordering{Field: field, Desc: desc})
	}
}

// WithLimit caps the number of returned rows.
func WithLimit(n int) QueryOption {
	return func(q *QueryOptions) {
		q.Limit = n
	}
}

// WithOffset skips the first n matching rows.
func WithOffset(n int) QueryOption {
	return func(q *QueryOptions) {
		q.Offset = n
	}
}

// WithDeleted includes soft-deleted rows in the result.
func WithDeleted() QueryOption {
	return func(q *QueryOptions) {
		q.IncludeDeleted = true
	}
}

// WithOptions replays an already resolved QueryOptions value, then lets later
// options continue mutating it.
func WithOptions(src QueryOptions) QueryOption {
	return func(q *QueryOptions) {
		q.Conditions = append(q.Conditions, src.Conditions...)
		q.OrderBy = append(q.OrderBy, src.OrderBy...)
		if src.Limit > 0 {
			q.Limit = src.Limit
		}
		if src.Offset > 0 {
			q.Offset = src.Offset
		}
		if src.IncludeDeleted {
			q.IncludeDeleted = true
		}
	}
}
