package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-repository-engine/internal/fieldref"
	"github.com/goliatone/go-repository-engine/store"
)

// Interface assertion to ensure Base implements Repository[T].
var _ Repository[store.Record] = (*Base[store.Record])(nil)

// Repository is the engine's base contract: CRUD with optimistic
// concurrency, soft deletes and typed errors. Implementations never leak
// raw driver errors; every failure is a NotFoundError, VersionConflictError,
// ValidationError or StoreError.
type Repository[T store.Record] interface {
	Create(ctx context.Context, rec T) (T, error)
	GetByID(ctx context.Context, id string) (T, error)
	Get(ctx context.Context, opts ...store.QueryOption) (T, error)
	Find(ctx context.Context, opts ...store.QueryOption) ([]T, error)
	List(ctx context.Context, opts ...store.QueryOption) ([]T, int, error)
	Count(ctx context.Context, opts ...store.QueryOption) (int, error)
	Update(ctx context.Context, rec T) (T, error)
	Delete(ctx context.Context, rec T) error
	ForceDelete(ctx context.Context, rec T) error
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Namespace() string
}

// settings are shared by Base and Paginated so both use the same Option
// functions.
type settings struct {
	logger    *slog.Logger
	hook      AuditHook
	monitor   QueryMonitor
	tx        store.TxRunner
	namespace string
	newID     func() string
	now       func() time.Time
}

// Option configures a repository.
type Option func(*settings)

// WithLogger sets the logger for engine warnings. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditHook wires the audit collaborator called after every mutation.
func WithAuditHook(hook AuditHook) Option {
	return func(s *settings) {
		if hook != nil {
			s.hook = hook
		}
	}
}

// WithQueryMonitor wires the performance monitor.
func WithQueryMonitor(monitor QueryMonitor) Option {
	return func(s *settings) {
		if monitor != nil {
			s.monitor = monitor
		}
	}
}

// WithTxRunner wires the transaction scope used by InTransaction. Without
// one, InTransaction runs its body directly and atomicity is lost.
func WithTxRunner(tx store.TxRunner) Option {
	return func(s *settings) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// WithNamespace overrides the namespace derived from the record type.
func WithNamespace(namespace string) Option {
	return func(s *settings) {
		if namespace != "" {
			s.namespace = namespace
		}
	}
}

// WithIDFunc overrides the ID generator used when Create receives a record
// without an ID. Defaults to UUID v4.
func WithIDFunc(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock overrides the timestamp source, for tests.
func WithClock(fn func() time.Time) Option {
	return func(s *settings) {
		if fn != nil {
			s.now = fn
		}
	}
}

// Base is the store-backed repository implementation.
type Base[T store.Record] struct {
	store store.Store[T]
	settings
}

// New builds a repository over a store. The namespace defaults to the
// pluralized snake-case record type name, matching the table name bun
// derives for the same model.
func New[T store.Record](st store.Store[T], opts ...Option) *Base[T] {
	s := settings{
		logger:    slog.Default(),
		hook:      NopAuditHook{},
		monitor:   NopQueryMonitor{},
		namespace: fieldref.TableNameOf[T](),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return &Base[T]{store: st, settings: s}
}

// Namespace returns the repository's logical collection name. Cache keys and
// audit events are scoped by it.
func (r *Base[T]) Namespace() string { return r.namespace }

// Create persists a new record. An empty ID is assigned from the ID
// generator, the version always starts at 0 and both timestamps are stamped.
func (r *Base[T]) Create(ctx context.Context, rec T) (T, error) {
	start := time.Now()
	var zero T

	if rec.RecordID() == "" {
		rec.SetRecordID(r.newID())
	}
	rec.SetRecordVersion(0)
	now := r.now()
	rec.StampCreated(now)
	rec.StampUpdated(now)

	if err := r.store.Insert(ctx, rec); err != nil {
		err = r.storeErr("Create", err)
		r.observe(ctx, "Create", start, err, nil)
		return zero, err
	}

	r.audit(ctx, AuditEvent{Action: ActionCreate, RecordID: rec.RecordID(), After: rec})
	r.observe(ctx, "Create", start, nil, nil)
	return rec, nil
}

// GetByID fetches one live record by ID.
func (r *Base[T]) GetByID(ctx context.Context, id string) (T, error) {
	start := time.Now()
	rec, err := r.fetchByID(ctx, "GetByID", id, false)
	r.observe(ctx, "GetByID", start, err, nil)
	return rec, err
}

// Get fetches the first record matching the options.
func (r *Base[T]) Get(ctx context.Context, opts ...store.QueryOption) (T, error) {
	start := time.Now()
	var zero T

	q := r.readOptions(opts)
	rec, err := r.store.SelectOne(ctx, q)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			err = &NotFoundError{Namespace: r.namespace}
		} else {
			err = r.storeErr("Get", err)
		}
		r.observe(ctx, "Get", start, err, queryFilters(q))
		return zero, err
	}
	r.observe(ctx, "Get", start, nil, queryFilters(q))
	return rec, nil
}

// Find fetches every record matching the options, without a total count.
func (r *Base[T]) Find(ctx context.Context, opts ...store.QueryOption) ([]T, error) {
	start := time.Now()

	q := r.readOptions(opts)
	rows, err := r.store.Select(ctx, q)
	if err != nil {
		err = r.storeErr("Find", err)
		r.observe(ctx, "Find", start, err, queryFilters(q))
		return nil, err
	}
	r.observe(ctx, "Find", start, nil, queryFilters(q))
	return rows, nil
}

// List fetches matching records plus the total match count ignoring the
// window, for offset-style pagination.
func (r *Base[T]) List(ctx context.Context, opts ...store.QueryOption) ([]T, int, error) {
	start := time.Now()

	q := r.readOptions(opts)
	rows, err := r.store.Select(ctx, q)
	if err != nil {
		err = r.storeErr("List", err)
		r.observe(ctx, "List", start, err, queryFilters(q))
		return nil, 0, err
	}
	total, err := r.store.Count(ctx, q)
	if err != nil {
		err = r.storeErr("List", err)
		r.observe(ctx, "List", start, err, queryFilters(q))
		return nil, 0, err
	}
	r.observe(ctx, "List", start, nil, queryFilters(q))
	return rows, total, nil
}

// Count returns the number of records matching the options.
func (r *Base[T]) Count(ctx context.Context, opts ...store.QueryOption) (int, error) {
	start := time.Now()

	q := r.readOptions(opts)
	n, err := r.store.Count(ctx, q)
	if err != nil {
		err = r.storeErr("Count", err)
		r.observe(ctx, "Count", start, err, queryFilters(q))
		return 0, err
	}
	r.observe(ctx, "Count", start, nil, queryFilters(q))
	return n, nil
}

// Update persists the record conditioned on rec.Version still being the
// stored version, and stamps version+1 on success. A lost race surfaces as
// VersionConflictError; the engine never retries on the caller's behalf, so
// the caller re-reads and reapplies its change.
func (r *Base[T]) Update(ctx context.Context, rec T) (T, error) {
	start := time.Now()
	var zero T

	id := rec.RecordID()
	if id == "" {
		err := NewValidationError("update requires a record id")
		r.observe(ctx, "Update", start, err, nil)
		return zero, err
	}

	before, err := r.fetchByID(ctx, "Update", id, false)
	if err != nil {
		r.observe(ctx, "Update", start, err, nil)
		return zero, err
	}

	expected := rec.RecordVersion()
	if got := before.RecordVersion(); got != expected {
		err := &VersionConflictError{Namespace: r.namespace, ID: id, Expected: expected, Actual: got}
		r.observe(ctx, "Update", start, err, nil)
		return zero, err
	}

	prevUpdated := stampOf(rec)
	rec.SetRecordVersion(expected + 1)
	rec.StampUpdated(r.now())

	if err := r.casWrite(ctx, "Update", rec, expected); err != nil {
		rec.SetRecordVersion(expected)
		rec.StampUpdated(prevUpdated)
		r.observe(ctx, "Update", start, err, nil)
		return zero, err
	}

	r.audit(ctx, AuditEvent{Action: ActionUpdate, RecordID: id, Before: before, After: rec})
	r.observe(ctx, "Update", start, nil, nil)
	return rec, nil
}

// Delete soft-deletes the record through the same version-conditioned write
// as Update, so concurrent edits surface as VersionConflictError instead of
// silently vanishing.
func (r *Base[T]) Delete(ctx context.Context, rec T) error {
	start := time.Now()

	id := rec.RecordID()
	if id == "" {
		err := NewValidationError("delete requires a record id")
		r.observe(ctx, "Delete", start, err, nil)
		return err
	}

	current, err := r.fetchByID(ctx, "Delete", id, false)
	if err != nil {
		r.observe(ctx, "Delete", start, err, nil)
		return err
	}

	expected := rec.RecordVersion()
	if got := current.RecordVersion(); got != expected {
		err := &VersionConflictError{Namespace: r.namespace, ID: id, Expected: expected, Actual: got}
		r.observe(ctx, "Delete", start, err, nil)
		return err
	}

	before := fieldref.Clone(current)
	now := r.now()
	deletedAt := now
	current.SetRecordVersion(expected + 1)
	current.StampUpdated(now)
	current.SetRecordDeletedAt(&deletedAt)

	if err := r.casWrite(ctx, "Delete", current, expected); err != nil {
		r.observe(ctx, "Delete", start, err, nil)
		return err
	}

	r.audit(ctx, AuditEvent{Action: ActionDelete, RecordID: id, Before: before, After: current})
	r.observe(ctx, "Delete", start, nil, nil)
	return nil
}

// ForceDelete removes the row outright, soft-deleted or not. It is the
// escape hatch for retention cleanup; everything else goes through Delete.
func (r *Base[T]) ForceDelete(ctx context.Context, rec T) error {
	start := time.Now()

	id := rec.RecordID()
	if id == "" {
		err := NewValidationError("force delete requires a record id")
		r.observe(ctx, "ForceDelete", start, err, nil)
		return err
	}

	before, err := r.fetchByID(ctx, "ForceDelete", id, true)
	if err != nil {
		r.observe(ctx, "ForceDelete", start, err, nil)
		return err
	}

	if err := r.store.Delete(ctx, rec); err != nil {
		err = r.storeErr("ForceDelete", err)
		r.observe(ctx, "ForceDelete", start, err, nil)
		return err
	}

	r.audit(ctx, AuditEvent{Action: ActionForceDelete, RecordID: id, Before: before})
	r.observe(ctx, "ForceDelete", start, nil, nil)
	return nil
}

// InTransaction runs fn inside a transaction scope: commit on nil, rollback
// on error with the original error returned. Nested calls join the outer
// scope. Without a configured TxRunner, fn runs directly.
func (r *Base[T]) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.tx == nil {
		return fn(ctx)
	}
	return r.tx.RunInTx(ctx, fn)
}

// fetchByID is the shared read path: no monitoring, typed errors only.
func (r *Base[T]) fetchByID(ctx context.Context, op, id string, includeDeleted bool) (T, error) {
	var zero T

	conds := []store.Condition{store.Eq("id", id)}
	if !includeDeleted {
		conds = append(conds, store.IsNull("deleted_at"))
	}

	rec, err := r.store.SelectOne(ctx, store.QueryOptions{Conditions: conds, Limit: 1})
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return zero, &NotFoundError{Namespace: r.namespace, ID: id}
		}
		return zero, r.storeErr(op, err)
	}
	return rec, nil
}

// casWrite performs the version-conditioned write and maps a zero-row
// outcome to VersionConflictError or NotFoundError depending on whether the
// row still exists.
func (r *Base[T]) casWrite(ctx context.Context, op string, rec T, expected int64) error {
	id := rec.RecordID()
	q := store.QueryOptions{Conditions: []store.Condition{
		store.Eq("id", id),
		store.Eq("version", expected),
	}}

	affected, err := r.store.Update(ctx, rec, q)
	if err != nil {
		return r.storeErr(op, err)
	}
	if affected > 0 {
		return nil
	}

	latest, err := r.fetchByID(ctx, op, id, true)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return &NotFoundError{Namespace: r.namespace, ID: id}
		}
		return err
	}
	return &VersionConflictError{
		Namespace: r.namespace,
		ID:        id,
		Expected:  expected,
		Actual:    latest.RecordVersion(),
	}
}

// readOptions resolves query options and appends the soft-delete filter
// unless the caller asked for deleted rows.
func (r *Base[T]) readOptions(opts []store.QueryOption) store.QueryOptions {
	q := store.Apply(opts...)
	if !q.IncludeDeleted {
		q.Conditions = append(q.Conditions, store.IsNull("deleted_at"))
	}
	return q
}

func (r *Base[T]) storeErr(op string, err error) error {
	return &StoreError{Namespace: r.namespace, Op: op, Err: err}
}

func (r *Base[T]) audit(ctx context.Context, event AuditEvent) {
	event.Namespace = r.namespace
	event.ActorID = Actor(ctx)
	if err := r.hook.RecordEvent(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "audit hook failed",
			"namespace", r.namespace,
			"action", event.Action,
			"record_id", event.RecordID,
			"error", err,
		)
	}
}

func (r *Base[T]) observe(ctx context.Context, op string, start time.Time, err error, filters map[string]any) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	r.monitor.ObserveQuery(ctx, QueryStats{
		Namespace:     r.namespace,
		Operation:     op,
		CorrelationID: CorrelationID(ctx),
		Outcome:       outcome,
		Duration:      time.Since(start),
		Filters:       filters,
	})
}

// stampOf reads the record's current UpdatedAt through the store contract,
// so Update can restore it when the write fails.
func stampOf(rec store.Record) time.Time {
	if v, ok := fieldref.Value(rec, "updated_at"); ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// queryFilters summarizes resolved options for monitor reports.
func queryFilters(q store.QueryOptions) map[string]any {
	f := make(map[string]any)
	if len(q.Conditions) > 0 {
		f["conditions"] = len(q.Conditions)
	}
	if q.Limit > 0 {
		f["limit"] = q.Limit
	}
	if q.Offset > 0 {
		f["offset"] = q.Offset
	}
	if q.IncludeDeleted {
		f["include_deleted"] = true
	}
	if len(f) == 0 {
		return nil
	}
	return f
}
