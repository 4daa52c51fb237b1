package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-repository-engine/pagination"
	"github.com/goliatone/go-repository-engine/repository"
	"github.com/goliatone/go-repository-engine/store"
)

// epsilon bounds the drift tolerated between claimed and computed balances.
var epsilon = decimal.NewFromFloat(0.01)

// recalcBatchSize is the page size RecalculateBalance streams with.
const recalcBatchSize = 200

// Ledger enforces balance continuity over an append-only entry history. It
// exposes no update or delete surface: corrections append adjustment
// entries through CreateAdjustment.
type Ledger struct {
	repo   *repository.Paginated[*Entry]
	logger *slog.Logger
}

type settings struct {
	logger *slog.Logger
}

// Option configures a Ledger.
type Option func(*settings)

// WithLogger sets the logger for drift warnings. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a ledger over a paginated entry repository. The repository
// should carry a TxRunner; without one the continuity check and the insert
// do not run atomically.
func New(repo *repository.Paginated[*Entry], opts ...Option) *Ledger {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return &Ledger{repo: repo, logger: s.logger}
}

// CreateEntry validates the input, checks the claimed balances against the
// entry's signed amount and against the subject's latest entry, then appends
// the entry. Every rejection is a ValidationError and leaves nothing
// persisted. The continuity check and the insert share one transaction
// scope; a subject with no prior entries skips the continuity check, so its
// first entry may open at any balance.
func (l *Ledger) CreateEntry(ctx context.Context, input EntryInput) (*Entry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	delta := input.Amount
	if input.Kind.Sign() < 0 {
		delta = delta.Neg()
	}
	if got := input.BalanceAfter.Sub(input.BalanceBefore); got.Sub(delta).Abs().GreaterThan(epsilon) {
		return nil, repository.NewValidationError(
			"balance delta %s does not match the %s amount %s",
			got, input.Kind, input.Amount,
		)
	}

	var created *Entry
	err := l.repo.InTransaction(ctx, func(txCtx context.Context) error {
		latest, err := l.latest(txCtx, input.SubjectID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			// First entry for the subject, nothing to continue from.
		case err != nil:
			return err
		case latest.BalanceAfter.Sub(input.BalanceBefore).Abs().GreaterThan(epsilon):
			return repository.NewValidationError(
				"balance_before %s does not continue from the latest balance %s",
				input.BalanceBefore, latest.BalanceAfter,
			)
		}

		created, err = l.repo.Create(txCtx, &Entry{
			SubjectID:     input.SubjectID,
			Kind:          input.Kind,
			Amount:        input.Amount,
			BalanceBefore: input.BalanceBefore,
			BalanceAfter:  input.BalanceAfter,
			ReferenceType: input.ReferenceType,
			ReferenceID:   input.ReferenceID,
			Description:   input.Description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateAdjustment appends the sanctioned correction entry: an adjustment
// continuing from the subject's latest balance and moving it by amount,
// which may be negative. The balance read and the append share one
// transaction scope.
func (l *Ledger) CreateAdjustment(ctx context.Context, subject string, amount decimal.Decimal, description string) (*Entry, error) {
	var created *Entry
	err := l.repo.InTransaction(ctx, func(txCtx context.Context) error {
		before, err := l.LatestBalance(txCtx, subject)
		if err != nil {
			return err
		}
		created, err = l.CreateEntry(txCtx, EntryInput{
			SubjectID:     subject,
			Kind:          KindAdjustment,
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  before.Add(amount),
			Description:   description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// LatestBalance returns the subject's current balance: the latest entry's
// BalanceAfter, or zero for a subject with no entries.
func (l *Ledger) LatestBalance(ctx context.Context, subject string) (decimal.Decimal, error) {
	latest, err := l.latest(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return latest.BalanceAfter, nil
}

// RecalculateBalance replays the subject's full history in insertion order
// and returns the signed sum of its amounts. Read-only; it never writes the
// result back. Comparing it with LatestBalance exposes broken chains in
// data that predates the continuity checks.
func (l *Ledger) RecalculateBalance(ctx context.Context, subject string) (decimal.Decimal, error) {
	total := decimal.Zero
	req := pagination.PageRequest{Limit: recalcBatchSize}
	for batch, err := range l.repo.FindStream(ctx, req, subjectFilter(subject)) {
		if err != nil {
			return decimal.Zero, err
		}
		for _, entry := range batch {
			total = total.Add(entry.SignedAmount())
		}
	}
	return total, nil
}

// BalanceReport is the outcome of one ValidateBalance reconciliation.
type BalanceReport struct {
	SubjectID string          `json:"subject_id"`
	Valid     bool            `json:"valid"`
	Expected  decimal.Decimal `json:"expected"`
	Actual    decimal.Decimal `json:"actual"`
	Drift     decimal.Decimal `json:"drift"`
}

// ValidateBalance compares the subject's persisted balance against an
// expectation from another system. Drift beyond epsilon marks the report
// invalid and logs a warning; it is a report, not an error.
func (l *Ledger) ValidateBalance(ctx context.Context, subject string, expected decimal.Decimal) (BalanceReport, error) {
	actual, err := l.LatestBalance(ctx, subject)
	if err != nil {
		return BalanceReport{}, err
	}

	drift := actual.Sub(expected)
	report := BalanceReport{
		SubjectID: subject,
		Valid:     drift.Abs().LessThanOrEqual(epsilon),
		Expected:  expected,
		Actual:    actual,
		Drift:     drift,
	}
	if !report.Valid {
		l.logger.WarnContext(ctx, "ledger balance drift detected",
			"subject_id", subject,
			"expected", expected.String(),
			"actual", actual.String(),
			"drift", drift.String(),
		)
	}
	return report, nil
}

// History returns one cursor page of the subject's entries. Ordering and
// page size follow the request; a statement view would ask for created_at
// descending.
func (l *Ledger) History(ctx context.Context, subject string, req pagination.PageRequest) (pagination.PageResult[*Entry], error) {
	return l.repo.CursorList(ctx, req, subjectFilter(subject))
}

// latest returns the subject's newest entry by creation time.
func (l *Ledger) latest(ctx context.Context, subject string) (*Entry, error) {
	return l.repo.Get(ctx,
		store.WithConditions(store.Eq("subject_id", subject)),
		store.WithOrder("created_at", true),
		store.WithOrder("id", true),
		store.WithLimit(1),
	)
}

func subjectFilter(subject string) store.QueryOption {
	return store.WithConditions(store.Eq("subject_id", subject))
}
