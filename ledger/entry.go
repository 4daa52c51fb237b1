package ledger

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-repository-engine/repository"
)

// TableName is the storage table behind the ledger. Repositories built for
// Entry should take it as their namespace so cache keys and audit events
// name the same table bun writes to.
const TableName = "ledger_entries"

// Kind classifies an entry as a credit, a debit or an adjustment.
type Kind string

const (
	KindDeposit     Kind = "deposit"
	KindWithdrawal  Kind = "withdrawal"
	KindCardFunding Kind = "card_funding"
	KindCardCredit  Kind = "card_credit"
	KindFee         Kind = "fee"
	KindRefund      Kind = "refund"

	// KindAdjustment is the sanctioned correction entry. Its amount carries
	// its own sign; every other kind takes the sign of its classification.
	KindAdjustment Kind = "adjustment"
)

// kindSet feeds the Kind validation rule.
var kindSet = []any{
	KindDeposit, KindWithdrawal, KindCardFunding,
	KindCardCredit, KindFee, KindRefund, KindAdjustment,
}

// Sign returns +1 for credits, -1 for debits and 0 for unknown kinds.
// Adjustments return +1 because their amount is already signed.
func (k Kind) Sign() int {
	switch k {
	case KindDeposit, KindRefund, KindCardCredit, KindAdjustment:
		return 1
	case KindWithdrawal, KindCardFunding, KindFee:
		return -1
	default:
		return 0
	}
}

// IsValid reports whether k names a known entry kind.
func (k Kind) IsValid() bool { return k.Sign() != 0 }

// Entry is one immutable row of a subject's balance history. BalanceBefore
// and BalanceAfter snapshot the balance around the movement, so any slice of
// the history can be audited without replaying from the start.
type Entry struct {
	bun.BaseModel `bun:"table:ledger_entries,alias:le"`
	repository.Model

	SubjectID     string          `bun:"subject_id,notnull" json:"subject_id"`
	Kind          Kind            `bun:"kind,notnull" json:"kind"`
	Amount        decimal.Decimal `bun:"amount,notnull,type:numeric" json:"amount"`
	BalanceBefore decimal.Decimal `bun:"balance_before,notnull,type:numeric" json:"balance_before"`
	BalanceAfter  decimal.Decimal `bun:"balance_after,notnull,type:numeric" json:"balance_after"`
	ReferenceType string          `bun:"reference_type" json:"reference_type,omitempty"`
	ReferenceID   string          `bun:"reference_id" json:"reference_id,omitempty"`
	Description   string          `bun:"description" json:"description,omitempty"`
}

// SignedAmount is the entry's effect on the balance: the amount for credits
// and adjustments, negated for debits.
func (e *Entry) SignedAmount() decimal.Decimal {
	if e.Kind.Sign() < 0 {
		return e.Amount.Neg()
	}
	return e.Amount
}

// EntryInput describes one prospective entry. The balances are the caller's
// claim; CreateEntry verifies them against the signed amount and the
// subject's persisted history before anything is written.
type EntryInput struct {
	SubjectID     string
	Kind          Kind
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	ReferenceType string
	ReferenceID   string
	Description   string
}

// Validate applies the field-level rules. The amount must be non-negative
// for every kind except adjustment, which carries its sign in the amount.
func (in EntryInput) Validate() error {
	return validationError(validation.ValidateStruct(&in,
		validation.Field(&in.SubjectID, validation.Required),
		validation.Field(&in.Kind, validation.Required, validation.In(kindSet...)),
		validation.Field(&in.Amount, validation.When(in.Kind != KindAdjustment, validation.By(nonNegativeAmount))),
	))
}

func nonNegativeAmount(value any) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal amount")
	}
	if amount.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

// validationError converts ozzo's error shape into the engine's typed
// ValidationError so callers branch on repository.ErrValidation alone.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		out := make(map[string]string, len(fields))
		for name, ferr := range fields {
			out[name] = ferr.Error()
		}
		return &repository.ValidationError{Message: "invalid ledger entry", Fields: out}
	}
	return repository.NewValidationError("invalid ledger entry: %v", err)
}
