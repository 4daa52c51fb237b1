// Package ledger records balance-affecting events as an append-only chain
// of entries per subject.
//
// Every entry snapshots the balance before and after the event alongside
// the amount that moved. Entries are never updated or deleted once written,
// so the chain doubles as an audit trail. Mistakes are corrected by
// appending an adjustment entry that carries its own sign.
//
// # Entry Kinds
//
// Each entry names one of a fixed set of kinds. The kind decides how the
// amount moves the balance:
//
//   - Credits (deposit, refund, card_credit) increase the balance and the
//     amount must be non-negative.
//   - Debits (withdrawal, card_funding, fee) decrease the balance and the
//     amount must be non-negative.
//   - Adjustments carry their own sign. A negative adjustment lowers the
//     balance, a positive one raises it.
//
// # Recording Entries
//
// CreateEntry validates the input, checks the arithmetic, and checks that
// the entry continues the subject's chain, all inside one transaction with
// the insert:
//
//	l := ledger.New(repository.NewPaginated[*ledger.Entry](entries))
//
//	entry, err := l.CreateEntry(ctx, ledger.EntryInput{
//		SubjectID:     account.ID,
//		Kind:          ledger.KindDeposit,
//		Amount:        decimal.NewFromInt(500),
//		BalanceBefore: decimal.Zero,
//		BalanceAfter:  decimal.NewFromInt(500),
//	})
//
// Two checks guard the chain. The delta check requires balance_after minus
// balance_before to equal the signed amount. The continuity check requires
// balance_before to equal the balance_after of the subject's latest entry.
// The first entry for a subject may open at any balance. Both checks
// tolerate drift up to 0.01 to absorb rounding differences from upstream
// systems; a failed check returns a ValidationError and persists nothing.
//
// # Balances and Reconciliation
//
// LatestBalance reads the balance_after of the newest entry, or zero when
// the subject has no entries. RecalculateBalance replays the full chain
// through a stream and sums the signed amounts, which exposes corruption
// in chains written before the continuity checks existed. ValidateBalance
// compares the ledger against an external expectation and reports the
// drift, logging a warning when it exceeds the tolerance:
//
//	report, err := l.ValidateBalance(ctx, account.ID, balanceFromProcessor)
//	if err == nil && !report.Valid {
//		// report.Drift carries the signed difference
//	}
//
// # History
//
// History pages through a subject's entries with cursor pagination, oldest
// first by default:
//
//	page, err := l.History(ctx, account.ID, pagination.PageRequest{Limit: 50})
//
// Follow page.PageInfo.EndCursor to walk the rest of the chain.
package ledger
