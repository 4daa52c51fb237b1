package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-repository-engine/pagination"
	"github.com/goliatone/go-repository-engine/repository"
	"github.com/goliatone/go-repository-engine/store/memstore"
)

var testBase = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// fakeClock hands out strictly increasing timestamps, one second apart.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: testBase} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// idSequence hands out deterministic IDs.
type idSequence struct {
	mu sync.Mutex
	n  int
}

func (s *idSequence) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("entry-%03d", s.n)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()

	db := memstore.NewDB()
	st := memstore.NewWithTable[*Entry](db, TableName)
	seq := &idSequence{}
	base := repository.New[*Entry](st,
		repository.WithTxRunner(db),
		repository.WithNamespace(TableName),
		repository.WithClock(newFakeClock().Now),
		repository.WithIDFunc(seq.next),
	)
	return New(repository.NewPaginated[*Entry](base), opts...)
}

func mustCreate(t *testing.T, l *Ledger, in EntryInput) *Entry {
	t.Helper()
	entry, err := l.CreateEntry(context.Background(), in)
	if err != nil {
		t.Fatalf("create entry %s %s: %v", in.Kind, in.Amount, err)
	}
	return entry
}

func TestKind_Sign(t *testing.T) {
	tests := []struct {
		kind Kind
		sign int
	}{
		{KindDeposit, 1},
		{KindRefund, 1},
		{KindCardCredit, 1},
		{KindAdjustment, 1},
		{KindWithdrawal, -1},
		{KindCardFunding, -1},
		{KindFee, -1},
		{Kind("bogus"), 0},
		{Kind(""), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Sign(); got != tt.sign {
				t.Errorf("Sign(%q) = %d, want %d", tt.kind, got, tt.sign)
			}
			if tt.kind.IsValid() != (tt.sign != 0) {
				t.Errorf("IsValid(%q) disagrees with Sign", tt.kind)
			}
		})
	}
}

func TestEntry_SignedAmount(t *testing.T) {
	credit := &Entry{Kind: KindDeposit, Amount: dec("100")}
	if !credit.SignedAmount().Equal(dec("100")) {
		t.Errorf("deposit signed amount = %s, want 100", credit.SignedAmount())
	}

	debit := &Entry{Kind: KindFee, Amount: dec("7.25")}
	if !debit.SignedAmount().Equal(dec("-7.25")) {
		t.Errorf("fee signed amount = %s, want -7.25", debit.SignedAmount())
	}

	adjustment := &Entry{Kind: KindAdjustment, Amount: dec("-12.50")}
	if !adjustment.SignedAmount().Equal(dec("-12.50")) {
		t.Errorf("adjustment signed amount = %s, want -12.50", adjustment.SignedAmount())
	}
}

func TestEntryInput_Validate(t *testing.T) {
	valid := EntryInput{
		SubjectID:     "acc-1",
		Kind:          KindDeposit,
		Amount:        dec("100"),
		BalanceBefore: dec("0"),
		BalanceAfter:  dec("100"),
	}

	tests := []struct {
		name      string
		mutate    func(*EntryInput)
		wantField string
	}{
		{
			name:   "valid input",
			mutate: func(in *EntryInput) {},
		},
		{
			name:      "missing subject",
			mutate:    func(in *EntryInput) { in.SubjectID = "" },
			wantField: "SubjectID",
		},
		{
			name:      "missing kind",
			mutate:    func(in *EntryInput) { in.Kind = "" },
			wantField: "Kind",
		},
		{
			name:      "unknown kind",
			mutate:    func(in *EntryInput) { in.Kind = "chargeback" },
			wantField: "Kind",
		},
		{
			name:      "negative deposit amount",
			mutate:    func(in *EntryInput) { in.Amount = dec("-5") },
			wantField: "Amount",
		},
		{
			name: "negative adjustment amount is allowed",
			mutate: func(in *EntryInput) {
				in.Kind = KindAdjustment
				in.Amount = dec("-5")
				in.BalanceAfter = dec("-5")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			err := in.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid input, got %v", err)
				}
				return
			}

			if !errors.Is(err, repository.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var verr *repository.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if _, ok := verr.Fields[tt.wantField]; !ok {
				t.Errorf("expected field %q in %v", tt.wantField, verr.Fields)
			}
		})
	}
}

func TestCreateEntry_FirstEntryOpensAnywhere(t *testing.T) {
	l := newTestLedger(t)

	entry := mustCreate(t, l, EntryInput{
		SubjectID:     "acc-1",
		Kind:          KindDeposit,
		Amount:        dec("500"),
		BalanceBefore: dec("250"),
		BalanceAfter:  dec("750"),
	})

	if entry.ID == "" {
		t.Error("expected an assigned entry id")
	}
	if !entry.BalanceAfter.Equal(dec("750")) {
		t.Errorf("unexpected balance after: %s", entry.BalanceAfter)
	}

	balance, err := l.LatestBalance(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("latest balance: %v", err)
	}
	if !balance.Equal(dec("750")) {
		t.Errorf("latest balance = %s, want 750", balance)
	}
}

func TestCreateEntry_ContinuityChain(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	mustCreate(t, l, EntryInput{SubjectID: "acc-1", Kind: KindDeposit, Amount: dec("500"), BalanceBefore: dec("0"), BalanceAfter: dec("500")})
	mustCreate(t, l, EntryInput{SubjectID: "acc-1", Kind: KindWithdrawal, Amount: dec("100"), BalanceBefore: dec("500"), BalanceAfter: dec("400")})
	mustCreate(t, l, EntryInput{SubjectID: "acc-1", Kind: KindFee, Amount: dec("10"), BalanceBefore: dec("400"), BalanceAfter: dec("390")})
	mustCreate(t, l, EntryInput{SubjectID: "acc-1", Kind: KindRefund, Amount: dec("25"), BalanceBefore: dec("390"), BalanceAfter: dec("415")})

	_, err := l.CreateEntry(ctx, EntryInput{
		SubjectID:     "acc-1",
		Kind:          KindDeposit,
		Amount:        dec("50"),
		BalanceBefore: dec("450"),
		BalanceAfter:  dec("500"),
	})
	if !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected continuity rejection, got %v", err)
	}
	if !strings.Contains(err.Error(), "does not continue") {
		t.Errorf("unexpected rejection message: %v", err)
	}

	balance, err := l.LatestBalance(ctx, "acc-1")
	if err != nil {
		t.Fatalf("latest balance: %v", err)
	}
	if !balance.Equal(dec("415")) {
		t.Errorf("rejected entry must not move the balance, got %s", balance)
	}

	page, err := l.History(ctx, "acc-1", pagination.PageRequest{Limit: 10})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page.Data) != 4 {
		t.Errorf("expected 4 persisted entries, got %d", len(page.Data))
	}
}

func TestCreateEntry_SubjectsChainIndependently(t *testing.T) {
	l := newTestLedger(t)

	mustCreate(t, l, EntryInput{SubjectID: "acc-1", Kind: KindDeposit, Amount: dec("500"), BalanceBefore: dec("0"), BalanceAfter: dec("500")})
	mustCreate(t, l, EntryInput{SubjectID: "acc-2", Kind: KindDeposit, Amount: dec("40"), BalanceBefore: dec("0"), BalanceAfter: dec("40")})
	mustCreate(t, l, EntryInput{SubjectID: "acc-1", Kind: KindWithdrawal, Amount: dec("100"), BalanceBefore: dec("500"), BalanceAfter: dec("400")})

	for subject, want := range map[string]string{"acc-1": "400", "acc-2": "40"} {
		balance, err := l.LatestBalance(context.Background(), subject)
		if err != nil {
			t.Fatalf("latest balance %s: %v", subject, err)
		}
		if !balance.Equal(dec(want)) {
			t.Errorf("balance[%s] = %s, want %s", subject, balance, want)
		}
	}
}

func TestCreateEntry_DeltaMismatch(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.CreateEntry(context.Background(), EntryInput{
		SubjectID:     "acc-1",
		Kind:          KindDeposit,
		Amount:        dec("100"),
		BalanceBefore: dec("0"),
		BalanceAfter:  dec("90"),
	})
	if !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected delta rejection, got %v", err)
	}
	if !strings.Contains(err.Error(), "does not match") {
		t.Errorf("unexpected rejection message: %v", err)
	}

	balance, err := l.LatestBalance(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("latest balance: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("nothing should persist on rejection, balance %s", balance)
	}
}

func TestCreateEntry_EpsilonBoundary(t *testing.T) {
	tests := []struct {
		name    string
		after   string
		wantErr bool
	}{
		{name: "drift at epsilon is accepted", after: "100.01", wantErr: false},
		{name: "drift beyond epsilon is rejected", after: "100.02", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)

			_, err := l.CreateEntry(context.Background(), EntryInput{
				SubjectID:     "acc-1",
				Kind:          KindDeposit,
				Amount:        dec("100"),
				BalanceBefore: dec("0"),
				BalanceAfter:  dec(tt.after),
			})
			if tt.wantErr && !errors.Is(err, repository.ErrValidation) {
				t.Errorf("expected rejection, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected acceptance, got %v", err)
			}
		})
	}
}

// TestFundThenFreeze walks the card-funding scenario: the card row moves
// through an optimistic-lock update while the ledger accepts the funding
// debit and then rejects an entry that skipped ahead of the chain.
func TestFundThenFreeze(t *testing.T) {
	type cardAccount struct {
		repository.Model

		SpendingLimit int64 `bun:"spending_limit" json:"spending_limit"`
	}

	db := memstore.NewDB()
	cards := repository.New[*cardAccount](memstore.New[*cardAccount](db), repository.WithTxRunner(db))
	entries := repository.New[*Entry](memstore.NewWithTable[*Entry](db, TableName),
		repository.WithTxRunner(db),
		repository.WithNamespace(TableName),
		repository.WithClock(newFakeClock().Now),
	)
	l := New(repository.NewPaginated[*Entry](entries))
	ctx := context.Background()

	card, err := cards.Create(ctx, &cardAccount{SpendingLimit: 500})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if card.Version != 0 {
		t.Fatalf("expected version 0 on create, got %d", card.Version)
	}

	card.SpendingLimit = 400
	card, err = cards.Update(ctx, card)
	if err != nil {
		t.Fatalf("update card: %v", err)
	}
	if card.Version != 1 {
		t.Errorf("expected version 1 after update, got %d", card.Version)
	}

	mustCreate(t, l, EntryInput{
		SubjectID:     card.ID,
		Kind:          KindCardFunding,
		Amount:        dec("100"),
		BalanceBefore: dec("500"),
		BalanceAfter:  dec("400"),
		ReferenceType: "card",
		ReferenceID:   card.ID,
	})

	_, err = l.CreateEntry(ctx, EntryInput{
		SubjectID:     card.ID,
		Kind:          KindFee,
		Amount:        dec("10"),
		BalanceBefore: dec("450"),
		BalanceAfter:  dec("440"),
	})
	if !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected continuity rejection after funding, got %v", err)
	}

	balance, err := l.LatestBalance(ctx, card.ID)
	if err != nil {
		t.Fatalf("latest balance: %v", err)
	}
	if !balance.Equal(dec("400")) {
		t.Errorf("balance = %s, want 400", balance)
	}
}

func TestCreateAdjustment(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	mustCreate(t, l, EntryInput{SubjectID: "acc-1", Kind: KindDeposit, Amount: dec("500"), BalanceBefore: dec("0"), BalanceAfter: dec("500")})

	entry, err := l.CreateAdjustment(ctx, "acc-1", dec("-85.50"), "reconciliation drift")
	if err != nil {
		t.Fatalf("create adjustment: %v", err)
	}
	if entry.Kind != KindAdjustment {
		t.Errorf("expected adjustment kind, got %s", entry.Kind)
	}
	if !entry.BalanceBefore.Equal(dec("500")) || !entry.BalanceAfter.Equal(dec("414.50")) {
		t.Errorf("unexpected balances: %s -> %s", entry.BalanceBefore, entry.BalanceAfter)
	}

	balance, err := l.LatestBalance(ctx, "acc-1")
	if err != nil {
		t.Fatalf("latest balance: %v", err)
	}
	if !balance.Equal(dec("414.50")) {
		t.Errorf("balance = %s, want 414.50", balance)
	}
}

func TestCreateAdjustment_EmptySubjectOpensAtZero(t *testing.T) {
	l := newTestLedger(t)

	entry, err := l.CreateAdjustment(context.Background(), "acc-9", dec("12.75"), "opening correction")
	if err != nil {
		t.Fatalf("create adjustment: %v", err)
	}
	if !entry.BalanceBefore.IsZero() || !entry.BalanceAfter.Equal(dec("12.75")) {
		t.Errorf("unexpected balances: %s -> %s", entry.BalanceBefore, entry.BalanceAfter)
	}
}

func TestLatestBalance_EmptySubject(t *testing.T) {
	l := newTestLedger(t)

	balance, err := l.LatestBalance(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("latest balance: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("expected zero balance, got %s", balance)
	}
}

func TestRecalculateBalance_MatchesChain(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	mustCreate(t, l, EntryInput{SubjectID: "acc-1", Kind: KindDeposit, Amount: dec("500"), BalanceBefore: dec("0"), BalanceAfter: dec("500")})
	mustCreate(t, l, EntryInput{SubjectID: "acc-1", Kind: KindCardFunding, Amount: dec("120"), BalanceBefore: dec("500"), BalanceAfter: dec("380")})
	mustCreate(t, l, EntryInput{SubjectID: "acc-1", Kind: KindFee, Amount: dec("2.50"), BalanceBefore: dec("380"), BalanceAfter: dec("377.50")})
	if _, err := l.CreateAdjustment(ctx, "acc-1", dec("-0.25"), "rounding"); err != nil {
		t.Fatalf("adjustment: %v", err)
	}

	recalculated, err := l.RecalculateBalance(ctx, "acc-1")
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	latest, err := l.LatestBalance(ctx, "acc-1")
	if err != nil {
		t.Fatalf("latest balance: %v", err)
	}

	if !recalculated.Equal(dec("377.25")) {
		t.Errorf("recalculated = %s, want 377.25", recalculated)
	}
	if !recalculated.Equal(latest) {
		t.Errorf("replay %s disagrees with latest %s", recalculated, latest)
	}
}

func TestRecalculateBalance_EmptySubject(t *testing.T) {
	l := newTestLedger(t)

	total, err := l.RecalculateBalance(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if !total.IsZero() {
		t.Errorf("expected zero replay, got %s", total)
	}
}

func TestValidateBalance(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	l := newTestLedger(t, WithLogger(logger))
	ctx := context.Background()

	mustCreate(t, l, EntryInput{SubjectID: "acc-1", Kind: KindDeposit, Amount: dec("415"), BalanceBefore: dec("0"), BalanceAfter: dec("415")})

	report, err := l.ValidateBalance(ctx, "acc-1", dec("415"))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.Valid || !report.Drift.IsZero() {
		t.Errorf("expected a clean report, got %+v", report)
	}
	if buf.Len() != 0 {
		t.Errorf("clean report should not warn, logs: %s", buf.String())
	}

	report, err = l.ValidateBalance(ctx, "acc-1", dec("500"))
	if err != nil {
		t.Fatalf("validate with drift: %v", err)
	}
	if report.Valid {
		t.Error("expected an invalid report")
	}
	if !report.Drift.Equal(dec("-85")) {
		t.Errorf("drift = %s, want -85", report.Drift)
	}
	if !strings.Contains(buf.String(), "ledger balance drift detected") {
		t.Errorf("expected a drift warning, logs: %s", buf.String())
	}
}

func TestHistory_Pages(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	balance := dec("0")
	for i := 0; i < 5; i++ {
		amount := dec("10")
		mustCreate(t, l, EntryInput{
			SubjectID:     "acc-1",
			Kind:          KindDeposit,
			Amount:        amount,
			BalanceBefore: balance,
			BalanceAfter:  balance.Add(amount),
		})
		balance = balance.Add(amount)
	}
	mustCreate(t, l, EntryInput{SubjectID: "acc-2", Kind: KindDeposit, Amount: dec("1"), BalanceBefore: dec("0"), BalanceAfter: dec("1")})

	seen := map[string]bool{}
	req := pagination.PageRequest{Limit: 2}
	pages := 0
	for {
		page, err := l.History(ctx, "acc-1", req)
		if err != nil {
			t.Fatalf("history page %d: %v", pages, err)
		}
		pages++
		for _, entry := range page.Data {
			if entry.SubjectID != "acc-1" {
				t.Errorf("foreign entry %s in history", entry.ID)
			}
			if seen[entry.ID] {
				t.Errorf("duplicate entry %s across pages", entry.ID)
			}
			seen[entry.ID] = true
		}
		if !page.PageInfo.HasNextPage {
			break
		}
		req.Cursor = page.PageInfo.EndCursor
	}

	if len(seen) != 5 {
		t.Errorf("expected 5 entries across pages, got %d", len(seen))
	}
	if pages != 3 {
		t.Errorf("expected 3 pages of 2, got %d", pages)
	}
}
