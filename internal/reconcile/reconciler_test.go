package reconcile

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"shareledger/internal/core"
)

func amt(s string) decimal.Decimal { return core.MustAmount(s) }

func expense(paidBy, category, amount string) core.ExpenseRecord {
	return core.ExpenseRecord{Date: "2025-06-01", Category: category, PaidBy: core.Payer(paidBy), Amount: amt(amount)}
}

func contribution(name, amount string, virtual bool) core.ContributionRecord {
	return core.ContributionRecord{Date: "2025-06-01", Name: name, Amount: amt(amount), Virtual: virtual}
}

func assertAmount(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(amt(want)) {
		t.Fatalf("%s = %s, want %s", label, got, want)
	}
}

func TestReconcile_SharedAndDirectPayments(t *testing.T) {
	expenses := []core.ExpenseRecord{
		expense("Both", "Rent", "1200"),
		expense("PersonA", "Groceries", "350"),
		expense("PersonB", "Dining Out", "220"),
	}
	contributions := []core.ContributionRecord{
		contribution("PersonA", "1000", false),
		contribution("PersonB", "1000", false),
	}

	s, err := New().Reconcile("2025-06", expenses, contributions)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	assertAmount(t, "total", s.TotalShared, "1770")
	assertAmount(t, "share", s.Share, "885")
	assertAmount(t, "PersonA contribution", s.Contributions.Get("PersonA"), "1350")
	assertAmount(t, "PersonB contribution", s.Contributions.Get("PersonB"), "1220")
	assertAmount(t, "PersonA balance", s.Balances.Get("PersonA"), "465")
	assertAmount(t, "PersonB balance", s.Balances.Get("PersonB"), "335")
	assertAmount(t, "account balance", s.AccountBalance, "800")
	if s.SplitWays != 2 || s.PlaceholderParticipants {
		t.Fatalf("unexpected split=%d placeholder=%v", s.SplitWays, s.PlaceholderParticipants)
	}
	if !reflect.DeepEqual(s.Participants, []string{"PersonA", "PersonB"}) {
		t.Fatalf("participants = %v", s.Participants)
	}
	if len(s.Expenses) != 3 || len(s.ContributionRecords) != 2 {
		t.Fatalf("raw records not retained")
	}
}

func TestReconcile_VirtualContributions(t *testing.T) {
	s, err := New().Reconcile("2025-07",
		[]core.ExpenseRecord{expense("Both", "Rent", "1000")},
		[]core.ContributionRecord{contribution("Alice", "500", true), contribution("Bob", "1", false)},
	)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if s.Contributions.Has("Alice") || s.VirtualContributions.Has("Bob") {
		t.Fatalf("virtual and real contributions leaked into each other")
	}
	assertAmount(t, "Alice virtual", s.VirtualContributions.Get("Alice"), "500")
	assertAmount(t, "Bob real", s.Contributions.Get("Bob"), "1")
	assertAmount(t, "Alice balance", s.Balances.Get("Alice"), "0")
	assertAmount(t, "Bob balance", s.Balances.Get("Bob"), "-499")
	// virtual credit does not reach the pool
	assertAmount(t, "account balance", s.AccountBalance, "-999")
}

func TestReconcile_NoContributions(t *testing.T) {
	s, err := New().Reconcile("2025-08",
		[]core.ExpenseRecord{expense("Both", "Rent", "900"), expense("Both", "", "100")},
		nil,
	)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if s.Contributions.Len() != 0 || s.VirtualContributions.Len() != 0 {
		t.Fatalf("expected empty ledgers, got %v / %v", s.Contributions.Entries(), s.VirtualContributions.Entries())
	}
	if !s.PlaceholderParticipants || !reflect.DeepEqual(s.Participants, core.DefaultParticipants) {
		t.Fatalf("expected placeholder participants, got %v", s.Participants)
	}
	for _, p := range s.Participants {
		assertAmount(t, p+" balance", s.Balances.Get(p), "-500")
	}
	assertAmount(t, "account balance", s.AccountBalance, "-1000")
}

func TestReconcile_NoContributionsWithPayer(t *testing.T) {
	s, err := New().Reconcile("2025-08",
		[]core.ExpenseRecord{expense("Both", "Rent", "600"), expense("Carol", "Food", "40")},
		[]core.ContributionRecord{},
	)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if s.PlaceholderParticipants || !reflect.DeepEqual(s.Participants, []string{"Carol"}) {
		t.Fatalf("participants = %v", s.Participants)
	}
	assertAmount(t, "Carol balance", s.Balances.Get("Carol"), "-280")
}

func TestReconcile_MissingExpenses(t *testing.T) {
	_, err := New().Reconcile("2025-09", nil, []core.ContributionRecord{contribution("A", "1", false)})
	if !errors.Is(err, core.ErrMissingPeriodData) {
		t.Fatalf("expected ErrMissingPeriodData, got %v", err)
	}
}

func TestReconcile_DirectPaymentAccumulates(t *testing.T) {
	base := []core.ExpenseRecord{expense("Both", "Rent", "100")}
	contribs := []core.ContributionRecord{contribution("Ann", "50", false), contribution("Ann", "25", false)}

	before, err := New().Reconcile("p", base, contribs)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	assertAmount(t, "Ann before", before.Contributions.Get("Ann"), "75")

	after, err := New().Reconcile("p", append(base, expense("Ann", "Food", "30")), contribs)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	assertAmount(t, "Ann after", after.Contributions.Get("Ann"), "105")
}

func TestReconcile_SharedMarkerNeverAKey(t *testing.T) {
	s, err := New().Reconcile("p",
		[]core.ExpenseRecord{expense("Both", "Rent", "10"), expense("both", "Rent", "2")},
		[]core.ContributionRecord{contribution("Both", "5", false), contribution("Both", "5", true)},
	)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	for _, l := range []core.Ledger{s.Contributions, s.VirtualContributions, s.Balances} {
		if l.Has(string(core.PaidByBoth)) {
			t.Fatalf("ledger contains the shared marker: %v", l.Keys())
		}
	}
	// only the exact marker is special
	assertAmount(t, "lowercase payer", s.Contributions.Get("both"), "2")
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	expenses := []core.ExpenseRecord{expense("A", "X", "10")}
	contribs := []core.ContributionRecord{contribution("A", "5", false)}
	s, err := New().Reconcile("p", expenses, contribs)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	s.Expenses[0].Amount = amt("999")
	if !expenses[0].Amount.Equal(amt("10")) {
		t.Fatalf("summary shares backing array with input")
	}
}

func TestReconcile_BalanceIdentity(t *testing.T) {
	cases := []struct {
		name     string
		split    SplitStrategy
		expenses []core.ExpenseRecord
		contribs []core.ContributionRecord
	}{
		{
			name:     "two people",
			split:    FixedSplit{N: 2},
			expenses: []core.ExpenseRecord{expense("Both", "R", "1200"), expense("A", "G", "350.10")},
			contribs: []core.ContributionRecord{contribution("A", "1000", false), contribution("B", "99.99", true)},
		},
		{
			name:     "three people fixed half",
			split:    FixedSplit{N: 2},
			expenses: []core.ExpenseRecord{expense("A", "R", "90"), expense("B", "G", "30"), expense("C", "G", "0.01")},
			contribs: nil,
		},
		{
			name:     "three people per participant",
			split:    PerParticipantSplit{},
			expenses: []core.ExpenseRecord{expense("A", "R", "90"), expense("B", "G", "30"), expense("Both", "G", "60")},
			contribs: []core.ContributionRecord{contribution("C", "10", true)},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(WithSplit(tc.split)).Reconcile("p", tc.expenses, tc.contribs)
			if err != nil {
				t.Fatalf("reconcile: %v", err)
			}
			if !s.Share.Equal(s.TotalShared.Div(decimal.NewFromInt(int64(s.SplitWays)))) {
				t.Fatalf("share %s != total %s / %d", s.Share, s.TotalShared, s.SplitWays)
			}
			n := decimal.NewFromInt(int64(len(s.Participants)))
			want := s.Contributions.Sum().Add(s.VirtualContributions.Sum()).Sub(s.Share.Mul(n))
			if !s.Balances.Sum().Sub(want).Abs().LessThan(amt("0.000001")) {
				t.Fatalf("balance identity broken: sum(balances)=%s want %s", s.Balances.Sum(), want)
			}
		})
	}
}

func TestReconcile_PerParticipantSplit(t *testing.T) {
	s, err := New(WithSplit(PerParticipantSplit{})).Reconcile("p",
		[]core.ExpenseRecord{expense("A", "R", "90"), expense("B", "G", "30"), expense("C", "G", "0")},
		nil,
	)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if s.SplitWays != 3 {
		t.Fatalf("split ways = %d", s.SplitWays)
	}
	assertAmount(t, "share", s.Share, "40")
	if !s.Balances.Sum().IsZero() {
		t.Fatalf("per-participant balances should net to zero, got %s", s.Balances.Sum())
	}
}
