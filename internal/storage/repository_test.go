package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"shareledger/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "shareledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	expenses := []core.ExpenseRecord{
		{Date: "2025-06-01", Category: "Rent", PaidBy: core.PaidByBoth, Amount: core.MustAmount("1200")},
		{Date: "2025-06-03", Category: "Groceries", PaidBy: "PersonA", Amount: core.MustAmount("350.55"), Notes: "weekly"},
	}
	for _, e := range expenses {
		if _, err := repo.AppendExpense(ctx, "2025-06", e); err != nil {
			t.Fatalf("append expense: %v", err)
		}
	}
	if _, err := repo.AppendExpense(ctx, "2025-05", expenses[0]); err != nil {
		t.Fatalf("append expense: %v", err)
	}
	ref, err := repo.AppendContribution(ctx, "2025-06", core.ContributionRecord{
		Date: "2025-06-01", Name: "PersonB", Amount: core.MustAmount("500"), Virtual: true,
	})
	if err != nil || ref == "" {
		t.Fatalf("append contribution: %q %v", ref, err)
	}

	got, err := repo.ListExpenses(ctx, "2025-06")
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(got) != 2 || got[1].Notes != "weekly" || !got[1].Amount.Equal(core.MustAmount("350.55")) {
		t.Fatalf("unexpected expenses: %+v", got)
	}

	con, err := repo.ListContributions(ctx, "2025-06")
	if err != nil || len(con) != 1 || !con[0].Virtual {
		t.Fatalf("unexpected contributions: %+v %v", con, err)
	}

	periods, err := repo.ListPeriods(ctx)
	if err != nil || !reflect.DeepEqual(periods, []string{"2025-05", "2025-06"}) {
		t.Fatalf("periods = %v %v", periods, err)
	}
}

func TestSQLiteRepository_Missing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.ListExpenses(ctx, "2030-01"); !errors.Is(err, core.ErrMissingPeriodData) {
		t.Fatalf("expected ErrMissingPeriodData, got %v", err)
	}
	con, err := repo.ListContributions(ctx, "2030-01")
	if err != nil || len(con) != 0 {
		t.Fatalf("expected no contributions, got %v %v", con, err)
	}
	if _, err := repo.AppendExpense(ctx, "2030", core.ExpenseRecord{PaidBy: "A", Amount: core.MustAmount("1")}); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shareledger.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := repo.AppendExpense(context.Background(), "2025-01", core.ExpenseRecord{PaidBy: "A", Amount: core.MustAmount("3")}); err != nil {
		t.Fatalf("append: %v", err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	got, err := repo.ListExpenses(context.Background(), "2025-01")
	if err != nil || len(got) != 1 {
		t.Fatalf("data lost across reopen: %v %v", got, err)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	for i := 0; i < 2; i++ {
		version, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if version != 1 {
			t.Fatalf("run %d: version = %d, want 1", i, version)
		}
	}
}
