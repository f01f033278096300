package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"shareledger/internal/core"
	"shareledger/internal/reconcile"
)

func expense(date, category, paidBy, amount string) core.ExpenseRecord {
	return core.ExpenseRecord{Date: date, Category: category, PaidBy: core.Payer(paidBy), Amount: core.MustAmount(amount)}
}

func juneSummary(t *testing.T) core.PeriodSummary {
	t.Helper()
	s, err := reconcile.New().Reconcile("2025-06",
		[]core.ExpenseRecord{
			expense("2025-06-01", "Rent", "Both", "1200"),
			expense("2025-06-03", "Groceries", "PersonA", "350"),
			expense("2025-06-05", "", "PersonB", "220"),
		},
		[]core.ContributionRecord{
			{Date: "2025-06-01", Name: "PersonA", Amount: core.MustAmount("1000")},
			{Date: "2025-06-01", Name: "PersonB", Amount: core.MustAmount("1000")},
			{Date: "2025-06-02", Name: "Alice", Amount: core.MustAmount("50"), Virtual: true, Notes: "IOU"},
		})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	return s
}

func assertContains(t *testing.T, doc string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(doc, w) {
			t.Errorf("missing %q in:\n%s", w, doc)
		}
	}
}

func TestRenderPeriod(t *testing.T) {
	md, err := RenderPeriod(juneSummary(t))
	if err != nil {
		t.Fatalf("RenderPeriod: %v", err)
	}
	assertContains(t, md,
		"# 💰 Shared Expenses Report – 2025-06",
		"| Total Shared Expenses | 1770.00 |",
		"| Each Person Owes | 885.00 |",
		"| Account Balance change | 800.00 |",
		"#### Paid Toward Shared",
		"| PersonA | 1350.00 |",
		"| PersonB | 1220.00 |",
		"| Alice | 50.00 |",
		"| PersonA | 465.00 | overpaid |",
		"| Alice | 835.00 | owes |",
		"| Uncategorized | 220.00 |",
		"| Rent | 1200.00 |",
		"  - Date: 2025-06-02, Name: Alice, Amount: 50.00, Virtual Contribution: Yes, Notes: IOU",
		"  - Date: 2025-06-01, Category: Rent, Paid By: Both, Amount: 1200.00, Notes: ",
	)
	if strings.Contains(md, "split 2 ways") || strings.Contains(md, "placeholder") {
		t.Errorf("default report should not carry split or placeholder notes:\n%s", md)
	}
}

func TestRenderPeriod_EmptySections(t *testing.T) {
	s, err := reconcile.New().Reconcile("2025-08", []core.ExpenseRecord{expense("2025-08-01", "Rent", "Both", "100")}, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	md, err := RenderPeriod(s)
	if err != nil {
		t.Fatalf("RenderPeriod: %v", err)
	}
	assertContains(t, md,
		"No contributions recorded.",
		"No virtual contributions recorded.",
		"placeholder participants",
		"| PersonA | 50.00 | owes |",
	)
}

func TestRenderPeriod_EscapesPipes(t *testing.T) {
	s, err := reconcile.New().Reconcile("2025-08", []core.ExpenseRecord{expense("2025-08-01", "Food|Drink", "A|B", "10")}, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	md, err := RenderPeriod(s)
	if err != nil {
		t.Fatalf("RenderPeriod: %v", err)
	}
	assertContains(t, md, `| Food\|Drink | 10.00 |`, `| A\|B |`)
}

func TestRenderOverview(t *testing.T) {
	june := juneSummary(t)
	july, err := reconcile.New().Reconcile("2025-07",
		[]core.ExpenseRecord{expense("2025-07-01", "Rent", "Both", "1000")},
		[]core.ContributionRecord{{Name: "PersonB", Amount: core.MustAmount("1")}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	ov := reconcile.Aggregate([]core.PeriodSummary{july, june}, map[string][]core.ExpenseRecord{
		june.Period: june.Expenses, july.Period: july.Expenses,
	})

	md, err := RenderOverview(ov)
	if err != nil {
		t.Fatalf("RenderOverview: %v", err)
	}
	assertContains(t, md,
		"# Overview Report",
		"| 2025-06 | $800.00 | PersonA: $1350.00, PersonB: $1220.00 | Alice: $50.00 |",
		"| 2025-07 | $-999.00 | PersonB: $1.00 |  | PersonB: $-499.00 |",
		"| **Total** | $-199.00 |",
		"- Rent: $2200.00",
		"- Uncategorized: $220.00",
	)
	if strings.Index(md, "| 2025-06 |") > strings.Index(md, "| 2025-07 |") {
		t.Errorf("periods not in ascending order")
	}
}

func TestRenderOverview_Empty(t *testing.T) {
	md, err := RenderOverview(reconcile.EmptyOverview())
	if err != nil {
		t.Fatalf("RenderOverview: %v", err)
	}
	assertContains(t, md, "| **Total** | $0.00 |", "No expenses recorded.")
}

func TestToHTML(t *testing.T) {
	md, err := RenderPeriod(juneSummary(t))
	if err != nil {
		t.Fatalf("RenderPeriod: %v", err)
	}
	html, err := ToHTML(md)
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}
	if strings.Count(html, "<table>") < 4 {
		t.Errorf("expected the summary, ledger and category tables to render as HTML tables:\n%s", html)
	}
}

func TestWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w := NewWriter(dir)

	june := juneSummary(t)
	path, err := w.WritePeriod(june)
	if err != nil {
		t.Fatalf("WritePeriod: %v", err)
	}
	if filepath.Base(path) != "2025-06-report.md" {
		t.Fatalf("path = %s", path)
	}
	if _, err := w.WriteOverview(reconcile.Aggregate([]core.PeriodSummary{june}, nil)); err != nil {
		t.Fatalf("WriteOverview: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "2025-05-report.md"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	indexPath, err := w.WriteIndex()
	if err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}
	data, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatal(err)
	}
	index := string(data)
	assertContains(t, index, "- [`overview.md`](overview.md)", "- [`2025-05-report.md`](2025-05-report.md)")
	if strings.Index(index, "2025-05-report.md") > strings.Index(index, "2025-06-report.md") {
		t.Errorf("index not sorted:\n%s", index)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestMustSub(t *testing.T) {
	fsys := fstest.MapFS{"templates/period.md": &fstest.MapFile{Data: []byte("# {{.Period}}")}}
	if _, err := mustSub(fsys, "templates").Open("period.md"); err != nil {
		t.Fatalf("open: %v", err)
	}

	for _, dir := range []string{"layouts", "../templates"} {
		t.Run(dir, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic for %q", dir)
				}
			}()
			mustSub(fsys, dir)
		})
	}
}
