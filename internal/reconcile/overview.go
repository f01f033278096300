package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"shareledger/internal/core"
)

// EmptyOverview returns the identity element of Fold and MergeOverviews.
func EmptyOverview() core.OverviewSummary {
	return core.OverviewSummary{
		TotalAccountBalance:       decimal.Zero,
		TotalContributions:        core.NewLedger(),
		TotalVirtualContributions: core.NewLedger(),
		TotalBalances:             core.NewLedger(),
		CategoryTotals:            core.NewLedger(),
	}
}

// Aggregate rolls the given period summaries into an overview, in
// ascending period order. Category totals come from expenses, keyed by
// period, independent of the summaries. No input is modified.
func Aggregate(summaries []core.PeriodSummary, expenses map[string][]core.ExpenseRecord) core.OverviewSummary {
	ordered := append([]core.PeriodSummary(nil), summaries...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Period < ordered[j].Period })

	ov := EmptyOverview()
	for _, s := range ordered {
		ov = Fold(ov, s)
	}

	periods := make([]string, 0, len(expenses))
	for p := range expenses {
		periods = append(periods, p)
	}
	sort.Strings(periods)
	for _, p := range periods {
		ov = AddCategories(ov, expenses[p])
	}
	return ov
}

// Fold adds one period summary into acc and returns the result.
func Fold(acc core.OverviewSummary, s core.PeriodSummary) core.OverviewSummary {
	return core.OverviewSummary{
		TotalAccountBalance:       acc.TotalAccountBalance.Add(s.AccountBalance),
		TotalContributions:        core.MergeLedgers(acc.TotalContributions, s.Contributions),
		TotalVirtualContributions: core.MergeLedgers(acc.TotalVirtualContributions, s.VirtualContributions),
		TotalBalances:             core.MergeLedgers(acc.TotalBalances, s.Balances),
		CategoryTotals:            acc.CategoryTotals.Clone(),
		Periods:                   append(append([]core.PeriodSummary(nil), acc.Periods...), s),
	}
}

// AddCategories sums expense amounts into acc's category totals.
func AddCategories(acc core.OverviewSummary, expenses []core.ExpenseRecord) core.OverviewSummary {
	cats := acc.CategoryTotals.Clone()
	for _, e := range expenses {
		cats.Add(e.CategoryOrDefault(), e.Amount)
	}
	acc.CategoryTotals = cats
	return acc
}

// MergeOverviews combines two partial overviews, for example built over
// disjoint sets of periods in parallel.
func MergeOverviews(a, b core.OverviewSummary) core.OverviewSummary {
	periods := append(append([]core.PeriodSummary(nil), a.Periods...), b.Periods...)
	sort.SliceStable(periods, func(i, j int) bool { return periods[i].Period < periods[j].Period })
	return core.OverviewSummary{
		TotalAccountBalance:       a.TotalAccountBalance.Add(b.TotalAccountBalance),
		TotalContributions:        core.MergeLedgers(a.TotalContributions, b.TotalContributions),
		TotalVirtualContributions: core.MergeLedgers(a.TotalVirtualContributions, b.TotalVirtualContributions),
		TotalBalances:             core.MergeLedgers(a.TotalBalances, b.TotalBalances),
		CategoryTotals:            core.MergeLedgers(a.CategoryTotals, b.CategoryTotals),
		Periods:                   periods,
	}
}
