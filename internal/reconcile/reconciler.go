package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"shareledger/internal/core"
)

// Reconciler computes period summaries. It keeps no state between calls
// and is safe for concurrent use.
type Reconciler struct {
	split SplitStrategy
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithSplit overrides the default half-and-half split.
func WithSplit(s SplitStrategy) Option {
	return func(r *Reconciler) {
		if s != nil {
			r.split = s
		}
	}
}

// New returns a Reconciler using FixedSplit{N: 2} unless overridden.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{split: FixedSplit{N: 2}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile builds the summary of one period. A period without expense
// records cannot be reconciled and yields core.ErrMissingPeriodData;
// contributions may be nil.
func (r *Reconciler) Reconcile(period string, expenses []core.ExpenseRecord, contributions []core.ContributionRecord) (core.PeriodSummary, error) {
	if len(expenses) == 0 {
		return core.PeriodSummary{}, fmt.Errorf("reconcile %s: %w", period, core.ErrMissingPeriodData)
	}

	cash, virtual := core.NewLedger(), core.NewLedger()
	for _, c := range contributions {
		// The shared marker is never a participant.
		if core.Payer(c.Name).IsShared() {
			continue
		}
		if c.Virtual {
			virtual.Add(c.Name, c.Amount)
		} else {
			cash.Add(c.Name, c.Amount)
		}
	}

	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}

	participants, placeholder := collectParticipants(cash, virtual, expenses)
	ways := r.split.Ways(len(participants))
	share := total.Div(decimal.NewFromInt(int64(ways)))

	// Direct payments count as contributions of the payer.
	for _, e := range expenses {
		if e.PaidBy.IsShared() {
			continue
		}
		cash.Add(string(e.PaidBy), e.Amount)
	}

	balances := core.NewLedger()
	for _, p := range participants {
		balances.Add(p, cash.Get(p).Add(virtual.Get(p)).Sub(share))
	}

	return core.PeriodSummary{
		Period:                  period,
		TotalShared:             total,
		Share:                   share,
		SplitWays:               ways,
		Contributions:           cash,
		VirtualContributions:    virtual,
		Balances:                balances,
		AccountBalance:          cash.Sum().Sub(total),
		Participants:            participants,
		PlaceholderParticipants: placeholder,
		Expenses:                append([]core.ExpenseRecord(nil), expenses...),
		ContributionRecords:     append([]core.ContributionRecord(nil), contributions...),
	}, nil
}

// collectParticipants returns contributors, virtual contributors and
// non-shared payers in first-seen order, falling back to
// core.DefaultParticipants when nobody is named.
func collectParticipants(cash, virtual core.Ledger, expenses []core.ExpenseRecord) ([]string, bool) {
	seen := map[string]struct{}{}
	var out []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, n := range cash.Keys() {
		add(n)
	}
	for _, n := range virtual.Keys() {
		add(n)
	}
	for _, e := range expenses {
		if !e.PaidBy.IsShared() {
			add(string(e.PaidBy))
		}
	}
	if len(out) == 0 {
		return append([]string(nil), core.DefaultParticipants...), true
	}
	return out, false
}
