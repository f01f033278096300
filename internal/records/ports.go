package records

import (
	"context"

	"shareledger/internal/core"
)

// Ports for record sources. Periods are opaque keys chosen by the source.
type (
	// ExpenseReader returns a period's expenses. When the period has no
	// expense source at all it returns an error wrapping
	// core.ErrMissingPeriodData.
	ExpenseReader interface {
		ListExpenses(ctx context.Context, period string) ([]core.ExpenseRecord, error)
	}

	// ContributionReader returns a period's contributions. A missing
	// source is not an error: it yields an empty slice.
	ContributionReader interface {
		ListContributions(ctx context.Context, period string) ([]core.ContributionRecord, error)
	}

	// PeriodLister returns every period with expense data, ascending.
	PeriodLister interface {
		ListPeriods(ctx context.Context) ([]string, error)
	}

	ExpenseWriter interface {
		AppendExpense(ctx context.Context, period string, e core.ExpenseRecord) (ref string, err error)
	}

	ContributionWriter interface {
		AppendContribution(ctx context.Context, period string, c core.ContributionRecord) (ref string, err error)
	}

	// Writer is everything the recording side needs.
	Writer interface {
		ExpenseWriter
		ContributionWriter
	}

	// Source is everything the report side needs.
	Source interface {
		ExpenseReader
		ContributionReader
		PeriodLister
	}

	// Store is a Source that also accepts new records.
	Store interface {
		Source
		Writer
	}
)
