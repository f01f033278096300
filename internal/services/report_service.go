package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"shareledger/internal/core"
	"shareledger/internal/log"
	"shareledger/internal/reconcile"
	"shareledger/internal/records"
)

// ReportService loads period records from a source and reconciles them.
type ReportService struct {
	source      records.Source
	reconciler  *reconcile.Reconciler
	concurrency int
	skipMissing bool
	logger      *log.Logger
}

type ReportOption func(*ReportService)

// WithReconciler replaces the default half-split reconciler.
func WithReconciler(r *reconcile.Reconciler) ReportOption {
	return func(s *ReportService) { s.reconciler = r }
}

// WithConcurrency bounds how many periods are reconciled at once.
func WithConcurrency(n int) ReportOption {
	return func(s *ReportService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSkipMissing makes Overview drop periods without expense data
// instead of failing.
func WithSkipMissing(skip bool) ReportOption {
	return func(s *ReportService) { s.skipMissing = skip }
}

func WithLogger(l *log.Logger) ReportOption {
	return func(s *ReportService) { s.logger = l.WithComponent(log.ComponentReconcile) }
}

func NewReportService(source records.Source, opts ...ReportOption) *ReportService {
	s := &ReportService{
		source:      source,
		reconciler:  reconcile.New(),
		concurrency: 4,
		logger:      log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Periods lists the periods that have expense data, ascending.
func (s *ReportService) Periods(ctx context.Context) ([]string, error) {
	periods, err := s.source.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

// PeriodSummary reconciles a single period.
func (s *ReportService) PeriodSummary(ctx context.Context, period string) (core.PeriodSummary, error) {
	if !core.ValidPeriod(period) {
		return core.PeriodSummary{}, fmt.Errorf("%w: %q (want YYYY-MM)", core.ErrInvalidPeriod, period)
	}
	expenses, err := s.source.ListExpenses(ctx, period)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("load expenses %s: %w", period, err)
	}
	contributions, err := s.source.ListContributions(ctx, period)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("load contributions %s: %w", period, err)
	}
	summary, err := s.reconciler.Reconcile(period, expenses, contributions)
	if err != nil {
		return core.PeriodSummary{}, err
	}
	s.logger.DebugContext(ctx, "Period reconciled",
		log.FieldPeriod, period,
		"total_shared", summary.TotalShared.String(),
		"participants", len(summary.Participants))
	return summary, nil
}

// Overview reconciles every known period and folds them together.
func (s *ReportService) Overview(ctx context.Context) (core.OverviewSummary, error) {
	periods, err := s.Periods(ctx)
	if err != nil {
		return core.OverviewSummary{}, err
	}
	return s.OverviewOf(ctx, periods)
}

// OverviewOf reconciles the given periods in parallel and aggregates the
// results. Each goroutine owns one slot so no locking is needed.
func (s *ReportService) OverviewOf(ctx context.Context, periods []string) (core.OverviewSummary, error) {
	slots := make([]*core.PeriodSummary, len(periods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, period := range periods {
		g.Go(func() error {
			summary, err := s.PeriodSummary(gctx, period)
			if err != nil {
				if s.skipMissing && errors.Is(err, core.ErrMissingPeriodData) {
					s.logger.WarnContext(gctx, "Skipping period without expense data", log.FieldPeriod, period)
					return nil
				}
				return err
			}
			slots[i] = &summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.OverviewSummary{}, err
	}

	summaries := make([]core.PeriodSummary, 0, len(slots))
	expenses := make(map[string][]core.ExpenseRecord, len(slots))
	for _, sum := range slots {
		if sum == nil {
			continue
		}
		summaries = append(summaries, *sum)
		expenses[sum.Period] = sum.Expenses
	}
	overview := reconcile.Aggregate(summaries, expenses)
	s.logger.InfoContext(ctx, "Overview aggregated",
		log.FieldOperation, log.OpAggregate,
		log.FieldPeriods, len(summaries),
		"total_account_balance", overview.TotalAccountBalance.String())
	return overview, nil
}
