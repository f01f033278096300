// Package worker keeps the reports directory in step with the records.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shareledger/internal/amqp"
	"shareledger/internal/core"
	"shareledger/internal/log"
	"shareledger/internal/report"
	"shareledger/internal/services"
)

// ReportWorker regenerates period reports, the overview and the index.
// Runs are serialized so concurrent triggers never interleave file writes.
type ReportWorker struct {
	reports *services.ReportService
	writer  *report.Writer
	logger  *log.Logger
	mu      sync.Mutex
}

// Result lists what a full regeneration wrote.
type Result struct {
	Periods  []string
	Overview string
	Index    string
}

func NewReportWorker(reports *services.ReportService, writer *report.Writer, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.Nop()
	}
	return &ReportWorker{
		reports: reports,
		writer:  writer,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage regenerates the report of the changed period and then the
// overview and index. A refresh message without a period rebuilds everything.
//
// Validation errors from the records (a malformed amount or date) are
// logged and the message is acknowledged; the next change message or
// periodic run retries the period.
func (w *ReportWorker) HandleMessage(ctx context.Context, msg *amqp.PeriodChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing period changed message",
		log.FieldPeriod, msg.Period,
		"kind", msg.Kind,
		log.FieldRef, msg.Ref)

	err := w.handle(ctx, msg)
	if err != nil && core.IsValidationError(err) {
		w.logger.ErrorContext(ctx, "Dropping period changed message, records need fixing",
			log.FieldPeriod, msg.Period,
			log.FieldRef, msg.Ref,
			log.FieldError, err)
		return nil
	}
	return err
}

func (w *ReportWorker) handle(ctx context.Context, msg *amqp.PeriodChangedMessage) error {
	if msg.Period == "" {
		if msg.Kind != amqp.KindRefresh {
			return fmt.Errorf("%w: %s message without period", core.ErrInvalidPeriod, msg.Kind)
		}
		_, err := w.RegenerateAll(ctx)
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.regeneratePeriod(ctx, msg.Period); err != nil {
		return err
	}
	return w.refreshOverview(ctx)
}

// RegeneratePeriod writes one period report and refreshes the overview.
func (w *ReportWorker) RegeneratePeriod(ctx context.Context, period string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path, err := w.regeneratePeriod(ctx, period)
	if err != nil {
		return "", err
	}
	if err := w.refreshOverview(ctx); err != nil {
		return "", err
	}
	return path, nil
}

// RegenerateAll reconciles every period once and rewrites all reports.
func (w *ReportWorker) RegenerateAll(ctx context.Context) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	overview, err := w.reports.Overview(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("build overview: %w", err)
	}

	var res Result
	for _, summary := range overview.Periods {
		if _, err := w.writer.WritePeriod(summary); err != nil {
			return Result{}, fmt.Errorf("write report %s: %w", summary.Period, err)
		}
		res.Periods = append(res.Periods, summary.Period)
	}
	if res.Overview, res.Index, err = w.writeOverview(overview); err != nil {
		return Result{}, err
	}

	w.logger.InfoContext(ctx, "Reports regenerated",
		log.FieldPeriods, len(res.Periods),
		log.FieldDuration, time.Since(start).Milliseconds(),
		"dir", w.writer.Dir())
	return res, nil
}

// Run regenerates everything now and then on every tick until ctx ends.
// A failed run is logged and retried on the next tick.
func (w *ReportWorker) Run(ctx context.Context, interval time.Duration) error {
	if _, err := w.RegenerateAll(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Initial report generation failed", log.FieldError, err)
	}
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.RegenerateAll(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic report generation failed", log.FieldError, err)
			}
		}
	}
}

// regeneratePeriod writes the period report. A period without expenses
// has no report; that is logged, not returned, so the message is not
// redelivered forever.
func (w *ReportWorker) regeneratePeriod(ctx context.Context, period string) (string, error) {
	summary, err := w.reports.PeriodSummary(ctx, period)
	if errors.Is(err, core.ErrMissingPeriodData) {
		w.logger.WarnContext(ctx, "No report for period", log.FieldPeriod, period, log.FieldError, err)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reconcile %s: %w", period, err)
	}
	path, err := w.writer.WritePeriod(summary)
	if err != nil {
		return "", fmt.Errorf("write report %s: %w", period, err)
	}
	w.logger.InfoContext(ctx, "Period report written", log.FieldPeriod, period, log.FieldReportPath, path)
	return path, nil
}

func (w *ReportWorker) refreshOverview(ctx context.Context) error {
	overview, err := w.reports.Overview(ctx)
	if err != nil {
		return fmt.Errorf("build overview: %w", err)
	}
	_, _, err = w.writeOverview(overview)
	return err
}

func (w *ReportWorker) writeOverview(overview core.OverviewSummary) (string, string, error) {
	overviewPath, err := w.writer.WriteOverview(overview)
	if err != nil {
		return "", "", fmt.Errorf("write overview: %w", err)
	}
	indexPath, err := w.writer.WriteIndex()
	if err != nil {
		return "", "", fmt.Errorf("write index: %w", err)
	}
	return overviewPath, indexPath, nil
}
