package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"shareledger/internal/core"
	"shareledger/internal/log"
	"shareledger/internal/records"
)

// Publisher announces that a period's records changed.
type Publisher interface {
	PublishPeriodChanged(ctx context.Context, period, kind, ref string) error
}

// Kinds passed to Publisher; they match the AMQP message kinds.
const (
	KindExpense      = "expense"
	KindContribution = "contribution"
)

// Receipt identifies a stored record.
type Receipt struct {
	Period string `json:"period"`
	Ref    string `json:"ref"`
}

// RecordingService validates and stores new records, then notifies
// listeners and the optional publisher. A failed publish is logged but
// does not fail the write.
type RecordingService struct {
	store     records.Writer
	publisher Publisher
	now       func() time.Time
	logger    *log.Logger
	audit     *log.StructuredLogger

	mu        sync.Mutex
	listeners []func(period string)
}

type RecordingOption func(*RecordingService)

func WithPublisher(p Publisher) RecordingOption {
	return func(s *RecordingService) { s.publisher = p }
}

// WithClock overrides the clock used to default missing dates.
func WithClock(now func() time.Time) RecordingOption {
	return func(s *RecordingService) { s.now = now }
}

func WithRecordingLogger(l *log.Logger) RecordingOption {
	return func(s *RecordingService) { s.logger = l.WithComponent(log.ComponentRecording) }
}

func NewRecordingService(store records.Writer, opts ...RecordingOption) *RecordingService {
	s := &RecordingService{
		store:  store,
		now:    time.Now,
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.audit = log.NewStructuredLogger(s.logger)
	return s
}

// OnChange registers fn to run after every successful write.
func (s *RecordingService) OnChange(fn func(period string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// AddExpense stores e in the period derived from its date; an empty date
// means today.
func (s *RecordingService) AddExpense(ctx context.Context, e core.ExpenseRecord) (Receipt, error) {
	e.Category = strings.TrimSpace(e.Category)
	e.PaidBy = core.Payer(strings.TrimSpace(string(e.PaidBy)))
	period, date, err := s.resolveDate(e.Date)
	if err != nil {
		return Receipt{}, err
	}
	e.Date = date
	if err := e.Validate(); err != nil {
		return Receipt{}, fmt.Errorf("invalid expense: %w", err)
	}
	ref, err := s.store.AppendExpense(ctx, period, e)
	if err != nil {
		return Receipt{}, fmt.Errorf("save expense: %w", err)
	}
	s.audit.LogRecordAppended(ctx, period, e.PaidBy.String(), core.FormatAmount(e.Amount), false, ref)
	s.changed(ctx, period, KindExpense, ref)
	return Receipt{Period: period, Ref: ref}, nil
}

// AddContribution stores c in the period derived from its date.
func (s *RecordingService) AddContribution(ctx context.Context, c core.ContributionRecord) (Receipt, error) {
	c.Name = strings.TrimSpace(c.Name)
	period, date, err := s.resolveDate(c.Date)
	if err != nil {
		return Receipt{}, err
	}
	c.Date = date
	if err := c.Validate(); err != nil {
		return Receipt{}, fmt.Errorf("invalid contribution: %w", err)
	}
	ref, err := s.store.AppendContribution(ctx, period, c)
	if err != nil {
		return Receipt{}, fmt.Errorf("save contribution: %w", err)
	}
	s.audit.LogRecordAppended(ctx, period, c.Name, core.FormatAmount(c.Amount), c.Virtual, ref)
	s.changed(ctx, period, KindContribution, ref)
	return Receipt{Period: period, Ref: ref}, nil
}

func (s *RecordingService) resolveDate(date string) (period, normalized string, err error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = s.now().Format("2006-01-02")
	}
	if !core.ValidDate(date) {
		return "", "", fmt.Errorf("%w: %q (want YYYY-MM-DD)", core.ErrInvalidDate, date)
	}
	return core.PeriodFromDate(date), date, nil
}

func (s *RecordingService) changed(ctx context.Context, period, kind, ref string) {
	s.mu.Lock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(period)
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPeriodChanged(ctx, period, kind, ref); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish period changed message",
			log.FieldPeriod, period, log.FieldError, err)
	}
}
