package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"shareledger/internal/core"
)

// Store keeps records in memory, bucketed by period.
type Store struct {
	mu            sync.Mutex
	expenses      map[string][]core.ExpenseRecord
	contributions map[string][]core.ContributionRecord
	count         int
}

func New() *Store {
	return &Store{
		expenses:      make(map[string][]core.ExpenseRecord),
		contributions: make(map[string][]core.ContributionRecord),
	}
}

// AppendExpense stores the expense and returns a synthetic reference.
func (s *Store) AppendExpense(_ context.Context, period string, e core.ExpenseRecord) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[period] = append(s.expenses[period], e)
	s.count++
	return fmt.Sprintf("mem:%d", s.count), nil
}

// AppendContribution stores the contribution and returns a synthetic reference.
func (s *Store) AppendContribution(_ context.Context, period string, c core.ContributionRecord) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contributions[period] = append(s.contributions[period], c)
	s.count++
	return fmt.Sprintf("mem:%d", s.count), nil
}

func (s *Store) ListExpenses(_ context.Context, period string) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.expenses[period]
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("expenses for %s: %w", period, core.ErrMissingPeriodData)
	}
	return append([]core.ExpenseRecord(nil), items...), nil
}

func (s *Store) ListContributions(_ context.Context, period string) ([]core.ContributionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ContributionRecord(nil), s.contributions[period]...), nil
}

// ListPeriods returns periods holding at least one expense.
func (s *Store) ListPeriods(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.expenses))
	for p, items := range s.expenses {
		if len(items) > 0 {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}
