// Package csvfile stores records as one CSV file per period:
//
//	<dir>/<period>.csv                 Date,Category,Paid By,Amount,Notes
//	<dir>/<period>-contributions.csv   Date,Name,Amount,Virtual Contribution,Notes
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"shareledger/internal/core"
)

var (
	ExpenseHeader      = []string{"Date", "Category", "Paid By", "Amount", "Notes"}
	ContributionHeader = []string{"Date", "Name", "Amount", "Virtual Contribution", "Notes"}
)

const periodGlob = "[0-9][0-9][0-9][0-9]-[0-9][0-9].csv"

// Store reads and appends period CSV files under a directory.
type Store struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) expensePath(period string) string {
	return filepath.Join(s.dir, period+".csv")
}

func (s *Store) contributionPath(period string) string {
	return filepath.Join(s.dir, period+"-contributions.csv")
}

func checkPeriod(period string) error {
	if !core.ValidPeriod(period) {
		return fmt.Errorf("%w: %q (want YYYY-MM)", core.ErrInvalidPeriod, period)
	}
	return nil
}

// ListExpenses reads <period>.csv. A missing file is reported as
// core.ErrMissingPeriodData.
func (s *Store) ListExpenses(_ context.Context, period string) ([]core.ExpenseRecord, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	path := s.expensePath(period)
	rows, err := readRows(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("expense file %s: %w", path, core.ErrMissingPeriodData)
	}
	if err != nil {
		return nil, err
	}
	out := make([]core.ExpenseRecord, 0, len(rows))
	for _, r := range rows {
		amount, err := core.ParseAmount(r.get("Amount"))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, r.line, err)
		}
		out = append(out, core.ExpenseRecord{
			Date:     r.get("Date"),
			Category: r.get("Category"),
			PaidBy:   core.Payer(r.get("Paid By")),
			Amount:   amount,
			Notes:    r.get("Notes"),
		})
	}
	return out, nil
}

// ListContributions reads <period>-contributions.csv; a missing file
// yields no records.
func (s *Store) ListContributions(_ context.Context, period string) ([]core.ContributionRecord, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	path := s.contributionPath(period)
	rows, err := readRows(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []core.ContributionRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]core.ContributionRecord, 0, len(rows))
	for _, r := range rows {
		amount, err := core.ParseAmount(r.get("Amount"))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, r.line, err)
		}
		out = append(out, core.ContributionRecord{
			Date:    r.get("Date"),
			Name:    r.get("Name"),
			Amount:  amount,
			Virtual: parseVirtual(r.get("Virtual Contribution")),
			Notes:   r.get("Notes"),
		})
	}
	return out, nil
}

// ListPeriods returns the periods that have an expense file, ascending.
func (s *Store) ListPeriods(_ context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, periodGlob))
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(filepath.Base(m), ".csv"))
	}
	sort.Strings(out)
	return out, nil
}

// AppendExpense appends a row to <period>.csv, writing the header first
// when the file is new.
func (s *Store) AppendExpense(_ context.Context, period string, e core.ExpenseRecord) (string, error) {
	if err := checkPeriod(period); err != nil {
		return "", err
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	row := []string{e.Date, e.Category, string(e.PaidBy), e.Amount.String(), e.Notes}
	return s.appendRow(s.expensePath(period), ExpenseHeader, row)
}

// AppendContribution appends a row to <period>-contributions.csv.
func (s *Store) AppendContribution(_ context.Context, period string, c core.ContributionRecord) (string, error) {
	if err := checkPeriod(period); err != nil {
		return "", err
	}
	if err := c.Validate(); err != nil {
		return "", err
	}
	row := []string{c.Date, c.Name, c.Amount.String(), formatVirtual(c.Virtual), c.Notes}
	return s.appendRow(s.contributionPath(period), ContributionHeader, row)
}

func (s *Store) appendRow(path string, header, row []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(header); err != nil {
			return "", fmt.Errorf("write header %s: %w", path, err)
		}
	}
	if err := w.Write(row); err != nil {
		return "", fmt.Errorf("write row %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush %s: %w", path, err)
	}
	return path, nil
}

type row struct {
	line   int
	fields map[string]string
}

func (r row) get(col string) string {
	return strings.TrimSpace(r.fields[col])
}

// readRows reads a headed CSV file into column-keyed rows.
func readRows(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var out []row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		line, _ := cr.FieldPos(0)
		fields := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				fields[h] = rec[i]
			}
		}
		out = append(out, row{line: line, fields: fields})
	}
	return out, nil
}

func parseVirtual(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "yes")
}

func formatVirtual(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
