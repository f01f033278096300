// Package storage keeps ledger records in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"shareledger/internal/core"
	"shareledger/internal/records"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ records.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite ledger schema ready", "path", dbPath, "version", version)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) AppendExpense(ctx context.Context, period string, e core.ExpenseRecord) (string, error) {
	if !core.ValidPeriod(period) {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidPeriod, period)
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (period, date, category, paid_by, amount, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		period, e.Date, e.Category, string(e.PaidBy), e.Amount.String(), e.Notes)
	if err != nil {
		return "", fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("expense id: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", id,
		"period", period,
		"paid_by", e.PaidBy,
		"amount", e.Amount.String())

	return strconv.FormatInt(id, 10), nil
}

func (r *SQLiteRepository) AppendContribution(ctx context.Context, period string, c core.ContributionRecord) (string, error) {
	if !core.ValidPeriod(period) {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidPeriod, period)
	}
	if err := c.Validate(); err != nil {
		return "", err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contributions (period, date, name, amount, virtual, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		period, c.Date, c.Name, c.Amount.String(), c.Virtual, c.Notes)
	if err != nil {
		return "", fmt.Errorf("create contribution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("contribution id: %w", err)
	}

	slog.DebugContext(ctx, "Contribution saved to SQLite",
		"id", id,
		"period", period,
		"name", c.Name,
		"virtual", c.Virtual)

	return strconv.FormatInt(id, 10), nil
}

// ListExpenses returns the period's expenses in insertion order.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, period string) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, category, paid_by, amount, notes FROM expenses WHERE period = ? ORDER BY id`, period)
	if err != nil {
		return nil, fmt.Errorf("get expenses by period: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseRecord
	for rows.Next() {
		var (
			e              core.ExpenseRecord
			paidBy, amount string
		)
		if err := rows.Scan(&e.Date, &e.Category, &paidBy, &amount, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.PaidBy = core.Payer(paidBy)
		if e.Amount, err = core.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("expense amount: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("period %s: %w", period, core.ErrMissingPeriodData)
	}
	return out, nil
}

func (r *SQLiteRepository) ListContributions(ctx context.Context, period string) ([]core.ContributionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, name, amount, virtual, notes FROM contributions WHERE period = ? ORDER BY id`, period)
	if err != nil {
		return nil, fmt.Errorf("get contributions by period: %w", err)
	}
	defer rows.Close()

	out := []core.ContributionRecord{}
	for rows.Next() {
		var (
			c      core.ContributionRecord
			amount string
		)
		if err := rows.Scan(&c.Date, &c.Name, &amount, &c.Virtual, &c.Notes); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		if c.Amount, err = core.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("contribution amount: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contributions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListPeriods(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT period FROM expenses ORDER BY period`)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
