package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"shareledger/internal/core"
	"shareledger/internal/records"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultExpensesSheet      = "Expenses"
	DefaultContributionsSheet = "Contributions"
)

// Client reads and appends ledger rows in a Google spreadsheet. Each sheet
// carries the same header as the CSV files and rows are bucketed into
// periods by the first seven characters of their Date column.
type Client struct {
	svc                *gsheet.Service
	spreadsheetID      string
	expensesSheet      string
	contributionsSheet string
}

var _ records.Store = (*Client)(nil)

// Settings names the spreadsheet and its two tabs.
type Settings struct {
	SpreadsheetID      string
	ExpensesSheet      string
	ContributionsSheet string
}

// New creates a Sheets client using service account credentials from the
// environment.
func New(ctx context.Context, s Settings) (*Client, error) {
	id := strings.TrimSpace(s.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	expenses := strings.TrimSpace(s.ExpensesSheet)
	if expenses == "" {
		expenses = DefaultExpensesSheet
	}
	contributions := strings.TrimSpace(s.ContributionsSheet)
	if contributions == "" {
		contributions = DefaultContributionsSheet
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      id,
		expensesSheet:      expenses,
		contributionsSheet: contributions,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:E", sheet)
	// Amounts come back as raw numbers; dates keep their display format
	// and must be entered as YYYY-MM-DD.
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) ListExpenses(ctx context.Context, period string) ([]core.ExpenseRecord, error) {
	values, err := c.readSheet(ctx, c.expensesSheet)
	if err != nil {
		return nil, err
	}
	byPeriod, err := parseExpenses(values)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", c.expensesSheet, err)
	}
	out := byPeriod[period]
	if len(out) == 0 {
		return nil, fmt.Errorf("sheet %s period %s: %w", c.expensesSheet, period, core.ErrMissingPeriodData)
	}
	return out, nil
}

func (c *Client) ListContributions(ctx context.Context, period string) ([]core.ContributionRecord, error) {
	values, err := c.readSheet(ctx, c.contributionsSheet)
	if err != nil {
		return nil, err
	}
	byPeriod, err := parseContributions(values)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", c.contributionsSheet, err)
	}
	if out := byPeriod[period]; out != nil {
		return out, nil
	}
	return []core.ContributionRecord{}, nil
}

// ListPeriods returns every period that has at least one expense row.
func (c *Client) ListPeriods(ctx context.Context) ([]string, error) {
	values, err := c.readSheet(ctx, c.expensesSheet)
	if err != nil {
		return nil, err
	}
	byPeriod, err := parseExpenses(values)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", c.expensesSheet, err)
	}
	return sortedPeriods(byPeriod), nil
}

func (c *Client) AppendExpense(ctx context.Context, period string, e core.ExpenseRecord) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	row := []interface{}{dateFor(period, e.Date), e.Category, string(e.PaidBy), e.Amount.String(), e.Notes}
	return c.appendRow(ctx, c.expensesSheet, row)
}

func (c *Client) AppendContribution(ctx context.Context, period string, r core.ContributionRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	virtual := "No"
	if r.Virtual {
		virtual = "Yes"
	}
	row := []interface{}{dateFor(period, r.Date), r.Name, r.Amount.String(), virtual, r.Notes}
	return c.appendRow(ctx, c.contributionsSheet, row)
}

func (c *Client) appendRow(ctx context.Context, sheet string, row []interface{}) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:E", sheet)
	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// dateFor keeps a row inside its period when the caller supplied no date.
func dateFor(period, date string) string {
	if strings.TrimSpace(date) == "" {
		return period + "-01"
	}
	return date
}
