package google

import (
	"fmt"
	"sort"
	"strings"

	"shareledger/internal/core"
)

// parseExpenses turns a values matrix (header row first) into expense
// records keyed by period. Only rows blank in every column are skipped;
// any other row without an ISO date fails with core.ErrInvalidDate.
func parseExpenses(values [][]interface{}) (map[string][]core.ExpenseRecord, error) {
	out := map[string][]core.ExpenseRecord{}
	if len(values) == 0 {
		return out, nil
	}
	headers := toStrings(values[0])
	colDate := indexOf(headers, "Date")
	colCategory := indexOf(headers, "Category")
	colPaidBy := indexOf(headers, "Paid By")
	colAmount := indexOf(headers, "Amount")
	colNotes := indexOf(headers, "Notes")
	if colDate == -1 || colPaidBy == -1 || colAmount == -1 {
		return nil, fmt.Errorf("unexpected expenses header: %v", headers)
	}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if blankRow(row) {
			continue
		}
		period, err := rowPeriod(row, colDate, i+1)
		if err != nil {
			return nil, err
		}
		amount, err := core.ParseAmount(safeGet(row, colAmount))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out[period] = append(out[period], core.ExpenseRecord{
			Date:     safeGet(row, colDate),
			Category: safeGet(row, colCategory),
			PaidBy:   core.Payer(safeGet(row, colPaidBy)),
			Amount:   amount,
			Notes:    safeGet(row, colNotes),
		})
	}
	return out, nil
}

// parseContributions is the contributions counterpart of parseExpenses.
func parseContributions(values [][]interface{}) (map[string][]core.ContributionRecord, error) {
	out := map[string][]core.ContributionRecord{}
	if len(values) == 0 {
		return out, nil
	}
	headers := toStrings(values[0])
	colDate := indexOf(headers, "Date")
	colName := indexOf(headers, "Name")
	colAmount := indexOf(headers, "Amount")
	colVirtual := indexOf(headers, "Virtual Contribution")
	colNotes := indexOf(headers, "Notes")
	if colDate == -1 || colName == -1 || colAmount == -1 {
		return nil, fmt.Errorf("unexpected contributions header: %v", headers)
	}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if blankRow(row) {
			continue
		}
		period, err := rowPeriod(row, colDate, i+1)
		if err != nil {
			return nil, err
		}
		amount, err := core.ParseAmount(safeGet(row, colAmount))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out[period] = append(out[period], core.ContributionRecord{
			Date:    safeGet(row, colDate),
			Name:    safeGet(row, colName),
			Amount:  amount,
			Virtual: strings.EqualFold(safeGet(row, colVirtual), "yes"),
			Notes:   safeGet(row, colNotes),
		})
	}
	return out, nil
}

// rowPeriod derives the period of a sheet row from its YYYY-MM-DD date.
func rowPeriod(row []string, colDate, line int) (string, error) {
	date := safeGet(row, colDate)
	if !core.ValidDate(date) {
		return "", fmt.Errorf("row %d: %w: %q (want YYYY-MM-DD)", line, core.ErrInvalidDate, date)
	}
	return core.PeriodFromDate(date), nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func sortedPeriods(m map[string][]core.ExpenseRecord) []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
