// Package report renders reconciled periods and the overview as markdown.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"shareledger/internal/core"
)

//go:embed templates/*.md
var templateFS embed.FS

var templates = mustSub(templateFS, "templates")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(fmt.Sprintf("report: templates directory %q: %v", dir, err))
	}
	if _, err := fs.Stat(sub, "period.md"); err != nil {
		panic(fmt.Sprintf("report: templates directory %q: %v", dir, err))
	}
	return sub
}

type amountRow struct {
	Name   string
	Amount string
}

type balanceRow struct {
	Name   string
	Amount string
	Status string
}

type periodView struct {
	Period            string
	TotalShared       string
	Share             string
	AccountBalance    string
	SplitWays         int
	Placeholder       bool
	Paid              []amountRow
	Virtual           []amountRow
	Balances          []balanceRow
	Categories        []amountRow
	ContributionLines []string
	ExpenseLines      []string
}

type overviewRow struct {
	Period         string
	AccountBalance string
	Contributions  string
	Virtual        string
	Balances       string
}

type overviewView struct {
	Rows       []overviewRow
	Total      overviewRow
	Categories []amountRow
}

// RenderPeriod renders the report of one reconciled period.
func RenderPeriod(s core.PeriodSummary) (string, error) {
	categories := core.NewLedger()
	for _, e := range s.Expenses {
		categories.Add(e.CategoryOrDefault(), e.Amount)
	}

	v := periodView{
		Period:         s.Period,
		TotalShared:    core.FormatAmount(s.TotalShared),
		Share:          core.FormatAmount(s.Share),
		AccountBalance: core.FormatAmount(s.AccountBalance),
		SplitWays:      s.SplitWays,
		Placeholder:    s.PlaceholderParticipants,
		Paid:           amountRows(s.Contributions),
		Virtual:        amountRows(s.VirtualContributions),
		Categories:     amountRows(categories),
	}
	for _, e := range s.Balances.Entries() {
		status := "owes"
		if !e.Amount.IsNegative() {
			status = "overpaid"
		}
		v.Balances = append(v.Balances, balanceRow{Name: cell(e.Name), Amount: core.FormatAmount(e.Amount.Abs()), Status: status})
	}
	for _, c := range s.ContributionRecords {
		v.ContributionLines = append(v.ContributionLines, fmt.Sprintf(
			"Date: %s, Name: %s, Amount: %s, Virtual Contribution: %s, Notes: %s",
			c.Date, c.Name, core.FormatAmount(c.Amount), yesNo(c.Virtual), c.Notes))
	}
	for _, e := range s.Expenses {
		v.ExpenseLines = append(v.ExpenseLines, fmt.Sprintf(
			"Date: %s, Category: %s, Paid By: %s, Amount: %s, Notes: %s",
			e.Date, e.Category, e.PaidBy, core.FormatAmount(e.Amount), e.Notes))
	}

	partials := map[string]string{
		"period_summary":    "period_summary.md",
		"period_ledgers":    "period_ledgers.md",
		"period_categories": "period_categories.md",
		"period_records":    "period_records.md",
	}
	return renderTemplate("period", "period.md", partials, v)
}

// RenderOverview renders the multi-period overview with a Total row and
// the all-time category list.
func RenderOverview(o core.OverviewSummary) (string, error) {
	v := overviewView{
		Total: overviewRow{
			AccountBalance: dollars(o.TotalAccountBalance),
			Contributions:  inlineLedger(o.TotalContributions),
			Virtual:        inlineLedger(o.TotalVirtualContributions),
			Balances:       inlineLedger(o.TotalBalances),
		},
		Categories: amountRows(o.CategoryTotals),
	}
	for _, s := range o.Periods {
		v.Rows = append(v.Rows, overviewRow{
			Period:         s.Period,
			AccountBalance: dollars(s.AccountBalance),
			Contributions:  inlineLedger(s.Contributions),
			Virtual:        inlineLedger(s.VirtualContributions),
			Balances:       inlineLedger(s.Balances),
		})
	}
	return renderTemplate("overview", "overview.md", nil, v)
}

// RenderIndex renders the README listing the given report file names.
func RenderIndex(reportFiles []string) (string, error) {
	return renderTemplate("index", "index.md", nil, reportFiles)
}

// ToHTML converts rendered markdown (tables included) to HTML.
func ToHTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// renderTemplate parses a main template plus its named partials and executes it.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) (string, error) {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return "", fmt.Errorf("read template %q: %w", mainFile, err)
	}
	tmpl, err := template.New(templateName).Option("missingkey=error").Parse(string(mainContent))
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", mainFile, err)
	}
	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return "", fmt.Errorf("read partial %q: %w", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return "", fmt.Errorf("parse partial %q for %q: %w", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return "", fmt.Errorf("execute template %q: %w", templateName, err)
	}
	return b.String(), nil
}

func amountRows(l core.Ledger) []amountRow {
	var out []amountRow
	for _, e := range l.Entries() {
		out = append(out, amountRow{Name: cell(e.Name), Amount: core.FormatAmount(e.Amount)})
	}
	return out
}

// inlineLedger formats a ledger as "A: $1.00, B: $2.00" for a table cell.
func inlineLedger(l core.Ledger) string {
	parts := make([]string, 0, l.Len())
	for _, e := range l.Entries() {
		parts = append(parts, cell(e.Name)+": "+dollars(e.Amount))
	}
	return strings.Join(parts, ", ")
}

func dollars(d decimal.Decimal) string {
	return "$" + core.FormatAmount(d)
}

// cell escapes pipes so a name cannot split a table column.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
