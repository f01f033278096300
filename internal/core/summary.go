package core

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// PeriodSummary is the reconciled view of one period.
type PeriodSummary struct {
	Period      string          `json:"period"`
	TotalShared decimal.Decimal `json:"total_shared"`
	// Share is what each participant owes: TotalShared / SplitWays.
	Share     decimal.Decimal `json:"share"`
	SplitWays int             `json:"split_ways"`

	Contributions        Ledger          `json:"contributions"`
	VirtualContributions Ledger          `json:"virtual_contributions"`
	Balances             Ledger          `json:"balances"`
	AccountBalance       decimal.Decimal `json:"account_balance"`

	Participants []string `json:"participants"`
	// PlaceholderParticipants is true when nobody was named in the period
	// and DefaultParticipants were used instead.
	PlaceholderParticipants bool `json:"placeholder_participants"`

	Expenses            []ExpenseRecord      `json:"-"`
	ContributionRecords []ContributionRecord `json:"-"`
}

// OverviewSummary rolls every period up.
type OverviewSummary struct {
	TotalAccountBalance       decimal.Decimal `json:"total_account_balance"`
	TotalContributions        Ledger          `json:"total_contributions"`
	TotalVirtualContributions Ledger          `json:"total_virtual_contributions"`
	TotalBalances             Ledger          `json:"total_balances"`
	CategoryTotals            Ledger          `json:"category_totals"`
	Periods                   []PeriodSummary `json:"periods"`
}

var periodPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}$`)

// ValidPeriod reports whether p has the YYYY-MM shape record sources use
// for file and sheet keys. The reconciler treats periods as opaque.
func ValidPeriod(p string) bool {
	return periodPattern.MatchString(p)
}

// PeriodFromDate returns the YYYY-MM prefix of a YYYY-MM-DD date.
func PeriodFromDate(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// ValidDate reports whether date is a real calendar day in YYYY-MM-DD form.
func ValidDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}
