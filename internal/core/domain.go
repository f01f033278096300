package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PaidByBoth marks an expense paid from the shared pool rather than by a
// single participant. The match is case-sensitive.
const PaidByBoth Payer = "Both"

// UncategorizedLabel replaces an empty expense category in category totals.
const UncategorizedLabel = "Uncategorized"

// DefaultParticipants is used when a period names nobody at all.
var DefaultParticipants = []string{"PersonA", "PersonB"}

type (
	Payer string

	// ExpenseRecord is one shared expense.
	ExpenseRecord struct {
		Date     string
		Category string
		PaidBy   Payer
		Amount   decimal.Decimal
		Notes    string
	}

	// ContributionRecord is money (or credit, when Virtual) a participant
	// put toward the shared pool, independent of any expense.
	ContributionRecord struct {
		Date    string
		Name    string
		Amount  decimal.Decimal
		Virtual bool
		Notes   string
	}
)

var (
	// ErrMissingPeriodData is returned when a period has no expense records.
	ErrMissingPeriodData = errors.New("period data not found")
	// ErrMalformedAmount is returned when an amount cannot be parsed.
	ErrMalformedAmount = errors.New("malformed amount")

	ErrEmptyPayer        = errors.New("empty payer")
	ErrEmptyName         = errors.New("empty contributor name")
	ErrNegativeAmount    = errors.New("negative amount")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrReservedPayerName = errors.New("contributor name is reserved")
	ErrInvalidDate       = errors.New("invalid date")
	ErrNotesTooLong      = errors.New("notes too long (max 200 characters)")
)

// IsValidationError reports whether err stems from rejected user input.
func IsValidationError(err error) bool {
	for _, target := range []error{ErrMalformedAmount, ErrEmptyPayer, ErrEmptyName, ErrNegativeAmount,
		ErrInvalidPeriod, ErrReservedPayerName, ErrInvalidDate, ErrNotesTooLong} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsShared reports whether the payer is the shared-pool marker.
func (p Payer) IsShared() bool {
	return p == PaidByBoth
}

func (p Payer) String() string {
	return string(p)
}

// CategoryOrDefault returns the category, or UncategorizedLabel when blank.
func (e ExpenseRecord) CategoryOrDefault() string {
	c := strings.TrimSpace(e.Category)
	if c == "" {
		return UncategorizedLabel
	}
	return c
}

// Validate is used on the write path only; the reconciler never validates.
func (e ExpenseRecord) Validate() error {
	if strings.TrimSpace(string(e.PaidBy)) == "" {
		return ErrEmptyPayer
	}
	if e.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if len(e.Notes) > 200 {
		return ErrNotesTooLong
	}
	return nil
}

func (c ContributionRecord) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if Payer(name).IsShared() {
		return fmt.Errorf("%w: %q", ErrReservedPayerName, name)
	}
	if c.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if len(c.Notes) > 200 {
		return ErrNotesTooLong
	}
	return nil
}
