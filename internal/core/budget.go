package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DurationWeek  BudgetDuration = "1 week"
	DurationMonth BudgetDuration = "1 month"
)

type (
	BudgetDuration string

	// Budget measures expense spending against a target over one rolling
	// window. The target is exactly one of Category or Subcategory. Spent is
	// never stored; it is recomputed from the journal on every read.
	Budget struct {
		ID          int64
		Owner       string
		Category    string
		Subcategory string
		AccountID   int64
		Amount      decimal.Decimal
		Duration    BudgetDuration
		StartDate   time.Time
		EndDate     time.Time
	}
)

func (d BudgetDuration) Valid() bool {
	return d == DurationWeek || d == DurationMonth
}

// Target returns the category or subcategory this budget measures.
func (b Budget) Target() string {
	if b.Subcategory != "" {
		return b.Subcategory
	}
	return b.Category
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Owner) == "" {
		return ErrEmptyOwner
	}
	hasCategory := strings.TrimSpace(b.Category) != ""
	hasSubcategory := strings.TrimSpace(b.Subcategory) != ""
	if hasCategory == hasSubcategory {
		return ErrInvalidTarget
	}
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !b.Duration.Valid() {
		return errors.New("invalid budget duration")
	}
	if b.StartDate.IsZero() {
		return errors.New("start date cannot be zero")
	}
	return nil
}
