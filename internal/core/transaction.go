package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Transaction is one realized money movement in the journal. The amount
	// is always a positive magnitude; Type decides the direction.
	Transaction struct {
		ID          int64
		Owner       string
		Title       string
		Amount      decimal.Decimal
		Currency    string
		Type        TransactionType
		Date        time.Time
		Category    string
		Subcategory string
		AccountID   *int64
		Notes       string
	}
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyName
	}
	if len(t.Title) > 255 {
		return errors.New("title too long (max 255 characters)")
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}
