package core

import "errors"

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrCreditLimitExceeded   = errors.New("credit limit exceeded")
	ErrInvalidRecurrenceRule = errors.New("invalid recurrence rule")
	ErrNotFound              = errors.New("not found")

	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyName      = errors.New("empty name")
	ErrEmptyOwner     = errors.New("empty owner")
	ErrInvalidType    = errors.New("invalid transaction type")
	ErrInvalidTarget  = errors.New("budget target must be exactly one of category or subcategory")
	ErrDuplicateEntry = errors.New("duplicate entry")
)
