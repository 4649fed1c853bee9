package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountDebit  AccountKind = "debit"
	AccountCredit AccountKind = "credit"
	AccountWallet AccountKind = "wallet"
)

type (
	// AccountKind discriminates the three account variants. The kind is fixed
	// at creation and never changes for an account identity.
	AccountKind string

	// AccountInfo carries the attributes common to every account variant.
	AccountInfo struct {
		ID          int64
		Owner       string
		Name        string
		Description string
	}

	// Account is the closed sum over the three money-container variants.
	// Only DebitAccount, CreditAccount and Wallet implement it.
	Account interface {
		Kind() AccountKind
		Info() *AccountInfo
		Validate() error
	}

	// DebitAccount holds a signed balance with an optional minimum floor.
	DebitAccount struct {
		AccountInfo
		Balance            decimal.Decimal
		MaintainingBalance decimal.Decimal // zero when no floor is set
	}

	// CreditAccount tracks drawn usage against a positive limit.
	CreditAccount struct {
		AccountInfo
		CurrentUsage   decimal.Decimal
		CreditLimit    decimal.Decimal
		PaymentDueDate *time.Time
		MinimumPayment decimal.Decimal
	}

	// Wallet is a plain cash container.
	Wallet struct {
		AccountInfo
		Balance decimal.Decimal
	}
)

func (k AccountKind) Valid() bool {
	switch k {
	case AccountDebit, AccountCredit, AccountWallet:
		return true
	}
	return false
}

func (i *AccountInfo) Info() *AccountInfo { return i }

func (i *AccountInfo) validateCommon() error {
	if strings.TrimSpace(i.Owner) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if len(i.Name) > 100 {
		return errors.New("account name too long (max 100 characters)")
	}
	return nil
}

func (a *DebitAccount) Kind() AccountKind { return AccountDebit }

func (a *DebitAccount) Validate() error {
	if err := a.validateCommon(); err != nil {
		return err
	}
	if a.MaintainingBalance.IsNegative() {
		return errors.New("maintaining balance cannot be negative")
	}
	return nil
}

func (a *CreditAccount) Kind() AccountKind { return AccountCredit }

func (a *CreditAccount) Validate() error {
	if err := a.validateCommon(); err != nil {
		return err
	}
	if !a.CreditLimit.IsPositive() {
		return errors.New("credit limit must be positive")
	}
	if a.CurrentUsage.IsNegative() {
		return errors.New("current usage cannot be negative")
	}
	if a.MinimumPayment.IsNegative() {
		return errors.New("minimum payment cannot be negative")
	}
	return nil
}

func (a *Wallet) Kind() AccountKind { return AccountWallet }

func (a *Wallet) Validate() error {
	return a.validateCommon()
}
