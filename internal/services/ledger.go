// Package services provides the business logic of the scheduling and ledger
// core: account validation and mutation, journal compensation, obligation
// processing, projection and budget lifecycle.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/ports"
)

// Direction distinguishes realizing a transaction from undoing one.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// Ledger owns the variant-specific validation and mutation rules for money
// containers. Every Apply persists the mutated account through the store.
type Ledger struct {
	accounts ports.AccountStore
}

func NewLedger(accounts ports.AccountStore) *Ledger {
	return &Ledger{accounts: accounts}
}

// Validate checks whether an expense of the given amount would be accepted.
// Income is never rejected. Returns core.ErrInsufficientFunds or
// core.ErrCreditLimitExceeded on rejection.
func (l *Ledger) Validate(account core.Account, tt core.TransactionType, amount decimal.Decimal) error {
	if tt != core.Expense {
		return nil
	}

	switch a := account.(type) {
	case *core.DebitAccount:
		// An unset maintaining balance behaves as a floor of zero.
		if a.Balance.Sub(amount).LessThan(a.MaintainingBalance) {
			return fmt.Errorf("debit account %d balance %s below maintaining balance: %w",
				a.ID, a.Balance.String(), core.ErrInsufficientFunds)
		}
	case *core.CreditAccount:
		if a.CurrentUsage.Add(amount).GreaterThan(a.CreditLimit) {
			return fmt.Errorf("credit account %d usage %s exceeds limit %s: %w",
				a.ID, a.CurrentUsage.String(), a.CreditLimit.String(), core.ErrCreditLimitExceeded)
		}
	case *core.Wallet:
		if a.Balance.LessThan(amount) {
			return fmt.Errorf("wallet %d balance %s below amount %s: %w",
				a.ID, a.Balance.String(), amount.String(), core.ErrInsufficientFunds)
		}
	default:
		return fmt.Errorf("unknown account kind %q", account.Kind())
	}
	return nil
}

// Apply mutates the account by the effect of a transaction and persists it.
// Forward realizes the transaction; Reverse negates the same effect, used
// when a journal row is edited or deleted.
func (l *Ledger) Apply(ctx context.Context, account core.Account, tt core.TransactionType, amount decimal.Decimal, dir Direction) error {
	// The signed effect on a balance-style container: expense subtracts,
	// income adds, reverse flips the sign.
	delta := amount
	if tt == core.Expense {
		delta = delta.Neg()
	}
	if dir == Reverse {
		delta = delta.Neg()
	}

	switch a := account.(type) {
	case *core.DebitAccount:
		a.Balance = a.Balance.Add(delta)
	case *core.CreditAccount:
		// Usage moves opposite to a balance: expense draws, income pays down.
		usage := a.CurrentUsage.Sub(delta)
		if usage.IsNegative() {
			usage = decimal.Zero
		}
		a.CurrentUsage = usage
	case *core.Wallet:
		a.Balance = a.Balance.Add(delta)
	default:
		return fmt.Errorf("unknown account kind %q", account.Kind())
	}

	if err := l.accounts.UpdateAccountBalances(ctx, account); err != nil {
		return fmt.Errorf("persist account %d: %w", account.Info().ID, err)
	}

	slog.DebugContext(ctx, "Ledger applied",
		"account_id", account.Info().ID,
		"kind", account.Kind(),
		"type", tt,
		"amount", amount.String(),
		"direction", dir.String())
	return nil
}
