// Package ports declares the persisted-entity store interfaces the services
// depend on. The SQLite repository in internal/storage implements Store; the
// service tests use in-memory fakes.
package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
)

// TransactionFilter scopes journal queries. Zero-value fields are ignored
// except Owner, which every query must set.
type TransactionFilter struct {
	Owner       string
	Type        core.TransactionType
	AccountID   *int64
	Category    string
	Subcategory string
	From        time.Time
	To          time.Time
}

// CategorySum is one row of an expense-by-category aggregation.
type CategorySum struct {
	Category string
	Amount   decimal.Decimal
}

type (
	AccountStore interface {
		CreateAccount(ctx context.Context, account core.Account) (int64, error)
		AccountByID(ctx context.Context, id int64) (core.Account, error)
		AccountsByOwner(ctx context.Context, owner string) ([]core.Account, error)
		// UpdateAccountBalances persists the variant's mutable money fields.
		UpdateAccountBalances(ctx context.Context, account core.Account) error
		// DeleteAccount removes the account and nulls referencing journal and
		// obligation rows rather than cascading the delete.
		DeleteAccount(ctx context.Context, id int64) error
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
		TransactionByID(ctx context.Context, id int64) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id int64) error
		TransactionsInRange(ctx context.Context, owner string, from, to time.Time) ([]core.Transaction, error)
		// SumAmounts aggregates transaction amounts over the filtered set.
		SumAmounts(ctx context.Context, filter TransactionFilter) (decimal.Decimal, error)
		SumByCategory(ctx context.Context, owner string, tt core.TransactionType, from, to time.Time) ([]CategorySum, error)
	}

	ObligationStore interface {
		CreateObligation(ctx context.Context, s core.ScheduledTransaction) (int64, error)
		ObligationByID(ctx context.Context, id int64) (core.ScheduledTransaction, error)
		UpdateObligation(ctx context.Context, s core.ScheduledTransaction) error
		// DeleteObligation removes the row and its still-scheduled descendants.
		DeleteObligation(ctx context.Context, id int64) error
		// DueObligations lists scheduled rows with date_scheduled <= now.
		DueObligations(ctx context.Context, owner string, now time.Time) ([]core.ScheduledTransaction, error)
		// ObligationsThrough lists all rows with date_scheduled <= until.
		ObligationsThrough(ctx context.Context, owner string, until time.Time) ([]core.ScheduledTransaction, error)
		// ResolvedCountInSeries counts completed and failed rows in the chain
		// headed by rootID, the root itself included.
		ResolvedCountInSeries(ctx context.Context, rootID int64) (int, error)
		// OwnersWithDue lists owners having at least one due scheduled row.
		OwnersWithDue(ctx context.Context, now time.Time) ([]string, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b core.Budget) (int64, error)
		BudgetByID(ctx context.Context, id int64) (core.Budget, error)
		// ActiveBudgets lists budgets whose window contains now.
		ActiveBudgets(ctx context.Context, owner string, now time.Time) ([]core.Budget, error)
		// BudgetsEndingOn lists budgets whose end date falls on the given day.
		BudgetsEndingOn(ctx context.Context, day time.Time) ([]core.Budget, error)
		BudgetExists(ctx context.Context, owner, category, subcategory string, accountID int64, start time.Time) (bool, error)
		DeleteBudget(ctx context.Context, id int64) error
		// DeleteBudgetsEndedBefore permanently removes budgets whose end date
		// is strictly before cutoff. Returns the number of rows removed.
		DeleteBudgetsEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
)

// Store is the full persisted-entity surface. InTx runs fn against a store
// bound to one database transaction; the ledger validate-then-apply pair and
// the obligation materialization sequence both run under it.
type Store interface {
	AccountStore
	TransactionStore
	ObligationStore
	BudgetStore

	InTx(ctx context.Context, fn func(Store) error) error
}
