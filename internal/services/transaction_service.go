package services

import (
	"context"
	"fmt"
	"log/slog"

	"moneta/internal/core"
	"moneta/internal/ports"
)

// TransactionService owns the journal write path. Edits and deletes reverse
// the old ledger effect before applying the new one, so an account is never
// double-counted. Direct creation does not validate funds; only the scheduled
// path does.
type TransactionService struct {
	store    ports.Store
	currency string
}

func NewTransactionService(store ports.Store, currency string) *TransactionService {
	return &TransactionService{store: store, currency: currency}
}

// Record persists a new journal row and applies its ledger effect.
func (s *TransactionService) Record(ctx context.Context, t core.Transaction) (int64, error) {
	if t.Currency == "" {
		t.Currency = s.currency
	}
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("validate transaction: %w", err)
	}

	var id int64
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		var account core.Account
		if t.AccountID != nil {
			var err error
			account, err = tx.AccountByID(ctx, *t.AccountID)
			if err != nil {
				return err
			}
		}

		var err error
		id, err = tx.CreateTransaction(ctx, t)
		if err != nil {
			return err
		}

		if account != nil {
			ledger := NewLedger(tx)
			if err := ledger.Apply(ctx, account, t.Type, t.Amount, Forward); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("record transaction: %w", err)
	}
	return id, nil
}

// Edit replaces a journal row. The old amount/account/type effect is reversed
// first, then the new one applied, both in one transaction.
func (s *TransactionService) Edit(ctx context.Context, updated core.Transaction) error {
	if updated.Currency == "" {
		updated.Currency = s.currency
	}
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	err := s.store.InTx(ctx, func(tx ports.Store) error {
		old, err := tx.TransactionByID(ctx, updated.ID)
		if err != nil {
			return err
		}

		ledger := NewLedger(tx)
		if old.AccountID != nil {
			account, err := tx.AccountByID(ctx, *old.AccountID)
			if err != nil {
				return err
			}
			if err := ledger.Apply(ctx, account, old.Type, old.Amount, Reverse); err != nil {
				return err
			}
		}

		if err := tx.UpdateTransaction(ctx, updated); err != nil {
			return err
		}

		if updated.AccountID != nil {
			account, err := tx.AccountByID(ctx, *updated.AccountID)
			if err != nil {
				return err
			}
			if err := ledger.Apply(ctx, account, updated.Type, updated.Amount, Forward); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("edit transaction %d: %w", updated.ID, err)
	}

	slog.InfoContext(ctx, "Transaction edited", "id", updated.ID)
	return nil
}

// Delete removes a journal row after reversing its ledger effect.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		old, err := tx.TransactionByID(ctx, id)
		if err != nil {
			return err
		}

		if old.AccountID != nil {
			account, err := tx.AccountByID(ctx, *old.AccountID)
			if err != nil {
				return err
			}
			ledger := NewLedger(tx)
			if err := ledger.Apply(ctx, account, old.Type, old.Amount, Reverse); err != nil {
				return err
			}
		}

		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}
