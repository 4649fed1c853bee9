package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestLedgerValidate(t *testing.T) {
	tests := []struct {
		name    string
		account core.Account
		tt      core.TransactionType
		amount  decimal.Decimal
		wantErr error
	}{
		{
			name: "debit expense within balance",
			account: &core.DebitAccount{
				AccountInfo: core.AccountInfo{ID: 1, Owner: "ada", Name: "Checking"},
				Balance:     dec("100"),
			},
			tt:     core.Expense,
			amount: dec("100"),
		},
		{
			name: "debit expense below maintaining balance",
			account: &core.DebitAccount{
				AccountInfo:        core.AccountInfo{ID: 1, Owner: "ada", Name: "Checking"},
				Balance:            dec("100"),
				MaintainingBalance: dec("50"),
			},
			tt:      core.Expense,
			amount:  dec("60"),
			wantErr: core.ErrInsufficientFunds,
		},
		{
			name: "debit expense exactly at maintaining balance",
			account: &core.DebitAccount{
				AccountInfo:        core.AccountInfo{ID: 1, Owner: "ada", Name: "Checking"},
				Balance:            dec("100"),
				MaintainingBalance: dec("50"),
			},
			tt:     core.Expense,
			amount: dec("50"),
		},
		{
			name: "credit expense within limit",
			account: &core.CreditAccount{
				AccountInfo:  core.AccountInfo{ID: 2, Owner: "ada", Name: "Card"},
				CurrentUsage: dec("480"),
				CreditLimit:  dec("500"),
			},
			tt:     core.Expense,
			amount: dec("20"),
		},
		{
			name: "credit expense over limit",
			account: &core.CreditAccount{
				AccountInfo:  core.AccountInfo{ID: 2, Owner: "ada", Name: "Card"},
				CurrentUsage: dec("480"),
				CreditLimit:  dec("500"),
			},
			tt:      core.Expense,
			amount:  dec("50"),
			wantErr: core.ErrCreditLimitExceeded,
		},
		{
			name: "wallet expense over balance",
			account: &core.Wallet{
				AccountInfo: core.AccountInfo{ID: 3, Owner: "ada", Name: "Cash"},
				Balance:     dec("10"),
			},
			tt:      core.Expense,
			amount:  dec("10.01"),
			wantErr: core.ErrInsufficientFunds,
		},
		{
			name: "income is never rejected",
			account: &core.Wallet{
				AccountInfo: core.AccountInfo{ID: 3, Owner: "ada", Name: "Cash"},
				Balance:     dec("0"),
			},
			tt:     core.Income,
			amount: dec("1000000"),
		},
	}

	store := newFakeStore()
	ledger := NewLedger(store)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ledger.Validate(tt.account, tt.tt, tt.amount)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLedgerApplyDebit(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	ledger := NewLedger(store)

	id, err := store.CreateAccount(ctx, &core.DebitAccount{
		AccountInfo: core.AccountInfo{Owner: "ada", Name: "Checking"},
		Balance:     dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	account, _ := store.AccountByID(ctx, id)
	if err := ledger.Apply(ctx, account, core.Expense, dec("30"), Forward); err != nil {
		t.Fatalf("Apply forward: %v", err)
	}

	account, _ = store.AccountByID(ctx, id)
	if got := account.(*core.DebitAccount).Balance; !got.Equal(dec("70")) {
		t.Errorf("balance after expense = %s, want 70", got)
	}

	if err := ledger.Apply(ctx, account, core.Income, dec("15"), Forward); err != nil {
		t.Fatalf("Apply income: %v", err)
	}
	account, _ = store.AccountByID(ctx, id)
	if got := account.(*core.DebitAccount).Balance; !got.Equal(dec("85")) {
		t.Errorf("balance after income = %s, want 85", got)
	}
}

func TestLedgerApplyCreditUsage(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	ledger := NewLedger(store)

	id, _ := store.CreateAccount(ctx, &core.CreditAccount{
		AccountInfo:  core.AccountInfo{Owner: "ada", Name: "Card"},
		CurrentUsage: dec("100"),
		CreditLimit:  dec("500"),
	})

	// Expense draws on the line.
	account, _ := store.AccountByID(ctx, id)
	if err := ledger.Apply(ctx, account, core.Expense, dec("50"), Forward); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	account, _ = store.AccountByID(ctx, id)
	if got := account.(*core.CreditAccount).CurrentUsage; !got.Equal(dec("150")) {
		t.Errorf("usage after expense = %s, want 150", got)
	}

	// Income pays it down, clamped at zero.
	if err := ledger.Apply(ctx, account, core.Income, dec("400"), Forward); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	account, _ = store.AccountByID(ctx, id)
	if got := account.(*core.CreditAccount).CurrentUsage; !got.Equal(decimal.Zero) {
		t.Errorf("usage after large payment = %s, want 0", got)
	}
}

func TestLedgerReverseUndoesForward(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	ledger := NewLedger(store)

	id, _ := store.CreateAccount(ctx, &core.Wallet{
		AccountInfo: core.AccountInfo{Owner: "ada", Name: "Cash"},
		Balance:     dec("200"),
	})

	account, _ := store.AccountByID(ctx, id)
	if err := ledger.Apply(ctx, account, core.Expense, dec("75.50"), Forward); err != nil {
		t.Fatalf("Apply forward: %v", err)
	}
	account, _ = store.AccountByID(ctx, id)
	if err := ledger.Apply(ctx, account, core.Expense, dec("75.50"), Reverse); err != nil {
		t.Fatalf("Apply reverse: %v", err)
	}

	account, _ = store.AccountByID(ctx, id)
	if got := account.(*core.Wallet).Balance; !got.Equal(dec("200")) {
		t.Errorf("balance after forward+reverse = %s, want 200", got)
	}
}
