package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"moneta/internal/core"
)

const accountColumns = `id, owner, name, description, kind,
	balance, maintaining_balance, current_usage, credit_limit,
	payment_due_date, minimum_payment`

func (r *Repository) CreateAccount(ctx context.Context, account core.Account) (int64, error) {
	if err := account.Validate(); err != nil {
		return 0, fmt.Errorf("validate account: %w", err)
	}

	info := account.Info()
	var (
		balance, maintaining, usage, limit, minPayment sql.NullString
		dueDate                                        sql.NullString
	)
	switch a := account.(type) {
	case *core.DebitAccount:
		balance = sql.NullString{String: a.Balance.String(), Valid: true}
		maintaining = sql.NullString{String: a.MaintainingBalance.String(), Valid: true}
	case *core.CreditAccount:
		usage = sql.NullString{String: a.CurrentUsage.String(), Valid: true}
		limit = sql.NullString{String: a.CreditLimit.String(), Valid: true}
		minPayment = sql.NullString{String: a.MinimumPayment.String(), Valid: true}
		dueDate = nullTime(a.PaymentDueDate)
	case *core.Wallet:
		balance = sql.NullString{String: a.Balance.String(), Valid: true}
	default:
		return 0, fmt.Errorf("unknown account kind %q", account.Kind())
	}

	res, err := r.q.ExecContext(ctx, `INSERT INTO accounts
		(owner, name, description, kind, balance, maintaining_balance,
		 current_usage, credit_limit, payment_due_date, minimum_payment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.Owner, info.Name, info.Description, string(account.Kind()),
		balance, maintaining, usage, limit, dueDate, minPayment)
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("account insert id: %w", err)
	}
	info.ID = id

	slog.InfoContext(ctx, "Account created",
		"id", id, "kind", account.Kind(), "owner", info.Owner, "name", info.Name)
	return id, nil
}

func (r *Repository) AccountByID(ctx context.Context, id int64) (core.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (r *Repository) AccountsByOwner(ctx context.Context, owner string) ([]core.Account, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner = ? ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// UpdateAccountBalances persists only the variant's money fields; owner, name
// and kind are immutable through this path.
func (r *Repository) UpdateAccountBalances(ctx context.Context, account core.Account) error {
	info := account.Info()
	var err error
	switch a := account.(type) {
	case *core.DebitAccount:
		_, err = r.q.ExecContext(ctx,
			`UPDATE accounts SET balance = ?, maintaining_balance = ? WHERE id = ? AND kind = 'debit'`,
			a.Balance.String(), a.MaintainingBalance.String(), info.ID)
	case *core.CreditAccount:
		_, err = r.q.ExecContext(ctx,
			`UPDATE accounts SET current_usage = ?, credit_limit = ?, minimum_payment = ? WHERE id = ? AND kind = 'credit'`,
			a.CurrentUsage.String(), a.CreditLimit.String(), a.MinimumPayment.String(), info.ID)
	case *core.Wallet:
		_, err = r.q.ExecContext(ctx,
			`UPDATE accounts SET balance = ? WHERE id = ? AND kind = 'wallet'`,
			a.Balance.String(), info.ID)
	default:
		return fmt.Errorf("unknown account kind %q", account.Kind())
	}
	if err != nil {
		return fmt.Errorf("update account balances: %w", err)
	}
	return nil
}

// DeleteAccount removes the account. Journal and obligation references are
// nulled by the schema's ON DELETE SET NULL; budgets cascade away.
func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Account deleted", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		info                                           core.AccountInfo
		kind                                           string
		balance, maintaining, usage, limit, minPayment sql.NullString
		dueDate                                        sql.NullString
	)
	if err := row.Scan(&info.ID, &info.Owner, &info.Name, &info.Description, &kind,
		&balance, &maintaining, &usage, &limit, &dueDate, &minPayment); err != nil {
		return nil, err
	}

	switch core.AccountKind(kind) {
	case core.AccountDebit:
		a := &core.DebitAccount{AccountInfo: info}
		var err error
		if a.Balance, err = parseDecimal(balance.String); err != nil {
			return nil, err
		}
		if a.MaintainingBalance, err = parseDecimal(maintaining.String); err != nil {
			return nil, err
		}
		return a, nil
	case core.AccountCredit:
		a := &core.CreditAccount{AccountInfo: info}
		var err error
		if a.CurrentUsage, err = parseDecimal(usage.String); err != nil {
			return nil, err
		}
		if a.CreditLimit, err = parseDecimal(limit.String); err != nil {
			return nil, err
		}
		if a.MinimumPayment, err = parseDecimal(minPayment.String); err != nil {
			return nil, err
		}
		if a.PaymentDueDate, err = timePtr(dueDate); err != nil {
			return nil, err
		}
		return a, nil
	case core.AccountWallet:
		a := &core.Wallet{AccountInfo: info}
		var err error
		if a.Balance, err = parseDecimal(balance.String); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown account kind %q in row %d", kind, info.ID)
	}
}
