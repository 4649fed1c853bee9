package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/ports"
)

const transactionColumns = `id, owner, title, amount, currency, type, date,
	category, subcategory, account_id, notes`

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.q.ExecContext(ctx, `INSERT INTO transactions
		(owner, title, amount, currency, type, date, category, subcategory, account_id, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Owner, t.Title, t.Amount.String(), t.Currency, string(t.Type), fmtTime(t.Date),
		t.Category, t.Subcategory, nullInt64(t.AccountID), t.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"id", id, "owner", t.Owner, "type", t.Type, "amount", t.Amount.String())
	return id, nil
}

func (r *Repository) TransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
		}
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.q.ExecContext(ctx, `UPDATE transactions
		SET title = ?, amount = ?, currency = ?, type = ?, date = ?,
		    category = ?, subcategory = ?, account_id = ?, notes = ?
		WHERE id = ?`,
		t.Title, t.Amount.String(), t.Currency, string(t.Type), fmtTime(t.Date),
		t.Category, t.Subcategory, nullInt64(t.AccountID), t.Notes, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) TransactionsInRange(ctx context.Context, owner string, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+transactionColumns+`
		FROM transactions
		WHERE owner = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		owner, fmtTime(from), fmtTime(to))
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SumAmounts aggregates in Go over exact decimal strings; SQLite SUM would
// coerce the TEXT column to floating point.
func (r *Repository) SumAmounts(ctx context.Context, filter ports.TransactionFilter) (decimal.Decimal, error) {
	query := `SELECT amount FROM transactions WHERE owner = ?`
	args := []any{filter.Owner}

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.AccountID != nil {
		query += ` AND account_id = ?`
		args = append(args, *filter.AccountID)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Subcategory != "" {
		query += ` AND subcategory = ?`
		args = append(args, filter.Subcategory)
	}
	if !filter.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, fmtTime(filter.From))
	}
	if !filter.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, fmtTime(filter.To))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum amounts: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		d, err := parseDecimal(raw)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

func (r *Repository) SumByCategory(ctx context.Context, owner string, tt core.TransactionType, from, to time.Time) ([]ports.CategorySum, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT category, amount
		FROM transactions
		WHERE owner = ? AND type = ? AND date >= ? AND date <= ? AND category != ''
		ORDER BY category`,
		owner, string(tt), fmtTime(from), fmtTime(to))
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	defer rows.Close()

	var (
		out     []ports.CategorySum
		current string
		total   decimal.Decimal
	)
	flush := func() {
		if current != "" {
			out = append(out, ports.CategorySum{Category: current, Amount: total})
		}
	}
	for rows.Next() {
		var category, raw string
		if err := rows.Scan(&category, &raw); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		d, err := parseDecimal(raw)
		if err != nil {
			return nil, err
		}
		if category != current {
			flush()
			current = category
			total = decimal.Zero
		}
		total = total.Add(d)
	}
	flush()
	return out, rows.Err()
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		rawAmount string
		rawType   string
		rawDate   string
		accountID sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Owner, &t.Title, &rawAmount, &t.Currency, &rawType,
		&rawDate, &t.Category, &t.Subcategory, &accountID, &t.Notes); err != nil {
		return core.Transaction{}, err
	}

	var err error
	if t.Amount, err = parseDecimal(rawAmount); err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = parseTime(rawDate); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(strings.ToLower(rawType))
	t.AccountID = int64Ptr(accountID)
	return t, nil
}
