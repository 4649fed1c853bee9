package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"moneta/internal/core"
)

const budgetColumns = `id, owner, category, subcategory, account_id, amount,
	duration, start_date, end_date`

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	res, err := r.q.ExecContext(ctx, `INSERT INTO budgets
		(owner, category, subcategory, account_id, amount, duration, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Owner, b.Category, b.Subcategory, b.AccountID, b.Amount.String(),
		string(b.Duration), fmtTime(b.StartDate), fmtTime(b.EndDate))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("budget for target %q starting %s: %w",
				b.Target(), fmtDay(b.StartDate), core.ErrDuplicateEntry)
		}
		return 0, fmt.Errorf("insert budget: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("budget insert id: %w", err)
	}

	slog.InfoContext(ctx, "Budget created",
		"id", id, "owner", b.Owner, "target", b.Target(),
		"duration", b.Duration, "start", fmtDay(b.StartDate), "end", fmtDay(b.EndDate))
	return id, nil
}

func (r *Repository) BudgetByID(ctx context.Context, id int64) (core.Budget, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
		}
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *Repository) ActiveBudgets(ctx context.Context, owner string, now time.Time) ([]core.Budget, error) {
	day := fmtDay(now)
	rows, err := r.q.QueryContext(ctx, `SELECT `+budgetColumns+`
		FROM budgets
		WHERE owner = ? AND substr(start_date, 1, 10) <= ? AND substr(end_date, 1, 10) >= ?
		ORDER BY start_date, id`,
		owner, day, day)
	if err != nil {
		return nil, fmt.Errorf("list active budgets: %w", err)
	}
	defer rows.Close()
	return collectBudgets(rows)
}

func (r *Repository) BudgetsEndingOn(ctx context.Context, day time.Time) ([]core.Budget, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+budgetColumns+`
		FROM budgets
		WHERE substr(end_date, 1, 10) = ?
		ORDER BY id`,
		fmtDay(day))
	if err != nil {
		return nil, fmt.Errorf("list budgets ending on: %w", err)
	}
	defer rows.Close()
	return collectBudgets(rows)
}

func (r *Repository) BudgetExists(ctx context.Context, owner, category, subcategory string, accountID int64, start time.Time) (bool, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*)
		FROM budgets
		WHERE owner = ? AND category = ? AND subcategory = ?
		  AND account_id = ? AND substr(start_date, 1, 10) = ?`,
		owner, category, subcategory, accountID, fmtDay(start)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check budget exists: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete budget rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteBudgetsEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM budgets WHERE substr(end_date, 1, 10) < ?`, fmtDay(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete ended budgets: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete ended budgets rows affected: %w", err)
	}
	if affected > 0 {
		slog.InfoContext(ctx, "Expired budgets cleaned up",
			"removed", affected, "cutoff", fmtDay(cutoff))
	}
	return affected, nil
}

func collectBudgets(rows *sql.Rows) ([]core.Budget, error) {
	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b                      core.Budget
		rawAmount, rawDuration string
		rawStart, rawEnd       string
	)
	if err := row.Scan(&b.ID, &b.Owner, &b.Category, &b.Subcategory, &b.AccountID,
		&rawAmount, &rawDuration, &rawStart, &rawEnd); err != nil {
		return core.Budget{}, err
	}

	var err error
	if b.Amount, err = parseDecimal(rawAmount); err != nil {
		return core.Budget{}, err
	}
	if b.StartDate, err = parseTime(rawStart); err != nil {
		return core.Budget{}, err
	}
	if b.EndDate, err = parseTime(rawEnd); err != nil {
		return core.Budget{}, err
	}
	b.Duration = core.BudgetDuration(rawDuration)
	return b, nil
}
