package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneta/internal/core"
)

const obligationColumns = `id, owner, name, category, subcategory, transaction_type,
	account_id, amount, date_scheduled, repeat_type, repeats, status,
	occurrence_number, parent_id, root_id, last_occurrence, next_occurrence`

func (r *Repository) CreateObligation(ctx context.Context, s core.ScheduledTransaction) (int64, error) {
	res, err := r.q.ExecContext(ctx, `INSERT INTO scheduled_transactions
		(owner, name, category, subcategory, transaction_type, account_id, amount,
		 date_scheduled, repeat_type, repeats, status, occurrence_number,
		 parent_id, root_id, last_occurrence, next_occurrence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Owner, s.Name, s.Category, s.Subcategory, string(s.Type),
		nullInt64(s.AccountID), s.Amount.String(), fmtTime(s.DateScheduled),
		string(s.Repeat), s.Repeats, string(s.Status), s.OccurrenceNumber,
		nullInt64(s.ParentID), nullInt64(s.RootID),
		nullTime(s.LastOccurrence), nullTime(s.NextOccurrence))
	if err != nil {
		return 0, fmt.Errorf("insert scheduled transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("scheduled transaction insert id: %w", err)
	}

	slog.InfoContext(ctx, "Obligation created",
		"id", id, "owner", s.Owner, "name", s.Name,
		"repeat", s.Repeat, "repeats", s.Repeats, "occurrence", s.OccurrenceNumber)
	return id, nil
}

func (r *Repository) ObligationByID(ctx context.Context, id int64) (core.ScheduledTransaction, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+obligationColumns+` FROM scheduled_transactions WHERE id = ?`, id)
	s, err := scanObligation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.ScheduledTransaction{}, fmt.Errorf("scheduled transaction %d: %w", id, core.ErrNotFound)
		}
		return core.ScheduledTransaction{}, fmt.Errorf("get scheduled transaction: %w", err)
	}
	return s, nil
}

func (r *Repository) UpdateObligation(ctx context.Context, s core.ScheduledTransaction) error {
	res, err := r.q.ExecContext(ctx, `UPDATE scheduled_transactions
		SET status = ?, repeats = ?, last_occurrence = ?, next_occurrence = ?
		WHERE id = ?`,
		string(s.Status), s.Repeats, nullTime(s.LastOccurrence), nullTime(s.NextOccurrence), s.ID)
	if err != nil {
		return fmt.Errorf("update scheduled transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update scheduled transaction rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("scheduled transaction %d: %w", s.ID, core.ErrNotFound)
	}
	return nil
}

// DeleteObligation removes the row together with its not-yet-executed
// descendants. Resolved descendants stay: they document what already happened.
func (r *Repository) DeleteObligation(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `WITH RECURSIVE chain(cid) AS (
			SELECT id FROM scheduled_transactions WHERE id = ?
			UNION ALL
			SELECT s.id FROM scheduled_transactions s JOIN chain ON s.parent_id = chain.cid
		)
		DELETE FROM scheduled_transactions
		WHERE id IN (SELECT cid FROM chain) AND (id = ? OR status = 'scheduled')`,
		id, id)
	if err != nil {
		return fmt.Errorf("delete scheduled transaction chain: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scheduled transaction rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("scheduled transaction %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Obligation deleted", "id", id, "rows_removed", affected)
	return nil
}

func (r *Repository) DueObligations(ctx context.Context, owner string, now time.Time) ([]core.ScheduledTransaction, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+obligationColumns+`
		FROM scheduled_transactions
		WHERE owner = ? AND status = 'scheduled' AND date_scheduled <= ?
		ORDER BY date_scheduled`,
		owner, fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("list due scheduled transactions: %w", err)
	}
	defer rows.Close()
	return collectObligations(rows)
}

func (r *Repository) ObligationsThrough(ctx context.Context, owner string, until time.Time) ([]core.ScheduledTransaction, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+obligationColumns+`
		FROM scheduled_transactions
		WHERE owner = ? AND date_scheduled <= ?
		ORDER BY date_scheduled`,
		owner, fmtTime(until))
	if err != nil {
		return nil, fmt.Errorf("list scheduled transactions through: %w", err)
	}
	defer rows.Close()
	return collectObligations(rows)
}

func (r *Repository) ResolvedCountInSeries(ctx context.Context, rootID int64) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*)
		FROM scheduled_transactions
		WHERE (id = ? OR root_id = ?) AND status != 'scheduled'`,
		rootID, rootID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count resolved in series: %w", err)
	}
	return count, nil
}

func (r *Repository) OwnersWithDue(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT DISTINCT owner
		FROM scheduled_transactions
		WHERE status = 'scheduled' AND date_scheduled <= ?
		ORDER BY owner`,
		fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("list owners with due: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func collectObligations(rows *sql.Rows) ([]core.ScheduledTransaction, error) {
	var out []core.ScheduledTransaction
	for rows.Next() {
		s, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled transaction: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanObligation(row rowScanner) (core.ScheduledTransaction, error) {
	var (
		s                   core.ScheduledTransaction
		rawAmount, rawDate  string
		rawType, rawRepeat  string
		rawStatus           string
		accountID, parentID sql.NullInt64
		rootID              sql.NullInt64
		lastOcc, nextOcc    sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Owner, &s.Name, &s.Category, &s.Subcategory, &rawType,
		&accountID, &rawAmount, &rawDate, &rawRepeat, &s.Repeats, &rawStatus,
		&s.OccurrenceNumber, &parentID, &rootID, &lastOcc, &nextOcc); err != nil {
		return core.ScheduledTransaction{}, err
	}

	var err error
	if s.Amount, err = parseDecimal(rawAmount); err != nil {
		return core.ScheduledTransaction{}, err
	}
	if s.DateScheduled, err = parseTime(rawDate); err != nil {
		return core.ScheduledTransaction{}, err
	}
	if s.LastOccurrence, err = timePtr(lastOcc); err != nil {
		return core.ScheduledTransaction{}, err
	}
	if s.NextOccurrence, err = timePtr(nextOcc); err != nil {
		return core.ScheduledTransaction{}, err
	}
	s.Type = core.TransactionType(rawType)
	s.Repeat = core.RepeatType(rawRepeat)
	s.Status = core.ObligationStatus(rawStatus)
	s.AccountID = int64Ptr(accountID)
	s.ParentID = int64Ptr(parentID)
	s.RootID = int64Ptr(rootID)
	return s, nil
}
