package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneta/internal/core"
	"moneta/internal/ports"
	"moneta/internal/schedule"
)

// ObligationProcessor drives the scheduled-obligation state machine: due
// occurrences are validated against the ledger, materialized into journal
// rows and advanced to a terminal status, spawning their successor when the
// series is not exhausted.
type ObligationProcessor struct {
	store    ports.Store
	events   EventPublisher
	currency string
}

func NewObligationProcessor(store ports.Store, events EventPublisher, currency string) *ObligationProcessor {
	return &ObligationProcessor{
		store:    store,
		events:   events,
		currency: currency,
	}
}

// Schedule creates the root occurrence of a new obligation series. Structural
// problems (bad recurrence rule, missing account) reject the write entirely.
func (p *ObligationProcessor) Schedule(ctx context.Context, s core.ScheduledTransaction) (int64, error) {
	s.Status = core.StatusScheduled
	s.OccurrenceNumber = 1
	s.ParentID = nil
	s.RootID = nil

	if err := s.Validate(); err != nil {
		return 0, fmt.Errorf("validate obligation: %w", err)
	}
	if _, err := p.store.AccountByID(ctx, *s.AccountID); err != nil {
		return 0, fmt.Errorf("obligation account: %w", err)
	}

	id, err := p.store.CreateObligation(ctx, s)
	if err != nil {
		return 0, fmt.Errorf("schedule obligation: %w", err)
	}
	return id, nil
}

// ProcessDue runs the state machine over every due scheduled occurrence for
// one owner. Safe to call any number of times: a resolved occurrence is a
// no-op on the next pass. Returns how many occurrences completed.
func (p *ObligationProcessor) ProcessDue(ctx context.Context, owner string, now time.Time) (int, error) {
	due, err := p.store.DueObligations(ctx, owner, now)
	if err != nil {
		return 0, fmt.Errorf("list due obligations: %w", err)
	}

	slog.InfoContext(ctx, "Processing due obligations",
		"owner", owner, "due", len(due), "as_of", now.Format("2006-01-02"))

	completed := 0
	for _, ob := range due {
		status, err := p.process(ctx, ob, now)
		if err != nil {
			slog.ErrorContext(ctx, "Obligation processing error",
				"obligation_id", ob.ID, "name", ob.Name, "error", err)
			continue
		}
		if status == core.StatusCompleted {
			completed++
		}
	}

	slog.InfoContext(ctx, "Due obligation processing complete",
		"owner", owner, "completed", completed, "checked", len(due))
	return completed, nil
}

// ResolveFailed re-attempts one failed occurrence exactly once. If it is
// rejected again it stays failed.
func (p *ObligationProcessor) ResolveFailed(ctx context.Context, id int64, now time.Time) (core.ObligationStatus, error) {
	ob, err := p.store.ObligationByID(ctx, id)
	if err != nil {
		return "", err
	}
	if ob.Status != core.StatusFailed {
		return "", fmt.Errorf("obligation %d is %s, not failed", id, ob.Status)
	}

	// Rewind to scheduled so the attempt runs the normal path once.
	ob.Status = core.StatusScheduled
	return p.process(ctx, ob, now)
}

// process runs steps 2-5 of the state machine for one occurrence: validate,
// materialize, complete, spawn. The whole sequence runs in one store
// transaction; any error that aborts it leaves the occurrence failed rather
// than scheduled, so a partial application can never be silently reprocessed.
func (p *ObligationProcessor) process(ctx context.Context, ob core.ScheduledTransaction, now time.Time) (core.ObligationStatus, error) {
	if ob.Status != core.StatusScheduled || ob.DateScheduled.After(now) {
		return ob.Status, nil
	}

	original := ob

	err := p.store.InTx(ctx, func(tx ports.Store) error {
		if ob.AccountID == nil {
			return fmt.Errorf("obligation %d account: %w", ob.ID, core.ErrNotFound)
		}
		account, err := tx.AccountByID(ctx, *ob.AccountID)
		if err != nil {
			return err
		}

		ledger := NewLedger(tx)
		if err := ledger.Validate(account, ob.Type, ob.Amount); err != nil {
			if errors.Is(err, core.ErrInsufficientFunds) || errors.Is(err, core.ErrCreditLimitExceeded) {
				// Recovered locally: the occurrence is abandoned, the series
				// is not. The account stays untouched.
				ob.Status = core.StatusFailed
				slog.WarnContext(ctx, "Obligation rejected by ledger",
					"obligation_id", ob.ID, "name", ob.Name, "reason", err)
				return tx.UpdateObligation(ctx, ob)
			}
			return err
		}

		if _, err := tx.CreateTransaction(ctx, core.Transaction{
			Owner:       ob.Owner,
			Title:       ob.Name,
			Amount:      ob.Amount,
			Currency:    p.currency,
			Type:        ob.Type,
			Date:        ob.DateScheduled,
			Category:    ob.Category,
			Subcategory: ob.Subcategory,
			AccountID:   ob.AccountID,
			Notes:       fmt.Sprintf("Created from scheduled transaction %q (occurrence %d)", ob.Name, ob.OccurrenceNumber),
		}); err != nil {
			return err
		}

		if err := ledger.Apply(ctx, account, ob.Type, ob.Amount, Forward); err != nil {
			return err
		}

		ob.Status = core.StatusCompleted
		occurred := ob.DateScheduled
		ob.LastOccurrence = &occurred

		successor, spawn := p.successor(ob)
		if spawn {
			next := successor.DateScheduled
			ob.NextOccurrence = &next
			if _, err := tx.CreateObligation(ctx, successor); err != nil {
				return err
			}
		} else {
			ob.NextOccurrence = nil
		}

		return tx.UpdateObligation(ctx, ob)
	})

	if err != nil {
		// The transaction rolled back; nothing was applied. Drop the
		// occurrence bookkeeping staged inside it, so the failed row cannot
		// point at a successor that never existed, then mark it failed so it
		// is surfaced instead of retried forever.
		ob = original
		ob.Status = core.StatusFailed
		if markErr := p.store.UpdateObligation(ctx, ob); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark obligation failed",
				"obligation_id", ob.ID, "error", markErr)
		}
		p.publishResolved(ctx, ob.ID, core.StatusFailed)
		return core.StatusFailed, err
	}

	final := ob.Status
	p.publishResolved(ctx, ob.ID, final)

	if final == core.StatusCompleted {
		slog.InfoContext(ctx, "Obligation completed",
			"obligation_id", ob.ID, "name", ob.Name,
			"amount", ob.Amount.String(), "occurrence", ob.OccurrenceNumber)
	}
	return final, nil
}

// successor derives the next occurrence row, if the series warrants one.
// Repeats counts down: 1 means this occurrence was terminal, 0 means the
// series never ends.
func (p *ObligationProcessor) successor(ob core.ScheduledTransaction) (core.ScheduledTransaction, bool) {
	if ob.Repeats == 1 {
		return core.ScheduledTransaction{}, false
	}
	nextDate, ok := schedule.Next(ob.DateScheduled, ob.Repeat)
	if !ok {
		return core.ScheduledTransaction{}, false
	}

	nextRepeats := ob.Repeats
	if nextRepeats > 1 {
		nextRepeats--
	}

	parent := ob.ID
	root := ob.Root()
	return core.ScheduledTransaction{
		Owner:            ob.Owner,
		Name:             ob.Name,
		Category:         ob.Category,
		Subcategory:      ob.Subcategory,
		Type:             ob.Type,
		AccountID:        ob.AccountID,
		Amount:           ob.Amount,
		DateScheduled:    nextDate,
		Repeat:           ob.Repeat,
		Repeats:          nextRepeats,
		Status:           core.StatusScheduled,
		OccurrenceNumber: ob.OccurrenceNumber + 1,
		ParentID:         &parent,
		RootID:           &root,
	}, true
}

func (p *ObligationProcessor) publishResolved(ctx context.Context, id int64, status core.ObligationStatus) {
	if p.events == nil {
		return
	}
	if err := p.events.PublishObligationResolved(ctx, id, status); err != nil {
		slog.ErrorContext(ctx, "Failed to publish obligation event",
			"obligation_id", id, "status", status, "error", err)
	}
}
