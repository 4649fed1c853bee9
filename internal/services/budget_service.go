package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/ports"
	"moneta/internal/schedule"
)

// BudgetStatus is a budget with its derived spending figures. Spent is
// recomputed from the journal on every read, never cached.
type BudgetStatus struct {
	core.Budget
	Spent       decimal.Decimal
	Remaining   decimal.Decimal
	PercentUsed float64
}

// budgetRetention is how long an ended budget stays around before cleanup.
const budgetRetention = 7 * 24 * time.Hour

// BudgetService manages rolling budget windows: creation, spending readout,
// contiguous renewal and generational cleanup. Renewal and cleanup run on
// every list read; there is no background scheduler for them.
type BudgetService struct {
	store  ports.Store
	events EventPublisher
}

func NewBudgetService(store ports.Store, events EventPublisher) *BudgetService {
	return &BudgetService{store: store, events: events}
}

// Create persists a new budget, deriving the window end from the duration.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (int64, error) {
	b.StartDate = day(b.StartDate)
	if err := b.Validate(); err != nil {
		return 0, fmt.Errorf("validate budget: %w", err)
	}
	if _, err := s.store.AccountByID(ctx, b.AccountID); err != nil {
		return 0, fmt.Errorf("budget account: %w", err)
	}

	// The end date is always derived, never taken from the caller.
	b.EndDate = schedule.WindowEnd(b.StartDate, b.Duration)

	id, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("create budget: %w", err)
	}
	return id, nil
}

// Spent sums expense transactions matching the budget's target and account
// inside its window.
func (s *BudgetService) Spent(ctx context.Context, b core.Budget) (decimal.Decimal, error) {
	filter := ports.TransactionFilter{
		Owner:     b.Owner,
		Type:      core.Expense,
		AccountID: &b.AccountID,
		From:      day(b.StartDate),
		To:        endOfDay(b.EndDate),
	}
	if b.Subcategory != "" {
		filter.Subcategory = b.Subcategory
	} else {
		filter.Category = b.Category
	}

	spent, err := s.store.SumAmounts(ctx, filter)
	if err != nil {
		return decimal.Zero, fmt.Errorf("compute budget spent: %w", err)
	}
	return spent, nil
}

// ListActive renews and cleans up first, then returns every budget whose
// window contains now together with its derived figures.
func (s *BudgetService) ListActive(ctx context.Context, owner string, now time.Time) ([]BudgetStatus, error) {
	if _, _, err := s.RenewAndCleanup(ctx, now); err != nil {
		return nil, err
	}

	budgets, err := s.store.ActiveBudgets(ctx, owner, now)
	if err != nil {
		return nil, fmt.Errorf("list active budgets: %w", err)
	}

	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		spent, err := s.Spent(ctx, b)
		if err != nil {
			return nil, err
		}
		status := BudgetStatus{
			Budget:    b,
			Spent:     spent,
			Remaining: b.Amount.Sub(spent),
		}
		if b.Amount.IsPositive() {
			percent, _ := spent.Div(b.Amount).Mul(decimal.NewFromInt(100)).Round(2).Float64()
			status.PercentUsed = percent
		}
		out = append(out, status)
	}
	return out, nil
}

// RenewAndCleanup runs one maintenance pass: budgets that ended exactly
// yesterday get a contiguous successor window, and budgets that ended more
// than seven days ago are permanently removed. Running it twice with no
// elapsed time changes nothing.
func (s *BudgetService) RenewAndCleanup(ctx context.Context, now time.Time) (renewed int, removed int64, err error) {
	renewed, err = s.renewExpired(ctx, now)
	if err != nil {
		return 0, 0, err
	}

	removed, err = s.store.DeleteBudgetsEndedBefore(ctx, day(now).Add(-budgetRetention))
	if err != nil {
		return renewed, 0, fmt.Errorf("cleanup budgets: %w", err)
	}
	return renewed, removed, nil
}

// renewExpired renews only budgets whose end date is exactly one day before
// now. A pass skipped for two or more days therefore never repairs the
// missed renewals; the guard keeps repeated runs from stacking duplicates.
func (s *BudgetService) renewExpired(ctx context.Context, now time.Time) (int, error) {
	yesterday := day(now).AddDate(0, 0, -1)
	ending, err := s.store.BudgetsEndingOn(ctx, yesterday)
	if err != nil {
		return 0, fmt.Errorf("list expiring budgets: %w", err)
	}

	renewed := 0
	for _, old := range ending {
		start := day(old.EndDate).AddDate(0, 0, 1)

		exists, err := s.store.BudgetExists(ctx, old.Owner, old.Category, old.Subcategory, old.AccountID, start)
		if err != nil {
			return renewed, fmt.Errorf("check renewal exists: %w", err)
		}
		if exists {
			continue
		}

		successor := core.Budget{
			Owner:       old.Owner,
			Category:    old.Category,
			Subcategory: old.Subcategory,
			AccountID:   old.AccountID,
			Amount:      old.Amount,
			Duration:    old.Duration,
			StartDate:   start,
			EndDate:     schedule.WindowEnd(start, old.Duration),
		}

		id, err := s.store.CreateBudget(ctx, successor)
		if err != nil {
			// A concurrent pass may have renewed between the existence check
			// and the insert; the unique key makes that harmless.
			if errors.Is(err, core.ErrDuplicateEntry) {
				continue
			}
			return renewed, fmt.Errorf("renew budget %d: %w", old.ID, err)
		}

		renewed++
		slog.InfoContext(ctx, "Budget renewed",
			"old_id", old.ID, "new_id", id,
			"target", old.Target(), "start", start.Format("2006-01-02"))

		if s.events != nil {
			if err := s.events.PublishBudgetRenewed(ctx, id); err != nil {
				slog.ErrorContext(ctx, "Failed to publish budget renewal event",
					"budget_id", id, "error", err)
			}
		}
	}
	return renewed, nil
}

// day truncates an instant to midnight UTC of its calendar date.
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
