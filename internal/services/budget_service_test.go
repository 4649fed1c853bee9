package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"moneta/internal/core"
)

func seedBudget(t *testing.T, svc *BudgetService, accountID int64, category string, amount string, duration core.BudgetDuration, start time.Time) int64 {
	t.Helper()
	id, err := svc.Create(context.Background(), core.Budget{
		Owner:     "ada",
		Category:  category,
		AccountID: accountID,
		Amount:    dec(amount),
		Duration:  duration,
		StartDate: start,
	})
	if err != nil {
		t.Fatalf("Create budget: %v", err)
	}
	return id
}

func TestCreateDerivesWindowEnd(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewBudgetService(store, nil)
	accountID := seedWallet(t, store, "ada", "Cash", "1000")

	id := seedBudget(t, svc, accountID, "food", "300", core.DurationMonth,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	b, err := store.BudgetByID(ctx, id)
	if err != nil {
		t.Fatalf("BudgetByID: %v", err)
	}
	want := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	if !b.EndDate.Equal(want) {
		t.Errorf("end date = %s, want last day of February %s", b.EndDate, want)
	}

	weekID := seedBudget(t, svc, accountID, "fun", "50", core.DurationWeek,
		time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC))
	wb, _ := store.BudgetByID(ctx, weekID)
	wantWeek := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	if !wb.EndDate.Equal(wantWeek) {
		t.Errorf("week end date = %s, want %s", wb.EndDate, wantWeek)
	}
}

func TestCreateRejectsBothOrNeitherTarget(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewBudgetService(store, nil)
	accountID := seedWallet(t, store, "ada", "Cash", "1000")

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, core.Budget{
		Owner: "ada", AccountID: accountID, Amount: dec("100"),
		Duration: core.DurationMonth, StartDate: start,
	})
	if !errors.Is(err, core.ErrInvalidTarget) {
		t.Errorf("no target error = %v, want ErrInvalidTarget", err)
	}

	_, err = svc.Create(ctx, core.Budget{
		Owner: "ada", Category: "food", Subcategory: "snacks",
		AccountID: accountID, Amount: dec("100"),
		Duration: core.DurationMonth, StartDate: start,
	})
	if !errors.Is(err, core.ErrInvalidTarget) {
		t.Errorf("double target error = %v, want ErrInvalidTarget", err)
	}
}

func TestSpentAndListActive(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewBudgetService(store, nil)
	accountID := seedWallet(t, store, "ada", "Cash", "1000")

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedBudget(t, svc, accountID, "food", "200", core.DurationMonth, start)

	add := func(title, category, amount string, day int, tt core.TransactionType) {
		t.Helper()
		if _, err := store.CreateTransaction(ctx, core.Transaction{
			Owner: "ada", Title: title, Category: category,
			Amount: dec(amount), Type: tt,
			Date:      time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC),
			AccountID: &accountID,
		}); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	add("Groceries", "food", "80", 5, core.Expense)
	add("Takeout", "food", "45.50", 12, core.Expense)
	add("Cinema", "fun", "20", 12, core.Expense) // wrong category
	add("Refund", "food", "30", 14, core.Income) // income never counts

	statuses, err := svc.ListActive(ctx, "ada", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("active budgets = %d, want 1", len(statuses))
	}

	status := statuses[0]
	if !status.Spent.Equal(dec("125.50")) {
		t.Errorf("spent = %s, want 125.50", status.Spent)
	}
	if !status.Remaining.Equal(dec("74.50")) {
		t.Errorf("remaining = %s, want 74.50", status.Remaining)
	}
	if status.PercentUsed != 62.75 {
		t.Errorf("percent used = %v, want 62.75", status.PercentUsed)
	}
}

func TestRenewalOnExactYesterday(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	events := &fakePublisher{}
	svc := NewBudgetService(store, events)
	accountID := seedWallet(t, store, "ada", "Cash", "1000")

	seedBudget(t, svc, accountID, "food", "200", core.DurationMonth,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) // ends Feb 28

	// The day after the window closed: renewal fires.
	renewed, _, err := svc.RenewAndCleanup(ctx, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RenewAndCleanup: %v", err)
	}
	if renewed != 1 {
		t.Fatalf("renewed = %d, want 1", renewed)
	}
	if len(events.renewed) != 1 {
		t.Errorf("renewal events = %d, want 1", len(events.renewed))
	}

	// The successor window is contiguous: Mar 1 through Mar 31.
	successor, err := store.BudgetByID(ctx, events.renewed[0])
	if err != nil {
		t.Fatalf("BudgetByID: %v", err)
	}
	if !successor.StartDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("successor start = %s, want 2026-03-01", successor.StartDate)
	}
	if !successor.EndDate.Equal(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("successor end = %s, want 2026-03-31", successor.EndDate)
	}
}

func TestRenewalSkipsOlderExpiries(t *testing.T) {
	// The pass only looks at budgets that ended exactly yesterday; a window
	// missed for two days is not repaired.
	ctx := context.Background()
	store := newFakeStore()
	svc := NewBudgetService(store, nil)
	accountID := seedWallet(t, store, "ada", "Cash", "1000")

	seedBudget(t, svc, accountID, "food", "200", core.DurationMonth,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) // ends Feb 28

	renewed, _, err := svc.RenewAndCleanup(ctx, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RenewAndCleanup: %v", err)
	}
	if renewed != 0 {
		t.Errorf("renewed = %d, want 0 for a two-day-old expiry", renewed)
	}
}

func TestRenewalIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewBudgetService(store, nil)
	accountID := seedWallet(t, store, "ada", "Cash", "1000")

	seedBudget(t, svc, accountID, "food", "200", core.DurationWeek,
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) // ends Mar 8

	now := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	renewed, _, err := svc.RenewAndCleanup(ctx, now)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if renewed != 1 {
		t.Fatalf("first pass renewed = %d, want 1", renewed)
	}

	renewed, _, err = svc.RenewAndCleanup(ctx, now)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if renewed != 0 {
		t.Errorf("second pass renewed = %d, want 0", renewed)
	}
	if len(store.budgets) != 2 {
		t.Errorf("budgets = %d, want 2 (original and one successor)", len(store.budgets))
	}
}

func TestCleanupRemovesOldGenerations(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewBudgetService(store, nil)
	accountID := seedWallet(t, store, "ada", "Cash", "1000")

	// Ended Jan 31, well past the retention window by mid-March.
	seedBudget(t, svc, accountID, "food", "200", core.DurationMonth,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	// Ended Mar 8, within retention on Mar 10.
	recent := seedBudget(t, svc, accountID, "fun", "50", core.DurationWeek,
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))

	_, removed, err := svc.RenewAndCleanup(ctx, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RenewAndCleanup: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := store.BudgetByID(ctx, recent); err != nil {
		t.Errorf("recently ended budget was removed: %v", err)
	}
}

func TestCreateRejectsUnknownAccount(t *testing.T) {
	store := newFakeStore()
	svc := NewBudgetService(store, nil)

	_, err := svc.Create(context.Background(), core.Budget{
		Owner: "ada", Category: "food", AccountID: 404,
		Amount: dec("100"), Duration: core.DurationMonth,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
