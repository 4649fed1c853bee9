package services

import (
	"context"
	"testing"
	"time"

	"moneta/internal/core"
)

func TestProjectMergesJournalAndObligations(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	proc := NewObligationProcessor(store, nil, "EUR")
	projector := NewProjector(store)

	accountID := seedWallet(t, store, "ada", "Cash", "1000")

	if _, err := store.CreateTransaction(ctx, core.Transaction{
		Owner:     "ada",
		Title:     "Groceries",
		Amount:    dec("30"),
		Type:      core.Expense,
		Date:      time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		AccountID: &accountID,
	}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	seedObligation(t, proc, accountID, "800", core.RepeatMonthly, 0,
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	feed, err := projector.Project(ctx, "ada", from, to)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	// One journal row plus two virtual monthly occurrences (Mar 10, Apr 10).
	if len(feed) != 3 {
		t.Fatalf("feed length = %d, want 3", len(feed))
	}
	if feed[0].Scheduled || feed[0].Name != "Groceries" {
		t.Errorf("feed[0] = %+v, want the journal row first", feed[0])
	}
	for i, want := range []time.Time{
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
	} {
		got := feed[i+1]
		if !got.Scheduled || !got.Date.Equal(want) {
			t.Errorf("feed[%d] date = %s scheduled = %v, want %s scheduled", i+1, got.Date, got.Scheduled, want)
		}
	}
}

func TestProjectFiniteSeriesStopsAtRemaining(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	proc := NewObligationProcessor(store, nil, "EUR")
	projector := NewProjector(store)

	accountID := seedWallet(t, store, "ada", "Cash", "1000")
	seedObligation(t, proc, accountID, "10", core.RepeatWeekly, 3,
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))

	feed, err := projector.Project(ctx, "ada",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	if len(feed) != 3 {
		t.Errorf("feed length = %d, want 3 for a 3-repeat series", len(feed))
	}
}

func TestProjectResolvedRowIsSinglePoint(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	proc := NewObligationProcessor(store, nil, "EUR")
	projector := NewProjector(store)

	accountID := seedWallet(t, store, "ada", "Cash", "1000")
	due := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedObligation(t, proc, accountID, "10", core.RepeatWeekly, 3, due)

	if _, err := proc.ProcessDue(ctx, "ada", due); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}

	feed, err := projector.Project(ctx, "ada",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	// One journal row, the completed occurrence as a fixed point, and the
	// still-scheduled remainder of the series (2 virtual occurrences).
	var journal, completedPoints, virtualScheduled int
	for _, o := range feed {
		switch {
		case !o.Scheduled:
			journal++
		case o.Status == core.StatusCompleted:
			completedPoints++
		default:
			virtualScheduled++
		}
	}
	if journal != 1 || completedPoints != 1 || virtualScheduled != 2 {
		t.Errorf("journal = %d completed = %d scheduled = %d, want 1/1/2",
			journal, completedPoints, virtualScheduled)
	}
}

func TestProjectDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	proc := NewObligationProcessor(store, nil, "EUR")
	projector := NewProjector(store)

	accountID := seedWallet(t, store, "ada", "Cash", "1000")
	seedObligation(t, proc, accountID, "10", core.RepeatDaily, 0,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	first, err := projector.Project(ctx, "ada", from, to)
	if err != nil {
		t.Fatalf("first Project: %v", err)
	}
	second, err := projector.Project(ctx, "ada", from, to)
	if err != nil {
		t.Fatalf("second Project: %v", err)
	}

	if len(first) != len(second) {
		t.Errorf("feed lengths differ: %d then %d", len(first), len(second))
	}
	if len(store.transactions) != 0 {
		t.Errorf("projection created %d journal rows", len(store.transactions))
	}
	if len(store.obligations) != 1 {
		t.Errorf("projection changed obligation count to %d", len(store.obligations))
	}
	if got := walletBalance(t, store, accountID); got != "1000" {
		t.Errorf("projection changed balance to %s", got)
	}
}

func TestProjectInfiniteSeriesIsCapped(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	proc := NewObligationProcessor(store, nil, "EUR")
	projector := NewProjector(store)

	accountID := seedWallet(t, store, "ada", "Cash", "1000")
	seedObligation(t, proc, accountID, "1", core.RepeatDaily, 0,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	// A ten-year daily window would exceed the cap without the bound.
	feed, err := projector.Project(ctx, "ada",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2036, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	if len(feed) != projectionCap {
		t.Errorf("feed length = %d, want capped at %d", len(feed), projectionCap)
	}
}

func TestProjectRejectsInvertedRange(t *testing.T) {
	store := newFakeStore()
	projector := NewProjector(store)

	_, err := projector.Project(context.Background(), "ada",
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Error("expected error for inverted range")
	}
}
