package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/ports"
	"moneta/internal/schedule"
)

// projectionCap bounds how far an infinite series is expanded in one call.
const projectionCap = 1000

// Occurrence is one entry in the combined chronological feed: either an
// actual journal row or a virtual expansion of a scheduled obligation.
type Occurrence struct {
	Date          time.Time
	Name          string
	Type          core.TransactionType
	Amount        decimal.Decimal
	Category      string
	Subcategory   string
	AccountID     *int64
	Scheduled     bool
	ObligationID  int64
	TransactionID int64
	Status        core.ObligationStatus
}

// Projector expands obligations and the journal into a virtual occurrence
// list over a window. It never writes: repeated calls against the same stored
// state return the same feed.
type Projector struct {
	store ports.Store
}

func NewProjector(store ports.Store) *Projector {
	return &Projector{store: store}
}

// Project returns the combined feed of actual transactions and expanded
// scheduled occurrences with dates in [from, to], sorted by date.
func (p *Projector) Project(ctx context.Context, owner string, from, to time.Time) ([]Occurrence, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("projection range end %s before start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	var feed []Occurrence

	actual, err := p.store.TransactionsInRange(ctx, owner, from, to)
	if err != nil {
		return nil, fmt.Errorf("project journal: %w", err)
	}
	for _, t := range actual {
		feed = append(feed, Occurrence{
			Date:          t.Date,
			Name:          t.Title,
			Type:          t.Type,
			Amount:        t.Amount,
			Category:      t.Category,
			Subcategory:   t.Subcategory,
			AccountID:     t.AccountID,
			TransactionID: t.ID,
		})
	}

	obligations, err := p.store.ObligationsThrough(ctx, owner, to)
	if err != nil {
		return nil, fmt.Errorf("project obligations: %w", err)
	}
	for _, ob := range obligations {
		expanded, err := p.expand(ctx, ob, from, to)
		if err != nil {
			return nil, err
		}
		feed = append(feed, expanded...)
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Date.Before(feed[j].Date)
	})
	return feed, nil
}

// expand turns one stored occurrence row into its virtual entries inside the
// window. A resolved row represents a single already-decided point. A still
// scheduled recurring row walks forward for however many occurrences remain
// in its series.
func (p *Projector) expand(ctx context.Context, ob core.ScheduledTransaction, from, to time.Time) ([]Occurrence, error) {
	if ob.Status.Terminal() || ob.Repeat == core.RepeatOnce {
		if ob.DateScheduled.Before(from) || ob.DateScheduled.After(to) {
			return nil, nil
		}
		return []Occurrence{virtual(ob, ob.DateScheduled)}, nil
	}

	remaining, err := p.remaining(ctx, ob)
	if err != nil {
		return nil, err
	}

	var out []Occurrence
	current := ob.DateScheduled
	for step := 0; step < remaining && !current.After(to); step++ {
		if !current.Before(from) {
			out = append(out, virtual(ob, current))
		}
		next, ok := schedule.Next(current, ob.Repeat)
		if !ok {
			break
		}
		current = next
	}
	return out, nil
}

// remaining computes how many occurrences are left in the series: the root's
// declared count minus the already-resolved rows, or the safety cap for an
// infinite series.
func (p *Projector) remaining(ctx context.Context, ob core.ScheduledTransaction) (int, error) {
	root, err := p.store.ObligationByID(ctx, ob.Root())
	if err != nil {
		return 0, fmt.Errorf("series root %d: %w", ob.Root(), err)
	}
	if root.Repeats == 0 {
		return projectionCap, nil
	}

	resolved, err := p.store.ResolvedCountInSeries(ctx, root.ID)
	if err != nil {
		return 0, err
	}
	remaining := root.Repeats - resolved
	if remaining < 0 {
		remaining = 0
	}
	if remaining > projectionCap {
		remaining = projectionCap
	}
	return remaining, nil
}

func virtual(ob core.ScheduledTransaction, date time.Time) Occurrence {
	return Occurrence{
		Date:         date,
		Name:         ob.Name,
		Type:         ob.Type,
		Amount:       ob.Amount,
		Category:     ob.Category,
		Subcategory:  ob.Subcategory,
		AccountID:    ob.AccountID,
		Scheduled:    true,
		ObligationID: ob.ID,
		Status:       ob.Status,
	}
}
