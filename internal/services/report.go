package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/cache"
	"moneta/internal/core"
	"moneta/internal/ports"
)

// Summary is the dashboard readout for one date range: totals and an
// expense-by-category breakdown, all recomputed from the journal.
type Summary struct {
	From       time.Time
	To         time.Time
	Income     decimal.Decimal
	Expenses   decimal.Decimal
	Balance    decimal.Decimal
	ByCategory []ports.CategorySum
}

// ReportService produces read-only aggregations over the journal. When a
// cache is supplied, summaries are memoized per owner and range; Invalidate
// must be called after journal writes to keep reads fresh.
type ReportService struct {
	store     ports.TransactionStore
	summaries *cache.LRU[Summary]
}

// NewReportService builds a report service. summaries may be nil, which
// disables caching entirely.
func NewReportService(store ports.TransactionStore, summaries *cache.LRU[Summary]) *ReportService {
	return &ReportService{store: store, summaries: summaries}
}

func (s *ReportService) Summarize(ctx context.Context, owner string, from, to time.Time) (Summary, error) {
	key := summaryKey(owner, from, to)
	if s.summaries != nil {
		if cached, ok := s.summaries.Get(key); ok {
			return cached, nil
		}
	}

	summary := Summary{From: from, To: to}

	income, err := s.store.SumAmounts(ctx, ports.TransactionFilter{
		Owner: owner, Type: core.Income, From: from, To: to,
	})
	if err != nil {
		return summary, fmt.Errorf("sum income: %w", err)
	}

	expenses, err := s.store.SumAmounts(ctx, ports.TransactionFilter{
		Owner: owner, Type: core.Expense, From: from, To: to,
	})
	if err != nil {
		return summary, fmt.Errorf("sum expenses: %w", err)
	}

	byCategory, err := s.store.SumByCategory(ctx, owner, core.Expense, from, to)
	if err != nil {
		return summary, fmt.Errorf("sum by category: %w", err)
	}

	summary.Income = income
	summary.Expenses = expenses
	summary.Balance = income.Sub(expenses)
	summary.ByCategory = byCategory

	if s.summaries != nil {
		s.summaries.Set(key, summary)
	}
	return summary, nil
}

// Invalidate drops every cached summary belonging to owner.
func (s *ReportService) Invalidate(owner string) {
	if s.summaries == nil {
		return
	}
	prefix := owner + "|"
	s.summaries.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func summaryKey(owner string, from, to time.Time) string {
	return owner + "|" + strconv.FormatInt(from.Unix(), 10) + "|" + strconv.FormatInt(to.Unix(), 10)
}
