package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/ports"
)

// fakeStore is an in-memory ports.Store. InTx snapshots all state before
// running fn and restores it on error, mirroring a database rollback.
type fakeStore struct {
	nextID       int64
	accounts     map[int64]core.Account
	transactions map[int64]core.Transaction
	obligations  map[int64]core.ScheduledTransaction
	budgets      map[int64]core.Budget

	// Injectable failures.
	createTransactionErr error
	createObligationErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:     make(map[int64]core.Account),
		transactions: make(map[int64]core.Transaction),
		obligations:  make(map[int64]core.ScheduledTransaction),
		budgets:      make(map[int64]core.Budget),
	}
}

func cloneAccount(a core.Account) core.Account {
	switch v := a.(type) {
	case *core.DebitAccount:
		c := *v
		return &c
	case *core.CreditAccount:
		c := *v
		return &c
	case *core.Wallet:
		c := *v
		return &c
	}
	return a
}

func (f *fakeStore) snapshot() *fakeStore {
	s := newFakeStore()
	s.nextID = f.nextID
	for id, a := range f.accounts {
		s.accounts[id] = cloneAccount(a)
	}
	for id, t := range f.transactions {
		s.transactions[id] = t
	}
	for id, ob := range f.obligations {
		s.obligations[id] = ob
	}
	for id, b := range f.budgets {
		s.budgets[id] = b
	}
	return s
}

func (f *fakeStore) restore(s *fakeStore) {
	f.nextID = s.nextID
	f.accounts = s.accounts
	f.transactions = s.transactions
	f.obligations = s.obligations
	f.budgets = s.budgets
}

func (f *fakeStore) InTx(_ context.Context, fn func(ports.Store) error) error {
	saved := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(saved)
		return err
	}
	return nil
}

// AccountStore

func (f *fakeStore) CreateAccount(_ context.Context, account core.Account) (int64, error) {
	f.nextID++
	account.Info().ID = f.nextID
	f.accounts[f.nextID] = cloneAccount(account)
	return f.nextID, nil
}

func (f *fakeStore) AccountByID(_ context.Context, id int64) (core.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (f *fakeStore) AccountsByOwner(_ context.Context, owner string) ([]core.Account, error) {
	var out []core.Account
	for _, a := range f.accounts {
		if a.Info().Owner == owner {
			out = append(out, cloneAccount(a))
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateAccountBalances(_ context.Context, account core.Account) error {
	id := account.Info().ID
	if _, ok := f.accounts[id]; !ok {
		return core.ErrNotFound
	}
	f.accounts[id] = cloneAccount(account)
	return nil
}

func (f *fakeStore) DeleteAccount(_ context.Context, id int64) error {
	delete(f.accounts, id)
	for tid, t := range f.transactions {
		if t.AccountID != nil && *t.AccountID == id {
			t.AccountID = nil
			f.transactions[tid] = t
		}
	}
	for oid, ob := range f.obligations {
		if ob.AccountID != nil && *ob.AccountID == id {
			ob.AccountID = nil
			f.obligations[oid] = ob
		}
	}
	for bid, b := range f.budgets {
		if b.AccountID == id {
			delete(f.budgets, bid)
		}
	}
	return nil
}

// TransactionStore

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) (int64, error) {
	if f.createTransactionErr != nil {
		return 0, f.createTransactionErr
	}
	f.nextID++
	t.ID = f.nextID
	f.transactions[t.ID] = t
	return t.ID, nil
}

func (f *fakeStore) TransactionByID(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if _, ok := f.transactions[t.ID]; !ok {
		return core.ErrNotFound
	}
	f.transactions[t.ID] = t
	return nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, id int64) error {
	if _, ok := f.transactions[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.transactions, id)
	return nil
}

func (f *fakeStore) TransactionsInRange(_ context.Context, owner string, from, to time.Time) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range f.transactions {
		if t.Owner == owner && !t.Date.Before(from) && !t.Date.After(to) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func matchesFilter(t core.Transaction, filter ports.TransactionFilter) bool {
	if t.Owner != filter.Owner {
		return false
	}
	if filter.Type != "" && t.Type != filter.Type {
		return false
	}
	if filter.AccountID != nil && (t.AccountID == nil || *t.AccountID != *filter.AccountID) {
		return false
	}
	if filter.Category != "" && t.Category != filter.Category {
		return false
	}
	if filter.Subcategory != "" && t.Subcategory != filter.Subcategory {
		return false
	}
	if !filter.From.IsZero() && t.Date.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && t.Date.After(filter.To) {
		return false
	}
	return true
}

func (f *fakeStore) SumAmounts(_ context.Context, filter ports.TransactionFilter) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range f.transactions {
		if matchesFilter(t, filter) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (f *fakeStore) SumByCategory(_ context.Context, owner string, tt core.TransactionType, from, to time.Time) ([]ports.CategorySum, error) {
	sums := make(map[string]decimal.Decimal)
	for _, t := range f.transactions {
		if t.Owner != owner || t.Type != tt || t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		sums[t.Category] = sums[t.Category].Add(t.Amount)
	}
	var out []ports.CategorySum
	for cat, amount := range sums {
		out = append(out, ports.CategorySum{Category: cat, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// ObligationStore

func (f *fakeStore) CreateObligation(_ context.Context, s core.ScheduledTransaction) (int64, error) {
	if f.createObligationErr != nil {
		return 0, f.createObligationErr
	}
	f.nextID++
	s.ID = f.nextID
	f.obligations[s.ID] = s
	return s.ID, nil
}

func (f *fakeStore) ObligationByID(_ context.Context, id int64) (core.ScheduledTransaction, error) {
	ob, ok := f.obligations[id]
	if !ok {
		return core.ScheduledTransaction{}, core.ErrNotFound
	}
	return ob, nil
}

func (f *fakeStore) UpdateObligation(_ context.Context, s core.ScheduledTransaction) error {
	if _, ok := f.obligations[s.ID]; !ok {
		return core.ErrNotFound
	}
	f.obligations[s.ID] = s
	return nil
}

func (f *fakeStore) DeleteObligation(_ context.Context, id int64) error {
	ob, ok := f.obligations[id]
	if !ok {
		return core.ErrNotFound
	}
	root := ob.Root()
	delete(f.obligations, id)
	for oid, other := range f.obligations {
		if other.Root() == root && other.Status == core.StatusScheduled {
			delete(f.obligations, oid)
		}
	}
	return nil
}

func (f *fakeStore) DueObligations(_ context.Context, owner string, now time.Time) ([]core.ScheduledTransaction, error) {
	var out []core.ScheduledTransaction
	for _, ob := range f.obligations {
		if ob.Owner == owner && ob.Status == core.StatusScheduled && !ob.DateScheduled.After(now) {
			out = append(out, ob)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateScheduled.Before(out[j].DateScheduled) })
	return out, nil
}

func (f *fakeStore) ObligationsThrough(_ context.Context, owner string, until time.Time) ([]core.ScheduledTransaction, error) {
	var out []core.ScheduledTransaction
	for _, ob := range f.obligations {
		if ob.Owner == owner && !ob.DateScheduled.After(until) {
			out = append(out, ob)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateScheduled.Before(out[j].DateScheduled) })
	return out, nil
}

func (f *fakeStore) ResolvedCountInSeries(_ context.Context, rootID int64) (int, error) {
	count := 0
	for _, ob := range f.obligations {
		inSeries := ob.ID == rootID || (ob.RootID != nil && *ob.RootID == rootID)
		if inSeries && ob.Status != core.StatusScheduled {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) OwnersWithDue(_ context.Context, now time.Time) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, ob := range f.obligations {
		if ob.Status == core.StatusScheduled && !ob.DateScheduled.After(now) && !seen[ob.Owner] {
			seen[ob.Owner] = true
			out = append(out, ob.Owner)
		}
	}
	sort.Strings(out)
	return out, nil
}

// BudgetStore

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (f *fakeStore) CreateBudget(_ context.Context, b core.Budget) (int64, error) {
	for _, other := range f.budgets {
		if other.Owner == b.Owner && other.Category == b.Category &&
			other.Subcategory == b.Subcategory && other.AccountID == b.AccountID &&
			sameDay(other.StartDate, b.StartDate) {
			return 0, core.ErrDuplicateEntry
		}
	}
	f.nextID++
	b.ID = f.nextID
	f.budgets[b.ID] = b
	return b.ID, nil
}

func (f *fakeStore) BudgetByID(_ context.Context, id int64) (core.Budget, error) {
	b, ok := f.budgets[id]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) ActiveBudgets(_ context.Context, owner string, now time.Time) ([]core.Budget, error) {
	var out []core.Budget
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, b := range f.budgets {
		if b.Owner == owner && !today.Before(b.StartDate) && !today.After(b.EndDate) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) BudgetsEndingOn(_ context.Context, day time.Time) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range f.budgets {
		if sameDay(b.EndDate, day) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) BudgetExists(_ context.Context, owner, category, subcategory string, accountID int64, start time.Time) (bool, error) {
	for _, b := range f.budgets {
		if b.Owner == owner && b.Category == category && b.Subcategory == subcategory &&
			b.AccountID == accountID && sameDay(b.StartDate, start) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) DeleteBudget(_ context.Context, id int64) error {
	if _, ok := f.budgets[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.budgets, id)
	return nil
}

func (f *fakeStore) DeleteBudgetsEndedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for id, b := range f.budgets {
		if b.EndDate.Before(cutoff) {
			delete(f.budgets, id)
			removed++
		}
	}
	return removed, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	resolved []struct {
		ID     int64
		Status core.ObligationStatus
	}
	renewed []int64
	fail    bool
}

func (p *fakePublisher) PublishObligationResolved(_ context.Context, obligationID int64, status core.ObligationStatus) error {
	if p.fail {
		return errors.New("publish failed")
	}
	p.resolved = append(p.resolved, struct {
		ID     int64
		Status core.ObligationStatus
	}{obligationID, status})
	return nil
}

func (p *fakePublisher) PublishBudgetRenewed(_ context.Context, budgetID int64) error {
	if p.fail {
		return errors.New("publish failed")
	}
	p.renewed = append(p.renewed, budgetID)
	return nil
}
