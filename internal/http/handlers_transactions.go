package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
)

type transactionPayload struct {
	ID          int64           `json:"id,omitempty"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Type        string          `json:"type"`
	Date        string          `json:"date"`
	Category    string          `json:"category,omitempty"`
	Subcategory string          `json:"subcategory,omitempty"`
	AccountID   *int64          `json:"account_id,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

func (p transactionPayload) toTransaction(owner string) (core.Transaction, error) {
	date, err := parseDay(p.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          p.ID,
		Owner:       owner,
		Title:       p.Title,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Type:        core.TransactionType(p.Type),
		Date:        date,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		AccountID:   p.AccountID,
		Notes:       p.Notes,
	}, nil
}

func fromTransaction(t core.Transaction) transactionPayload {
	return transactionPayload{
		ID:          t.ID,
		Title:       t.Title,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Type:        string(t.Type),
		Date:        t.Date.Format(dayFormat),
		Category:    t.Category,
		Subcategory: t.Subcategory,
		AccountID:   t.AccountID,
		Notes:       t.Notes,
	}
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(r)
	if !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	var payload transactionPayload
	if err := decodeBody(r, &payload); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	tx, err := payload.toTransaction(owner)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	id, err := s.transactions.Record(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.reports.Invalidate(owner)
	tx.ID = id
	writeJSON(w, http.StatusCreated, fromTransaction(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(r)
	if !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	from, to, err := dateRange(r, time.Now().UTC())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	items, err := s.store.TransactionsInRange(r.Context(), owner, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payloads := make([]transactionPayload, 0, len(items))
	for _, t := range items {
		payloads = append(payloads, fromTransaction(t))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(r)
	if !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.requireTransactionOwner(r, id, owner); err != nil {
		writeError(w, r, err)
		return
	}

	var payload transactionPayload
	if err := decodeBody(r, &payload); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	tx, err := payload.toTransaction(owner)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	tx.ID = id

	if err := s.transactions.Edit(r.Context(), tx); err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Invalidate(owner)
	writeJSON(w, http.StatusOK, fromTransaction(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(r)
	if !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.requireTransactionOwner(r, id, owner); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.transactions.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Invalidate(owner)
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) requireTransactionOwner(r *http.Request, id int64, owner string) error {
	existing, err := s.store.TransactionByID(r.Context(), id)
	if err != nil {
		return err
	}
	if existing.Owner != owner {
		return core.ErrNotFound
	}
	return nil
}

type summaryPayload struct {
	From       string            `json:"from"`
	To         string            `json:"to"`
	Income     decimal.Decimal   `json:"income"`
	Expenses   decimal.Decimal   `json:"expenses"`
	Balance    decimal.Decimal   `json:"balance"`
	ByCategory []categorySumItem `json:"by_category"`
}

type categorySumItem struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(r)
	if !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	from, to, err := dateRange(r, time.Now().UTC())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	summary, err := s.reports.Summarize(r.Context(), owner, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payload := summaryPayload{
		From:     summary.From.Format(dayFormat),
		To:       summary.To.Format(dayFormat),
		Income:   summary.Income,
		Expenses: summary.Expenses,
		Balance:  summary.Balance,
	}
	for _, row := range summary.ByCategory {
		payload.ByCategory = append(payload.ByCategory, categorySumItem{Category: row.Category, Amount: row.Amount})
	}
	writeJSON(w, http.StatusOK, payload)
}
