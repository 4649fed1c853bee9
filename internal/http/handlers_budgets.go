package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/services"
)

type budgetPayload struct {
	ID          int64           `json:"id,omitempty"`
	Category    string          `json:"category,omitempty"`
	Subcategory string          `json:"subcategory,omitempty"`
	AccountID   int64           `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Duration    string          `json:"duration"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date,omitempty"`

	Spent       *decimal.Decimal `json:"spent,omitempty"`
	Remaining   *decimal.Decimal `json:"remaining,omitempty"`
	PercentUsed *float64         `json:"percent_used,omitempty"`
}

func (p budgetPayload) toBudget(owner string) (core.Budget, error) {
	start, err := parseDay(p.StartDate)
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{
		ID:          p.ID,
		Owner:       owner,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		AccountID:   p.AccountID,
		Amount:      p.Amount,
		Duration:    core.BudgetDuration(p.Duration),
		StartDate:   start,
	}, nil
}

func fromBudget(b core.Budget) budgetPayload {
	return budgetPayload{
		ID:          b.ID,
		Category:    b.Category,
		Subcategory: b.Subcategory,
		AccountID:   b.AccountID,
		Amount:      b.Amount,
		Duration:    string(b.Duration),
		StartDate:   b.StartDate.Format(dayFormat),
		EndDate:     b.EndDate.Format(dayFormat),
	}
}

func fromBudgetStatus(bs services.BudgetStatus) budgetPayload {
	p := fromBudget(bs.Budget)
	p.Spent = &bs.Spent
	p.Remaining = &bs.Remaining
	p.PercentUsed = &bs.PercentUsed
	return p
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(r)
	if !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	var payload budgetPayload
	if err := decodeBody(r, &payload); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	budget, err := payload.toBudget(owner)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	id, err := s.budgets.Create(r.Context(), budget)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.BudgetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fromBudget(created))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(r)
	if !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	statuses, err := s.budgets.ListActive(r.Context(), owner, time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}

	payloads := make([]budgetPayload, 0, len(statuses))
	for _, bs := range statuses {
		payloads = append(payloads, fromBudgetStatus(bs))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
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

	existing, err := s.store.BudgetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existing.Owner != owner {
		writeError(w, r, core.ErrNotFound)
		return
	}

	if err := s.store.DeleteBudget(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleMaintainBudgets(w http.ResponseWriter, r *http.Request) {
	if _, ok := ownerFrom(r); !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	renewed, removed, err := s.budgets.RenewAndCleanup(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"renewed": int64(renewed), "removed": removed})
}
