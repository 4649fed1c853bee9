package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
)

type accountPayload struct {
	ID          int64  `json:"id,omitempty"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Balance            *decimal.Decimal `json:"balance,omitempty"`
	MaintainingBalance *decimal.Decimal `json:"maintaining_balance,omitempty"`
	CurrentUsage       *decimal.Decimal `json:"current_usage,omitempty"`
	CreditLimit        *decimal.Decimal `json:"credit_limit,omitempty"`
	PaymentDueDate     *string          `json:"payment_due_date,omitempty"`
	MinimumPayment     *decimal.Decimal `json:"minimum_payment,omitempty"`
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func (p accountPayload) toAccount(owner string) (core.Account, error) {
	info := core.AccountInfo{
		ID:          p.ID,
		Owner:       owner,
		Name:        p.Name,
		Description: p.Description,
	}

	switch core.AccountKind(p.Kind) {
	case core.AccountDebit:
		return &core.DebitAccount{
			AccountInfo:        info,
			Balance:            orZero(p.Balance),
			MaintainingBalance: orZero(p.MaintainingBalance),
		}, nil
	case core.AccountCredit:
		var due *time.Time
		if p.PaymentDueDate != nil {
			d, err := parseDay(*p.PaymentDueDate)
			if err != nil {
				return nil, err
			}
			due = &d
		}
		return &core.CreditAccount{
			AccountInfo:    info,
			CurrentUsage:   orZero(p.CurrentUsage),
			CreditLimit:    orZero(p.CreditLimit),
			PaymentDueDate: due,
			MinimumPayment: orZero(p.MinimumPayment),
		}, nil
	case core.AccountWallet:
		return &core.Wallet{
			AccountInfo: info,
			Balance:     orZero(p.Balance),
		}, nil
	default:
		return nil, fmt.Errorf("unknown account kind %q", p.Kind)
	}
}

func fromAccount(a core.Account) accountPayload {
	info := a.Info()
	p := accountPayload{
		ID:          info.ID,
		Kind:        string(a.Kind()),
		Name:        info.Name,
		Description: info.Description,
	}

	switch v := a.(type) {
	case *core.DebitAccount:
		p.Balance = &v.Balance
		p.MaintainingBalance = &v.MaintainingBalance
	case *core.CreditAccount:
		p.CurrentUsage = &v.CurrentUsage
		p.CreditLimit = &v.CreditLimit
		p.MinimumPayment = &v.MinimumPayment
		if v.PaymentDueDate != nil {
			s := v.PaymentDueDate.Format(dayFormat)
			p.PaymentDueDate = &s
		}
	case *core.Wallet:
		p.Balance = &v.Balance
	}

	return p
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(r)
	if !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	var payload accountPayload
	if err := decodeBody(r, &payload); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	account, err := payload.toAccount(owner)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := account.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.store.CreateAccount(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}

	account.Info().ID = id
	writeJSON(w, http.StatusCreated, fromAccount(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(r)
	if !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	accounts, err := s.store.AccountsByOwner(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payloads := make([]accountPayload, 0, len(accounts))
	for _, a := range accounts {
		payloads = append(payloads, fromAccount(a))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
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

	account, err := s.store.AccountByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if account.Info().Owner != owner {
		writeError(w, r, core.ErrNotFound)
		return
	}

	writeJSON(w, http.StatusOK, fromAccount(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
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

	account, err := s.store.AccountByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if account.Info().Owner != owner {
		writeError(w, r, core.ErrNotFound)
		return
	}

	if err := s.store.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
