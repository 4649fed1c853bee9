package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/services"
)

type obligationPayload struct {
	ID               int64           `json:"id,omitempty"`
	Name             string          `json:"name"`
	Category         string          `json:"category,omitempty"`
	Subcategory      string          `json:"subcategory,omitempty"`
	Type             string          `json:"type"`
	AccountID        *int64          `json:"account_id"`
	Amount           decimal.Decimal `json:"amount"`
	DateScheduled    string          `json:"date_scheduled"`
	Repeat           string          `json:"repeat"`
	Repeats          int             `json:"repeats"`
	Status           string          `json:"status,omitempty"`
	OccurrenceNumber int             `json:"occurrence_number,omitempty"`
	ParentID         *int64          `json:"parent_id,omitempty"`
	RootID           *int64          `json:"root_id,omitempty"`
	LastOccurrence   *string         `json:"last_occurrence,omitempty"`
	NextOccurrence   *string         `json:"next_occurrence,omitempty"`
}

func (p obligationPayload) toObligation(owner string) (core.ScheduledTransaction, error) {
	date, err := parseDay(p.DateScheduled)
	if err != nil {
		return core.ScheduledTransaction{}, err
	}
	return core.ScheduledTransaction{
		ID:            p.ID,
		Owner:         owner,
		Name:          p.Name,
		Category:      p.Category,
		Subcategory:   p.Subcategory,
		Type:          core.TransactionType(p.Type),
		AccountID:     p.AccountID,
		Amount:        p.Amount,
		DateScheduled: date,
		Repeat:        core.RepeatType(p.Repeat),
		Repeats:       p.Repeats,
	}, nil
}

func fromObligation(ob core.ScheduledTransaction) obligationPayload {
	p := obligationPayload{
		ID:               ob.ID,
		Name:             ob.Name,
		Category:         ob.Category,
		Subcategory:      ob.Subcategory,
		Type:             string(ob.Type),
		AccountID:        ob.AccountID,
		Amount:           ob.Amount,
		DateScheduled:    ob.DateScheduled.Format(dayFormat),
		Repeat:           string(ob.Repeat),
		Repeats:          ob.Repeats,
		Status:           string(ob.Status),
		OccurrenceNumber: ob.OccurrenceNumber,
		ParentID:         ob.ParentID,
		RootID:           ob.RootID,
	}
	if ob.LastOccurrence != nil {
		s := ob.LastOccurrence.Format(dayFormat)
		p.LastOccurrence = &s
	}
	if ob.NextOccurrence != nil {
		s := ob.NextOccurrence.Format(dayFormat)
		p.NextOccurrence = &s
	}
	return p
}

func (s *Server) handleScheduleObligation(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(r)
	if !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	var payload obligationPayload
	if err := decodeBody(r, &payload); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	ob, err := payload.toObligation(owner)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	id, err := s.obligations.Schedule(r.Context(), ob)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.ObligationByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fromObligation(created))
}

func (s *Server) handleListObligations(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(r)
	if !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	until := time.Now().UTC().AddDate(1, 0, 0)
	if v := r.URL.Query().Get("until"); v != "" {
		var err error
		if until, err = parseDay(v); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
	}

	items, err := s.store.ObligationsThrough(r.Context(), owner, until)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payloads := make([]obligationPayload, 0, len(items))
	for _, ob := range items {
		payloads = append(payloads, fromObligation(ob))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) handleDeleteObligation(w http.ResponseWriter, r *http.Request) {
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

	existing, err := s.store.ObligationByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existing.Owner != owner {
		writeError(w, r, core.ErrNotFound)
		return
	}

	if err := s.store.DeleteObligation(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleProcessDue(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(r)
	if !ok {
		writeBadRequest(w, "missing X-User header")
		return
	}

	processed, err := s.obligations.ProcessDue(r.Context(), owner, time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if processed > 0 {
		s.reports.Invalidate(owner)
	}
	writeJSON(w, http.StatusOK, map[string]int{"completed": processed})
}

func (s *Server) handleResolveFailed(w http.ResponseWriter, r *http.Request) {
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

	existing, err := s.store.ObligationByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existing.Owner != owner {
		writeError(w, r, core.ErrNotFound)
		return
	}

	status, err := s.obligations.ResolveFailed(r.Context(), id, time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if status == core.StatusCompleted {
		s.reports.Invalidate(owner)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

type occurrencePayload struct {
	Date          string          `json:"date"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category,omitempty"`
	Subcategory   string          `json:"subcategory,omitempty"`
	AccountID     *int64          `json:"account_id,omitempty"`
	Scheduled     bool            `json:"scheduled"`
	ObligationID  int64           `json:"obligation_id,omitempty"`
	TransactionID int64           `json:"transaction_id,omitempty"`
	Status        string          `json:"status,omitempty"`
}

func fromOccurrence(o services.Occurrence) occurrencePayload {
	return occurrencePayload{
		Date:          o.Date.Format(dayFormat),
		Name:          o.Name,
		Type:          string(o.Type),
		Amount:        o.Amount,
		Category:      o.Category,
		Subcategory:   o.Subcategory,
		AccountID:     o.AccountID,
		Scheduled:     o.Scheduled,
		ObligationID:  o.ObligationID,
		TransactionID: o.TransactionID,
		Status:        string(o.Status),
	}
}

func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
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

	occurrences, err := s.projector.Project(r.Context(), owner, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payloads := make([]occurrencePayload, 0, len(occurrences))
	for _, o := range occurrences {
		payloads = append(payloads, fromOccurrence(o))
	}
	writeJSON(w, http.StatusOK, payloads)
}
