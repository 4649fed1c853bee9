package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RepeatOnce    RepeatType = "once"
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
	RepeatYearly  RepeatType = "yearly"
)

const (
	StatusScheduled ObligationStatus = "scheduled"
	StatusCompleted ObligationStatus = "completed"
	StatusFailed    ObligationStatus = "failed"
)

type (
	RepeatType       string
	ObligationStatus string

	// ScheduledTransaction is one occurrence of a recurring obligation, not a
	// whole series. A series is the chain of rows linked through ParentID:
	// the root has no parent, every successor points at the occurrence that
	// spawned it. RootID denormalizes the chain head so series lookups do not
	// have to walk parent links.
	//
	// Repeats counts the occurrences remaining from this row onward:
	// 0 means infinite, 1 means this row is the last, N counts down by one
	// on every spawned successor.
	ScheduledTransaction struct {
		ID               int64
		Owner            string
		Name             string
		Category         string
		Subcategory      string
		Type             TransactionType
		AccountID        *int64
		Amount           decimal.Decimal
		DateScheduled    time.Time
		Repeat           RepeatType
		Repeats          int
		Status           ObligationStatus
		OccurrenceNumber int
		ParentID         *int64
		RootID           *int64 // nil for the root row itself
		LastOccurrence   *time.Time
		NextOccurrence   *time.Time
	}
)

func (r RepeatType) Valid() bool {
	switch r {
	case RepeatOnce, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	}
	return false
}

// Recurring reports whether the rule can ever produce a successor.
func (r RepeatType) Recurring() bool {
	return r.Valid() && r != RepeatOnce
}

func (s ObligationStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further automatic transition applies.
func (s ObligationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Root returns the id of the chain head this occurrence belongs to.
func (s ScheduledTransaction) Root() int64 {
	if s.RootID != nil {
		return *s.RootID
	}
	return s.ID
}

func (s ScheduledTransaction) Validate() error {
	if strings.TrimSpace(s.Owner) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if !s.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !s.Type.Valid() {
		return ErrInvalidType
	}
	if s.AccountID == nil {
		return ErrNotFound
	}
	if s.DateScheduled.IsZero() {
		return ErrInvalidRecurrenceRule
	}
	if !s.Repeat.Valid() {
		return ErrInvalidRecurrenceRule
	}
	if s.Repeats < 0 {
		return ErrInvalidRecurrenceRule
	}
	// A one-shot is always a single-row series.
	if s.Repeat == RepeatOnce && s.Repeats != 1 {
		return ErrInvalidRecurrenceRule
	}
	return nil
}
