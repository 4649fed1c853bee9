// Package schedule provides the pure date arithmetic behind recurring
// obligations and budget windows: next-occurrence computation with month-end
// clamping and rolling-window end dates.
package schedule

import (
	"time"

	"moneta/internal/core"
)

// Next computes the occurrence following date under the given recurrence
// rule. The second return value is false when the rule produces no successor
// (a one-shot rule or an unknown rule).
//
// Monthly and yearly advancement keeps the day-of-month where possible and
// clamps to the last valid day of the target month otherwise, so Jan 31
// advances to Feb 29 on leap years and Feb 28 elsewhere. All arithmetic works
// on the calendar fields of the stored instant; no time-zone conversion.
func Next(date time.Time, repeat core.RepeatType) (time.Time, bool) {
	switch repeat {
	case core.RepeatDaily:
		return date.AddDate(0, 0, 1), true
	case core.RepeatWeekly:
		return date.AddDate(0, 0, 7), true
	case core.RepeatMonthly:
		year, month := date.Year(), int(date.Month())+1
		if month > 12 {
			month = 1
			year++
		}
		return withDay(date, year, month, clampDay(date.Day(), year, month)), true
	case core.RepeatYearly:
		year, month := date.Year()+1, int(date.Month())
		return withDay(date, year, month, clampDay(date.Day(), year, month)), true
	default:
		return time.Time{}, false
	}
}

// WindowEnd derives a budget window's inclusive end date from its start.
// A week window spans 7 days (start + 6); a month window ends on the last
// day of the start date's calendar month.
func WindowEnd(start time.Time, duration core.BudgetDuration) time.Time {
	switch duration {
	case core.DurationWeek:
		return start.AddDate(0, 0, 6)
	case core.DurationMonth:
		last := LastDayOfMonth(start.Year(), int(start.Month()))
		return withDay(start, start.Year(), int(start.Month()), last)
	default:
		return start
	}
}

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year, month int) int {
	// Day zero of the following month normalizes to the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SameDay reports whether two instants fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func clampDay(day, year, month int) int {
	if last := LastDayOfMonth(year, month); day > last {
		return last
	}
	return day
}

func withDay(base time.Time, year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day,
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), base.Location())
}
