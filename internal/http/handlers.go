package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const dayFormat = "2006-01-02"

// ownerFrom extracts the acting user from the X-User header.
func ownerFrom(r *http.Request) (string, bool) {
	owner := strings.TrimSpace(r.Header.Get("X-User"))
	return owner, owner != ""
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// parseDay parses a YYYY-MM-DD query parameter.
func parseDay(v string) (time.Time, error) {
	t, err := time.Parse(dayFormat, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", v)
	}
	return t.UTC(), nil
}

// dateRange reads from/to query parameters. Absent values default to the
// current month to date.
func dateRange(r *http.Request, now time.Time) (from, to time.Time, err error) {
	from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to = time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)

	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = parseDay(v); err != nil {
			return from, to, err
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		var day time.Time
		if day, err = parseDay(v); err != nil {
			return from, to, err
		}
		to = day.Add(24*time.Hour - time.Second)
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("date range is inverted")
	}
	return from, to, nil
}
