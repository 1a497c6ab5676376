package request

import (
	"net/http"
	"strconv"
)

// Pagination holds parsed page-based pagination parameters.
type Pagination struct {
	Page  int
	Limit int
}

const (
	DefaultLimit = 30
	MaxLimit     = 100
)

// ParsePagination reads page and limit (alias per_page) from the query
// string. Invalid values fall back to the defaults.
func ParsePagination(r *http.Request) Pagination {
	q := r.URL.Query()
	p := Pagination{Page: 1, Limit: DefaultLimit}

	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		p.Page = page
	}

	limitStr := q.Get("limit")
	if limitStr == "" {
		limitStr = q.Get("per_page")
	}
	if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
		p.Limit = limit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}
