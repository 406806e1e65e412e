package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ErrInvalidPage is returned for a page number outside the result set.
var ErrInvalidPage = errors.New("invalid page")

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// Page is a paginated list response.
type Page struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// Pagination is the page window requested by a list call.
type Pagination struct {
	Page     int
	PageSize int
}

// ParsePagination reads page and page_size from the query string. A missing
// page means the first one; a malformed or non-positive page is invalid.
// page_size is clamped to MaxPageSize and falls back to the default when unusable.
func ParsePagination(r *http.Request) (Pagination, error) {
	p := Pagination{Page: 1, PageSize: DefaultPageSize}
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, ErrInvalidPage
		}
		p.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.PageSize = min(n, MaxPageSize)
		}
	}
	return p, nil
}

// NewPage builds the list response for results of page p out of total items.
// Next and previous links point back at the request URL with page rewritten.
func NewPage(r *http.Request, p Pagination, total int, results any) (Page, error) {
	lastPage := max(1, (total+p.PageSize-1)/p.PageSize)
	if p.Page > lastPage {
		return Page{}, ErrInvalidPage
	}

	page := Page{Count: total, Results: results}
	if p.Page < lastPage {
		next := pageURL(r, p.Page+1)
		page.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(r, p.Page-1)
		page.Previous = &prev
	}
	return page, nil
}

func pageURL(r *http.Request, n int) string {
	u := url.URL{
		Scheme: "http",
		Host:   r.Host,
		Path:   r.URL.Path,
	}
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if proto, ok := r.Context().Value(forwardedProtoKey).(string); ok {
		u.Scheme = proto
	}

	q := r.URL.Query()
	if n == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// WriteJSON serialises v as JSON and writes it to w with the given HTTP status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("WriteJSON: failed to encode response", "error", err)
	}
}
