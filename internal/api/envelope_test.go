package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"id": "abc-123"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "abc-123", body["id"])
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query    string
		page     int
		pageSize int
		err      bool
	}{
		{"", 1, DefaultPageSize, false},
		{"page=3&page_size=5", 3, 5, false},
		{"page_size=1000", 1, MaxPageSize, false},
		{"page_size=abc", 1, DefaultPageSize, false},
		{"page_size=0", 1, DefaultPageSize, false},
		{"page=0", 0, 0, true},
		{"page=last", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/images?"+tt.query, nil)
			p, err := ParsePagination(req)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidPage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.pageSize, p.PageSize)
		})
	}
}

func TestNewPage_Links(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://api.test/images?page=2&page_size=10&ordering=-created_at", nil)

	page, err := NewPage(req, Pagination{Page: 2, PageSize: 10}, 25, []string{"a"})
	require.NoError(t, err)

	assert.Equal(t, 25, page.Count)
	require.NotNil(t, page.Next)
	assert.Equal(t, "http://api.test/images?ordering=-created_at&page=3&page_size=10", *page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://api.test/images?ordering=-created_at&page_size=10", *page.Previous)
}

func TestNewPage_FirstAndOnly(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/images", nil)

	page, err := NewPage(req, Pagination{Page: 1, PageSize: 10}, 0, []string{})
	require.NoError(t, err)
	assert.Nil(t, page.Next)
	assert.Nil(t, page.Previous)

	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, page)
	assert.JSONEq(t, `{"count":0,"next":null,"previous":null,"results":[]}`, w.Body.String())
}

func TestNewPage_OutOfRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/images?page=4", nil)

	_, err := NewPage(req, Pagination{Page: 4, PageSize: 10}, 25, nil)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestNewPage_ForwardedProto(t *testing.T) {
	tests := []struct {
		name    string
		trusted bool
		header  string
		want    string
	}{
		{"untrusted header ignored", false, "https", "http://api.test/images?page=2"},
		{"trusted proxy", true, "https", "https://api.test/images?page=2"},
		{"trusted proxy bogus scheme", true, "javascript", "http://api.test/images?page=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var next string
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				page, err := NewPage(r, Pagination{Page: 1, PageSize: 1}, 2, nil)
				require.NoError(t, err)
				require.NotNil(t, page.Next)
				next = *page.Next
			})
			var handler http.Handler = h
			if tt.trusted {
				handler = ForwardedProto(h)
			}

			req := httptest.NewRequest(http.MethodGet, "http://api.test/images", nil)
			req.Header.Set("X-Forwarded-Proto", tt.header)
			handler.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, next)
		})
	}
}
