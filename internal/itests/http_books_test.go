//go:build integration

package itests

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, method, path, who, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, testBaseURL+path, strings.NewReader(body))
	require.NoError(t, err)
	if who != "" {
		req.Header.Set("Authorization", "Bearer "+bearer(who))
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func Test_HTTP_BookReviewScenario(t *testing.T) {
	status, book := call(t, http.MethodPost, "/api/v1/book/", "ann",
		`{"title":"Dune","author":"Frank Herbert","isbn":"9780441172719","publication_date":"1965-08-01"}`)
	require.Equal(t, http.StatusCreated, status, book)
	id := int64(book["id"].(float64))
	assert.Equal(t, float64(userIDs["ann"]), book["created_by"])
	assert.Equal(t, "1965-08-01", book["publication_date"])

	status, page := call(t, http.MethodGet, "/api/v1/book?title=Dune", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), page["total_count"])

	status, page = call(t, http.MethodGet, "/api/v1/book?title=Nope", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), page["total_count"])
	assert.Equal(t, float64(0), page["num_pages"])

	review := fmt.Sprintf(`{"book_id":%d,"body":"a classic","rating":4}`, id)
	status, _ = call(t, http.MethodPost, "/api/v1/review", "ann", review)
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, http.MethodPost, "/api/v1/review", "ann", review)
	assert.Equal(t, http.StatusConflict, status, "one review per user and book")
	assert.Contains(t, body["error"], "already exists")

	status, _ = call(t, http.MethodPost, "/api/v1/review", "bob",
		fmt.Sprintf(`{"book_id":%d,"body":"slow","rating":2}`, id))
	require.Equal(t, http.StatusCreated, status)

	bookPath := fmt.Sprintf("/api/v1/book/%d", id)
	status, book = call(t, http.MethodGet, bookPath, "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), book["average_rating"])
	assert.Equal(t, float64(2), book["total_reviews"])

	status, user := call(t, http.MethodGet, fmt.Sprintf("/api/v1/account/user/%d", userIDs["bob"]), "bob", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), user["reviews_count"])

	status, _ = call(t, http.MethodDelete, bookPath, "bob", "")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, http.MethodDelete, bookPath, "ann", "")
	assert.Equal(t, http.StatusNoContent, status)
	status, body = call(t, http.MethodGet, bookPath, "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not found", body["error"])
}

func Test_HTTP_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		who    string
		body   string
		want   int
	}{
		{"missing title", http.MethodPost, "/api/v1/book", "ann", `{"author":"x"}`, http.StatusBadRequest},
		{"anonymous create", http.MethodPost, "/api/v1/book", "", `{"title":"x","author":"y"}`, http.StatusUnauthorized},
		{"rating out of range", http.MethodPost, "/api/v1/review", "ann", `{"book_id":1,"body":"x","rating":9}`, http.StatusBadRequest},
		{"unknown book", http.MethodPost, "/api/v1/reading_list", "ann", `{"book_id":999999}`, http.StatusBadRequest},
		{"users are not created here", http.MethodPost, "/api/v1/account/user", "ann", `{}`, http.StatusMethodNotAllowed},
		{"bad page", http.MethodGet, "/api/v1/genre?page=x", "", "", http.StatusBadRequest},
		{"bad order", http.MethodGet, "/api/v1/book?order_by=secret", "", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, tc.method, tc.path, tc.who, tc.body)
			assert.Equal(t, tc.want, status, body)
		})
	}
}
