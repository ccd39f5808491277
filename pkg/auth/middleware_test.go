package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenMiddleware(t *testing.T) {
	hash, err := HashToken("letmein")
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := TokenMiddleware(hash)(ok)

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"valid", "letmein", http.StatusNoContent},
		{"wrong", "guess", http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/admin/reels/x", nil)
			if tc.token != "" {
				req.Header.Set("X-API-Token", tc.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestTokenMiddlewareUnconfigured(t *testing.T) {
	h := TokenMiddleware("")(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodDelete, "/admin/reels/x", nil)
	req.Header.Set("X-API-Token", "anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
}
