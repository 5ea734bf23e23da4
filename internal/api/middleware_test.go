package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	preflight := serve(h, http.MethodOptions, "/api/sessions")
	assert.Equal(t, http.StatusOK, preflight.Code)
	assert.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, preflight.Header().Get("Access-Control-Allow-Methods"), "DELETE")

	get := serve(h, http.MethodGet, "/api/levels")
	assert.Equal(t, http.StatusTeapot, get.Code)
	assert.Equal(t, "*", get.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddleware(t *testing.T) {
	// one token per hour: only the burst gets through
	h := RateLimitMiddleware(1.0/3600, 2)(okHandler)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/levels").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/levels").Code)

	limited := serve(h, http.MethodGet, "/api/levels")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))

	// health checks are never throttled
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/healthz").Code)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	h := RateLimitMiddleware(0, 0)(okHandler)

	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/levels").Code)
	}
}
