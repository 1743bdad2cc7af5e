package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestMiddlewareEnforcesLimitWithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewStore(client)
	require.NoError(t, err)
	l, err := New(store, "1-M")
	require.NoError(t, err)

	h := Handler{Limiter: l}.Middleware(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/prices/calculate?code=A100&clientId=C1", nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "1", rr.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.NotEmpty(t, rr.Header().Get("Retry-After"))
	require.Contains(t, rr.Body.String(), "RATE_LIMITED")

	other := httptest.NewRequest(http.MethodGet, "/api/v1/prices/calculate?code=A100&clientId=C2", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	require.Equal(t, http.StatusOK, rr.Code, "limits are per client")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store, err := NewStore(client)
	require.NoError(t, err)
	l, err := New(store, "1-S")
	require.NoError(t, err)
	mr.Close()

	var seen error
	h := Handler{Limiter: l, OnError: func(err error) { seen = err }}.Middleware(okHandler())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Error(t, seen)
}

func TestMemoryStoreAndKeys(t *testing.T) {
	store, err := NewStore(nil)
	require.NoError(t, err)
	l, err := New(store, "2-H")
	require.NoError(t, err)

	h := Handler{Limiter: l, Key: func(*http.Request) string { return "static" }}.Middleware(okHandler())
	codes := make([]int, 0, 3)
	for range 3 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{200, 200, 429}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.7, 10.0.0.1")
	require.Equal(t, "ip:10.0.0.7", ByClient(req))

	_, err = New(store, "often")
	require.Error(t, err)
}
