package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/common"
)

func TestIdemRejectsReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	status := http.StatusOK
	calls := 0
	h := common.Idem{R: client, TTL: time.Minute, Logger: zerolog.Nop()}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	send := func(path, key string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if key != "" {
			req.Header.Set(common.IdempotencyHeader, key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send("/api/v1/prices/base/bulk", "k1"))
	require.Equal(t, http.StatusConflict, send("/api/v1/prices/base/bulk", "k1"))
	require.Equal(t, http.StatusOK, send("/api/v1/profiles/P1/rules/bulk", "k1"), "keys are scoped per route")
	require.Equal(t, http.StatusOK, send("/api/v1/prices/base/bulk", ""))
	require.Equal(t, 3, calls)

	status = http.StatusBadRequest
	require.Equal(t, http.StatusBadRequest, send("/api/v1/prices/base/bulk", "k2"))
	status = http.StatusOK
	require.Equal(t, http.StatusOK, send("/api/v1/prices/base/bulk", "k2"), "failed writes release the key")
}
