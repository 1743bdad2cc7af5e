package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/health"
	"github.com/noah-isme/pricing-engine/internal/repo"
)

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func ready(t *testing.T, h health.Handler) (int, readiness) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var body readiness
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr.Code, body
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReadyProbesStoreAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := health.Handler{
		Checks: map[string]health.Check{
			"store": health.StoreCheck(repo.NewMemory()),
			"redis": health.RedisCheck(client),
		},
		Timeout: 50 * time.Millisecond,
	}
	code, body := ready(t, h)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]string{"store": "ok", "redis": "ok"}, body.Checks)

	h.Checks["store"] = func(context.Context) error { return errors.New("db down") }
	code, body = ready(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "degraded", body.Status)
	require.Equal(t, "db down", body.Checks["store"])
}

func TestReadinessAfterShutdown(t *testing.T) {
	h := health.Handler{}
	t.Cleanup(func() { health.SetReady(true) })

	code, _ := ready(t, h)
	require.Equal(t, http.StatusOK, code)

	health.SetReady(false)
	code, body := ready(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "draining", body.Status)
}
