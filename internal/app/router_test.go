package app_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/app"
	"github.com/noah-isme/pricing-engine/internal/config"
	"github.com/noah-isme/pricing-engine/internal/repo"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:              "test",
		DatabaseURL:         config.MemoryDatabaseURL,
		PricingScale:        2,
		RevisionMaxAttempts: 5,
		RevisionBackoff:     time.Millisecond,
		CatalogCacheTTL:     time.Minute,
		RateLimitCalculate:  "3-M",
		BodyLimitBytes:      1 << 16,
		IdempotencyTTL:      time.Minute,
		TaskQueue:           "pricing",
		MetricsNamespace:    "pricing",
		MetricsEnabled:      true,
	}
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	infra := app.NewInfra(repo.NewMemory(), rdb, cfg)
	services, err := app.NewServices(infra, cfg, zerolog.Nop())
	require.NoError(t, err)
	handler, err := app.NewRouter(app.RouterConfig{
		Config:   cfg,
		Logger:   zerolog.Nop(),
		Infra:    infra,
		Services: services,
		Registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequestWithContext(t.Context(), method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestQuoteFlowOverHTTP(t *testing.T) {
	srv := newServer(t)

	resp := call(t, srv, http.MethodPost, "/api/v1/prices/base", map[string]any{"code": "A100", "price": "100", "currency": "EUR"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, srv, http.MethodPost, "/api/v1/profiles", map[string]any{
		"id":   "P1",
		"name": "Retail",
		"items": []map[string]any{
			{"articleCode": "A100", "ruleType": "PERCENT_DISCOUNT", "value": "10", "minQuantity": 1},
			{"articleCode": "A100", "ruleType": "PERCENT_DISCOUNT", "value": "20", "minQuantity": 5},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, srv, http.MethodPost, "/api/v1/profiles/assign", map[string]any{"clientId": "C1", "profileId": "P1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, srv, http.MethodGet, "/api/v1/prices/calculate?code=A100&qty=5&clientId=C1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "3", resp.Header.Get("X-RateLimit-Limit"))
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	var quote struct {
		Data struct {
			UnitPrice  decimal.Decimal `json:"unitPrice"`
			TotalPrice decimal.Decimal `json:"totalPrice"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&quote))
	require.True(t, decimal.NewFromInt(80).Equal(quote.Data.UnitPrice), quote.Data.UnitPrice.String())
	require.True(t, decimal.NewFromInt(400).Equal(quote.Data.TotalPrice), quote.Data.TotalPrice.String())

	resp = call(t, srv, http.MethodGet, "/api/v1/clients/C1/profiles", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, srv, http.MethodDelete, "/api/v1/profiles/P1", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode, "assigned profiles cannot be deleted")
}

func TestCalculateIsRateLimitedPerClient(t *testing.T) {
	srv := newServer(t)
	call(t, srv, http.MethodPost, "/api/v1/prices/base", map[string]any{"code": "A100", "price": "10", "currency": "EUR"})

	for range 3 {
		require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/prices/calculate?code=A100&qty=1&clientId=C9", nil).StatusCode)
	}
	require.Equal(t, http.StatusTooManyRequests, call(t, srv, http.MethodGet, "/api/v1/prices/calculate?code=A100&qty=1&clientId=C9", nil).StatusCode)
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/prices/calculate?code=A100&qty=1&clientId=C8", nil).StatusCode)
}

func TestOperationalEndpoints(t *testing.T) {
	srv := newServer(t)

	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/health/ready", nil).StatusCode)
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/metrics", nil).StatusCode)

	resp := call(t, srv, http.MethodGet, "/api/v1/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
}
