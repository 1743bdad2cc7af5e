package common_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/common"
)

func TestCallerKeyPrefersClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/prices/calculate?code=A&clientId=%20C1%20", nil)
	require.Equal(t, "C1", common.ClientID(req))
	require.Equal(t, "client:C1", common.CallerKey(req))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/special-prices/C9?clientId=C1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("clientId", "C9")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	require.Equal(t, "client:C9", common.CallerKey(req), "route parameter wins over the query")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/prices/calculate?code=A", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	require.Equal(t, "ip:192.0.2.10", common.CallerKey(req))
}

func TestClientIPSkipsUnparseableHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	req.Header.Set("X-Forwarded-For", "10.0.0.7, 10.0.0.1")
	require.Equal(t, "10.0.0.7", common.ClientIP(req))

	req.Header.Set("X-Forwarded-For", "unknown")
	req.Header.Set("X-Real-IP", "2001:db8::1")
	require.Equal(t, "2001:db8::1", common.ClientIP(req))

	req.Header.Del("X-Real-IP")
	require.Equal(t, "192.0.2.10", common.ClientIP(req))

	require.Empty(t, common.ClientIP(nil))
}
