package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ClientID returns the pricing client a request is about: the {clientId}
// route parameter when the route has one, otherwise the clientId query
// parameter.
func ClientID(r *http.Request) string {
	if r == nil {
		return ""
	}
	if id := strings.TrimSpace(chi.URLParam(r, "clientId")); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("clientId"))
}

// CallerKey identifies the caller for throttling and logs as "client:<id>",
// or "ip:<addr>" for anonymous quotes.
func CallerKey(r *http.Request) string {
	if id := ClientID(r); id != "" {
		return "client:" + id
	}
	return "ip:" + ClientIP(r)
}

// ClientIP returns the first parseable address among X-Forwarded-For,
// X-Real-IP and RemoteAddr.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		if addr, err := netip.ParseAddr(strings.TrimSpace(candidate)); err == nil {
			return addr.String()
		}
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}
