package special_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/common"
	"github.com/noah-isme/pricing-engine/internal/events"
	"github.com/noah-isme/pricing-engine/internal/pricing"
	"github.com/noah-isme/pricing-engine/internal/repo"
	"github.com/noah-isme/pricing-engine/internal/special"
)

func newService(t *testing.T) (*repo.Memory, *special.Service) {
	t.Helper()
	store := repo.NewMemory()
	svc, err := special.NewService(special.ServiceConfig{Queries: store, Events: &events.Bus{Store: store}, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return store, svc
}

func in(code, ruleType, value string, minQty int) special.RuleInput {
	return special.RuleInput{ArticleCode: code, RuleType: ruleType, Value: decimal.RequireFromString(value), MinQuantity: minQty}
}

func TestGetOverridePrefersExactCode(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t)

	_, err := svc.UpsertOverride(ctx, special.Input{ClientID: "C2", RuleInput: in("total", "PERCENT_DISCOUNT", "5", 1)})
	require.NoError(t, err)
	_, err = svc.UpsertOverride(ctx, special.Input{ClientID: "C2", RuleInput: in("B200", "FIXED_PRICE", "30", 0)})
	require.NoError(t, err)

	rule, err := svc.GetOverride(ctx, "C2", "B200")
	require.NoError(t, err)
	require.Equal(t, pricing.FixedPrice, rule.Type)
	require.Equal(t, 1, rule.MinQuantity)

	rule, err = svc.GetOverride(ctx, "C2", "Z999")
	require.NoError(t, err)
	require.Equal(t, pricing.Wildcard, rule.ArticleCode)

	_, err = svc.GetOverride(ctx, "C3", "B200")
	require.ErrorIs(t, err, common.ErrNotFound)

	candidates, err := svc.Candidates(ctx, "C2", "B200")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, "B200", candidates[0].ArticleCode)

	none, err := svc.Candidates(ctx, "", "B200")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestUpsertOverrideValidation(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t)
	for name, input := range map[string]special.Input{
		"missing client": {RuleInput: in("A", "FIXED_PRICE", "1", 1)},
		"bad type":       {ClientID: "C1", RuleInput: in("A", "FREE", "1", 1)},
		"negative value": {ClientID: "C1", RuleInput: in("A", "FIXED_PRICE", "-3", 1)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpsertOverride(ctx, input)
			require.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestReplaceAndDeleteClientRules(t *testing.T) {
	ctx := context.Background()
	store, svc := newService(t)
	_, err := svc.UpsertOverride(ctx, special.Input{ClientID: "C1", RuleInput: in("OLD", "FIXED_PRICE", "1", 1)})
	require.NoError(t, err)

	rules, err := svc.ReplaceClientRules(ctx, "C1", []special.RuleInput{
		in("B", "FIXED_DISCOUNT", "2", 1),
		in("A", "FIXED_PRICE", "9", 3),
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, "A", rules[0].ArticleCode)
	require.Equal(t, "B", rules[1].ArticleCode)

	_, err = svc.ReplaceClientRules(ctx, "C1", []special.RuleInput{in("A", "FIXED_PRICE", "1", 1), in("A", "FIXED_PRICE", "2", 5)})
	require.ErrorIs(t, err, common.ErrValidation)

	require.NoError(t, svc.DeleteOverride(ctx, "C1", "A"))
	require.ErrorIs(t, svc.DeleteOverride(ctx, "C1", "A"), common.ErrNotFound)

	n, err := svc.DeleteClient(ctx, "C1")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	rules, err = svc.ListByClient(ctx, "C1")
	require.NoError(t, err)
	require.Empty(t, rules)

	for _, ev := range store.Events() {
		require.Equal(t, events.TopicSpecialChanged, ev.Topic)
		require.Equal(t, "C1", ev.AggregateID)
	}
}

func TestSpecialHandlers(t *testing.T) {
	_, svc := newService(t)
	h := special.NewHandler(special.HandlerConfig{Service: svc, Logger: zerolog.Nop()})
	r := chi.NewRouter()
	r.Post("/special-prices", h.Upsert)
	r.Post("/special-prices/profile", h.Replace)
	r.Get("/special-prices/{clientId}", h.List)
	r.Get("/special-prices/{clientId}/override", h.Override)
	r.Delete("/special-prices/{clientId}", h.Delete)

	send := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	rec := send(http.MethodPost, "/special-prices/profile", `{"clientId":"C2","items":[{"articleCode":"B200","ruleType":"FIXED_PRICE","value":"30","minQuantity":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = send(http.MethodPost, "/special-prices", `{"clientId":"C2","articleCode":"TOTAL","ruleType":"PERCENT_DISCOUNT","value":"5"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = send(http.MethodGet, "/special-prices/C2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"articleCode":"B200"`)
	require.Contains(t, rec.Body.String(), `"articleCode":"TOTAL"`)

	rec = send(http.MethodGet, "/special-prices/C2/override?code=X1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"articleCode":"TOTAL"`)

	rec = send(http.MethodDelete, "/special-prices/C2?code=B200", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = send(http.MethodDelete, "/special-prices/C2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"deleted":1`)
}
