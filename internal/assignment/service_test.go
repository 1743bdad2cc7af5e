package assignment_test

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

	"github.com/noah-isme/pricing-engine/internal/assignment"
	"github.com/noah-isme/pricing-engine/internal/common"
	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
	"github.com/noah-isme/pricing-engine/internal/events"
	"github.com/noah-isme/pricing-engine/internal/repo"
)

func setup(t *testing.T) (*repo.Memory, *assignment.Service) {
	t.Helper()
	ctx := context.Background()
	store := repo.NewMemory()
	for _, p := range []dbgen.InsertProfileParams{
		{ID: "GP", Name: "global", IsGlobal: true},
		{ID: "P1", Name: "one", Priority: 1},
		{ID: "P2", Name: "two", Priority: 5},
		{ID: "P3", Name: "three"},
	} {
		_, err := store.InsertProfile(ctx, p)
		require.NoError(t, err)
	}
	svc, err := assignment.NewService(assignment.ServiceConfig{Queries: store, Events: &events.Bus{Store: store}, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return store, svc
}

func ids(t *testing.T, svc *assignment.Service, clientID string, extra ...string) []string {
	t.Helper()
	profiles, err := svc.EffectiveProfiles(context.Background(), clientID, extra)
	require.NoError(t, err)
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.ID)
	}
	return out
}

func TestEffectiveProfilesUnion(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)
	require.NoError(t, svc.AssignProfile(ctx, "C1", "P1"))
	require.NoError(t, svc.AssignProfile(ctx, "C1", "P1"), "repeat assignment is a no-op")

	require.Equal(t, []string{"GP"}, ids(t, svc, ""))
	require.Equal(t, []string{"P1", "GP"}, ids(t, svc, "C1"))
	require.Equal(t, []string{"P2", "P1", "GP", "P3"}, ids(t, svc, "C1", "P2", "P1", "missing", "P3", "GP"))
	require.Equal(t, []string{"P1", "GP"}, ids(t, svc, "C1"), "extra ids are never persisted")
}

func TestGlobalProfilesCannotBeAssignedOrUnassigned(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	require.ErrorIs(t, svc.UnassignProfile(ctx, "C1", "GP"), common.ErrValidation)
	require.ErrorIs(t, svc.AssignProfile(ctx, "C1", "GP"), common.ErrValidation)
	require.ErrorIs(t, svc.AssignProfile(ctx, "C1", "nope"), common.ErrNotFound)
	require.ErrorIs(t, svc.AssignProfile(ctx, "", "P1"), common.ErrValidation)
	require.ErrorIs(t, svc.UnassignProfile(ctx, "C1", "P1"), common.ErrNotFound)
}

// staleProfileStore answers the first profile lookup with a non-global copy,
// as a read that raced a switch to global would.
type staleProfileStore struct {
	*repo.Memory
	served bool
}

func (s *staleProfileStore) GetProfile(ctx context.Context, id string) (dbgen.PriceProfile, error) {
	row, err := s.Memory.GetProfile(ctx, id)
	if err == nil && !s.served {
		s.served = true
		row.IsGlobal = false
	}
	return row, err
}

func TestAssignProfileRechecksGlobalFlagAtWrite(t *testing.T) {
	ctx := context.Background()
	store, _ := setup(t)
	stale := &staleProfileStore{Memory: store}
	svc, err := assignment.NewService(assignment.ServiceConfig{Queries: stale, Logger: zerolog.Nop()})
	require.NoError(t, err)

	require.ErrorIs(t, svc.AssignProfile(ctx, "C1", "GP"), common.ErrValidation)
	require.True(t, stale.served)
	assigned, err := store.ListAssignedProfiles(ctx, "C1")
	require.NoError(t, err)
	require.Empty(t, assigned)
	require.Equal(t, []string{"GP"}, ids(t, svc, "C1"))
}

func TestSetAssignmentsSkipsGlobals(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)
	require.NoError(t, svc.AssignProfile(ctx, "C1", "P3"))

	kept, err := svc.SetAssignments(ctx, "C1", []string{"P2", "GP", "P1", "P2"})
	require.NoError(t, err)
	require.Equal(t, []string{"P2", "P1"}, kept)

	_, err = svc.SetAssignments(ctx, "C1", []string{"P1", "ghost"})
	require.ErrorIs(t, err, common.ErrNotFound)
	require.Equal(t, []string{"P2", "P1", "GP"}, ids(t, svc, "C1"), "failed replace leaves the set intact")

	_, err = store.UpsertSpecialPrice(ctx, dbgen.UpsertSpecialPriceParams{ClientID: "C7", ArticleCode: "A", RuleType: "FIXED_PRICE", Value: decimal.NewFromInt(1), MinQuantity: 1})
	require.NoError(t, err)
	summaries, err := svc.ListSummaries(ctx)
	require.NoError(t, err)
	require.Equal(t, []assignment.Summary{
		{ClientID: "C1", ProfileIDs: "P1,P2"},
		{ClientID: "C7", SpecialRuleCount: 1},
	}, summaries)
}

func TestAssignHandlers(t *testing.T) {
	_, svc := setup(t)
	h := assignment.NewHandler(assignment.HandlerConfig{Service: svc, Logger: zerolog.Nop()})
	r := chi.NewRouter()
	r.Get("/profiles/assignments", h.Summaries)
	r.Post("/profiles/assign", h.Assign)
	r.Post("/profiles/unassign", h.Unassign)
	r.Get("/clients/{clientId}/profiles", h.Effective)

	send := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := send(http.MethodPost, "/profiles/assign", `{"clientId":"C1","profileId":"P1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = send(http.MethodPost, "/profiles/assign", `{"clientId":"C2","profileIds":["P2","P3"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"profileIds":["P2","P3"]`)

	rec = send(http.MethodPost, "/profiles/unassign", `{"clientId":"C1","profileId":"GP"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = send(http.MethodPost, "/profiles/unassign", `{"clientId":"C1","profileId":"P1"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = send(http.MethodGet, "/profiles/assignments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"clientId":"C2","profileIds":"P2,P3"`)

	rec = send(http.MethodGet, "/clients/C2/profiles?extra=P1,nope", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":"P1"`)
}
