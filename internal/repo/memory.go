package repo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
)

type ruleKey struct {
	profileID   string
	articleCode string
	minQuantity int32
}

type pairKey struct {
	clientID string
	other    string
}

// Memory is an in-process Store mirroring the postgres constraints. It backs
// tests and DATABASE_URL=memory:// deployments.
type Memory struct {
	mu          sync.RWMutex
	now         func() time.Time
	articles    map[string]dbgen.Article
	profiles    map[string]dbgen.PriceProfile
	rules       map[ruleKey]dbgen.PriceRule
	assignments map[pairKey]dbgen.ClientProfile
	specials    map[pairKey]dbgen.SpecialPrice
	events      []dbgen.DomainEvent
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		now:         time.Now,
		articles:    map[string]dbgen.Article{},
		profiles:    map[string]dbgen.PriceProfile{},
		rules:       map[ruleKey]dbgen.PriceRule{},
		assignments: map[pairKey]dbgen.ClientProfile{},
		specials:    map[pairKey]dbgen.SpecialPrice{},
	}
}

func (m *Memory) ts() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: m.now().UTC(), Valid: true}
}

func pgErr(code, constraint string) error {
	return &pgconn.PgError{Code: code, ConstraintName: constraint, Message: constraint}
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Events returns a copy of the recorded domain events.
func (m *Memory) Events() []dbgen.DomainEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]dbgen.DomainEvent(nil), m.events...)
}

func (m *Memory) GetArticle(_ context.Context, code string) (dbgen.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.articles[code]
	if !ok {
		return dbgen.Article{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *Memory) ListArticles(context.Context) ([]dbgen.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]dbgen.Article, 0, len(m.articles))
	for _, a := range m.articles {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) UpsertArticle(_ context.Context, arg dbgen.UpsertArticleParams) (dbgen.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if arg.BasePrice.IsNegative() {
		return dbgen.Article{}, pgErr("23514", "articles_base_price_check")
	}
	a := m.articles[arg.Code]
	a.Code = arg.Code
	a.BasePrice = arg.BasePrice
	a.Currency = arg.Currency
	if arg.Description != "" {
		a.Description = arg.Description
	}
	if arg.Family != "" {
		a.Family = arg.Family
	}
	a.UpdatedAt = m.ts()
	m.articles[arg.Code] = a
	return a, nil
}

func (m *Memory) GetProfile(_ context.Context, id string) (dbgen.PriceProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return dbgen.PriceProfile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *Memory) ListProfiles(context.Context) ([]dbgen.PriceProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedProfiles(func(dbgen.PriceProfile) bool { return true }), nil
}

func (m *Memory) ListGlobalProfiles(context.Context) ([]dbgen.PriceProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedProfiles(func(p dbgen.PriceProfile) bool { return p.IsGlobal }), nil
}

func (m *Memory) sortedProfiles(keep func(dbgen.PriceProfile) bool) []dbgen.PriceProfile {
	out := make([]dbgen.PriceProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		if keep(p) {
			out = append(out, p)
		}
	}
	sortProfiles(out)
	return out
}

func sortProfiles(out []dbgen.PriceProfile) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
}

func (m *Memory) InsertProfile(_ context.Context, arg dbgen.InsertProfileParams) (dbgen.PriceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[arg.ID]; exists {
		return dbgen.PriceProfile{}, pgErr(pgUniqueViolation, "price_profiles_pkey")
	}
	now := m.ts()
	p := dbgen.PriceProfile{
		ID:          arg.ID,
		Name:        arg.Name,
		Description: arg.Description,
		IsGlobal:    arg.IsGlobal,
		Priority:    arg.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.profiles[arg.ID] = p
	return p, nil
}

func (m *Memory) UpdateProfileMeta(_ context.Context, arg dbgen.UpdateProfileMetaParams) (dbgen.PriceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateProfileMetaLocked(arg)
}

func (m *Memory) updateProfileMetaLocked(arg dbgen.UpdateProfileMetaParams) (dbgen.PriceProfile, error) {
	p, ok := m.profiles[arg.ID]
	if !ok {
		return dbgen.PriceProfile{}, pgx.ErrNoRows
	}
	p.Name = arg.Name
	p.Description = arg.Description
	p.IsGlobal = arg.IsGlobal
	p.Priority = arg.Priority
	p.UpdatedAt = m.ts()
	m.profiles[arg.ID] = p
	return p, nil
}

func (m *Memory) LockProfile(ctx context.Context, id string) (dbgen.PriceProfile, error) {
	return m.GetProfile(ctx, id)
}

// SaveProfileMeta checks assignments and updates under one lock.
func (m *Memory) SaveProfileMeta(_ context.Context, arg dbgen.UpdateProfileMetaParams) (dbgen.PriceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[arg.ID]; ok && arg.IsGlobal && !p.IsGlobal {
		for k := range m.assignments {
			if k.other == arg.ID {
				return dbgen.PriceProfile{}, ErrProfileAssigned
			}
		}
	}
	return m.updateProfileMetaLocked(arg)
}

func (m *Memory) DeleteProfile(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[id]; !ok {
		return 0, nil
	}
	for k := range m.assignments {
		if k.other == id {
			return 0, pgErr(pgForeignKeyViolation, "client_profiles_profile_id_fkey")
		}
	}
	delete(m.profiles, id)
	for k := range m.rules {
		if k.profileID == id {
			delete(m.rules, k)
		}
	}
	return 1, nil
}

func (m *Memory) BumpProfileVersion(_ context.Context, arg dbgen.BumpProfileVersionParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.bumpLocked(arg.ID, arg.Version) {
		return 0, nil
	}
	return 1, nil
}

func (m *Memory) bumpLocked(id string, expected int64) bool {
	p, ok := m.profiles[id]
	if !ok || p.Version != expected {
		return false
	}
	p.Version++
	p.UpdatedAt = m.ts()
	m.profiles[id] = p
	return true
}

func (m *Memory) ListRulesByProfile(_ context.Context, profileID string) ([]dbgen.PriceRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dbgen.PriceRule
	for k, r := range m.rules {
		if k.profileID == profileID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ArticleCode != out[j].ArticleCode {
			return out[i].ArticleCode < out[j].ArticleCode
		}
		return out[i].MinQuantity < out[j].MinQuantity
	})
	return out, nil
}

func (m *Memory) UpsertRule(_ context.Context, arg dbgen.UpsertRuleParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertRuleLocked(arg)
}

func (m *Memory) upsertRuleLocked(arg dbgen.UpsertRuleParams) error {
	if _, ok := m.profiles[arg.ProfileID]; !ok {
		return pgErr(pgForeignKeyViolation, "price_rules_profile_id_fkey")
	}
	if arg.MinQuantity < 1 {
		return pgErr("23514", "price_rules_min_quantity_check")
	}
	m.rules[ruleKey{arg.ProfileID, arg.ArticleCode, arg.MinQuantity}] = dbgen.PriceRule(arg)
	return nil
}

func (m *Memory) DeleteRule(_ context.Context, arg dbgen.DeleteRuleParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteRuleLocked(arg), nil
}

func (m *Memory) deleteRuleLocked(arg dbgen.DeleteRuleParams) int64 {
	k := ruleKey{arg.ProfileID, arg.ArticleCode, arg.MinQuantity}
	if _, ok := m.rules[k]; !ok {
		return 0
	}
	delete(m.rules, k)
	return 1
}

// CommitRuleRevision applies rev under the store lock when the version matches.
func (m *Memory) CommitRuleRevision(_ context.Context, rev RuleRevision) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[rev.ProfileID]
	if !ok || p.Version != rev.ExpectedVersion {
		return 0, ErrVersionConflict
	}
	for _, u := range rev.Upserts {
		if u.ProfileID != rev.ProfileID {
			return 0, pgErr(pgForeignKeyViolation, "price_rules_profile_id_fkey")
		}
		if u.MinQuantity < 1 {
			return 0, pgErr("23514", "price_rules_min_quantity_check")
		}
	}
	for _, d := range rev.Deletes {
		m.deleteRuleLocked(d)
	}
	for _, u := range rev.Upserts {
		_ = m.upsertRuleLocked(u)
	}
	m.bumpLocked(rev.ProfileID, rev.ExpectedVersion)
	return rev.ExpectedVersion + 1, nil
}

func (m *Memory) InsertAssignment(_ context.Context, arg dbgen.InsertAssignmentParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertAssignmentLocked(arg.ClientID, arg.ProfileID), nil
}

// insertAssignmentLocked skips missing and global profiles and existing
// pairs, reporting the number of rows written.
func (m *Memory) insertAssignmentLocked(clientID, profileID string) int64 {
	p, ok := m.profiles[profileID]
	if !ok || p.IsGlobal {
		return 0
	}
	k := pairKey{clientID, profileID}
	if _, ok := m.assignments[k]; ok {
		return 0
	}
	m.assignments[k] = dbgen.ClientProfile{ClientID: clientID, ProfileID: profileID, CreatedAt: m.ts()}
	return 1
}

func (m *Memory) DeleteAssignment(_ context.Context, arg dbgen.DeleteAssignmentParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{arg.ClientID, arg.ProfileID}
	if _, ok := m.assignments[k]; !ok {
		return 0, nil
	}
	delete(m.assignments, k)
	return 1, nil
}

func (m *Memory) DeleteAssignmentsByClient(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearAssignmentsLocked(clientID)
	return nil
}

func (m *Memory) clearAssignmentsLocked(clientID string) {
	for k := range m.assignments {
		if k.clientID == clientID {
			delete(m.assignments, k)
		}
	}
}

func (m *Memory) CountAssignmentsByProfile(_ context.Context, profileID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for k := range m.assignments {
		if k.other == profileID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) ListAssignedProfiles(_ context.Context, clientID string) ([]dbgen.PriceProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dbgen.PriceProfile
	for k := range m.assignments {
		if k.clientID != clientID {
			continue
		}
		if p, ok := m.profiles[k.other]; ok {
			out = append(out, p)
		}
	}
	sortProfiles(out)
	return out, nil
}

func (m *Memory) ListAssignmentSummaries(context.Context) ([]dbgen.ListAssignmentSummariesRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profiles := map[string][]string{}
	specials := map[string]int64{}
	for k := range m.assignments {
		profiles[k.clientID] = append(profiles[k.clientID], k.other)
	}
	for k := range m.specials {
		specials[k.clientID]++
		if _, ok := profiles[k.clientID]; !ok {
			profiles[k.clientID] = nil
		}
	}
	out := make([]dbgen.ListAssignmentSummariesRow, 0, len(profiles))
	for clientID, ids := range profiles {
		sort.Strings(ids)
		out = append(out, dbgen.ListAssignmentSummariesRow{
			ClientID:     clientID,
			ProfileIds:   strings.Join(ids, ","),
			SpecialCount: specials[clientID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out, nil
}

// ReplaceAssignments swaps the client's assignments atomically.
func (m *Memory) ReplaceAssignments(_ context.Context, clientID string, profileIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range profileIDs {
		if p, ok := m.profiles[id]; !ok || p.IsGlobal {
			return fmt.Errorf("insert assignment %s: %w", id, ErrNotAssignable)
		}
	}
	m.clearAssignmentsLocked(clientID)
	for _, id := range profileIDs {
		m.insertAssignmentLocked(clientID, id)
	}
	return nil
}

func (m *Memory) ListSpecialCandidates(_ context.Context, arg dbgen.ListSpecialCandidatesParams) ([]dbgen.SpecialPrice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dbgen.SpecialPrice
	if sp, ok := m.specials[pairKey{arg.ClientID, arg.ArticleCode}]; ok {
		out = append(out, sp)
	}
	if arg.ArticleCode != "TOTAL" {
		if sp, ok := m.specials[pairKey{arg.ClientID, "TOTAL"}]; ok {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (m *Memory) ListSpecialPricesByClient(_ context.Context, clientID string) ([]dbgen.SpecialPrice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dbgen.SpecialPrice
	for k, sp := range m.specials {
		if k.clientID == clientID {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArticleCode < out[j].ArticleCode })
	return out, nil
}

func (m *Memory) UpsertSpecialPrice(_ context.Context, arg dbgen.UpsertSpecialPriceParams) (dbgen.SpecialPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertSpecialLocked(arg)
}

func (m *Memory) upsertSpecialLocked(arg dbgen.UpsertSpecialPriceParams) (dbgen.SpecialPrice, error) {
	if arg.MinQuantity < 1 {
		return dbgen.SpecialPrice{}, pgErr("23514", "special_prices_min_quantity_check")
	}
	sp := dbgen.SpecialPrice{
		ClientID:    arg.ClientID,
		ArticleCode: arg.ArticleCode,
		RuleType:    arg.RuleType,
		Value:       arg.Value,
		MinQuantity: arg.MinQuantity,
		UpdatedAt:   m.ts(),
	}
	m.specials[pairKey{arg.ClientID, arg.ArticleCode}] = sp
	return sp, nil
}

func (m *Memory) DeleteSpecialPrice(_ context.Context, arg dbgen.DeleteSpecialPriceParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{arg.ClientID, arg.ArticleCode}
	if _, ok := m.specials[k]; !ok {
		return 0, nil
	}
	delete(m.specials, k)
	return 1, nil
}

func (m *Memory) DeleteSpecialPricesByClient(_ context.Context, clientID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearSpecialsLocked(clientID), nil
}

func (m *Memory) clearSpecialsLocked(clientID string) int64 {
	var n int64
	for k := range m.specials {
		if k.clientID == clientID {
			delete(m.specials, k)
			n++
		}
	}
	return n
}

// ReplaceSpecialPrices swaps the client's special prices atomically.
func (m *Memory) ReplaceSpecialPrices(_ context.Context, clientID string, rows []dbgen.UpsertSpecialPriceParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		if row.MinQuantity < 1 {
			return pgErr("23514", "special_prices_min_quantity_check")
		}
	}
	m.clearSpecialsLocked(clientID)
	for _, row := range rows {
		row.ClientID = clientID
		if _, err := m.upsertSpecialLocked(row); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) InsertDomainEvent(_ context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := dbgen.DomainEvent{
		ID:          pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Topic:       arg.Topic,
		AggregateID: arg.AggregateID,
		Payload:     append([]byte(nil), arg.Payload...),
		OccurredAt:  m.ts(),
	}
	m.events = append(m.events, ev)
	return ev, nil
}
