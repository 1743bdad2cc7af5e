package profile

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-engine/internal/cache"
	"github.com/noah-isme/pricing-engine/internal/common"
	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
	"github.com/noah-isme/pricing-engine/internal/events"
	"github.com/noah-isme/pricing-engine/internal/obs"
	"github.com/noah-isme/pricing-engine/internal/pricing"
	"github.com/noah-isme/pricing-engine/internal/repo"
)

const (
	defaultMaxAttempts = 5
	defaultBackoff     = 10 * time.Millisecond
)

type queryProvider interface {
	GetProfile(ctx context.Context, id string) (dbgen.PriceProfile, error)
	ListProfiles(ctx context.Context) ([]dbgen.PriceProfile, error)
	InsertProfile(ctx context.Context, arg dbgen.InsertProfileParams) (dbgen.PriceProfile, error)
	SaveProfileMeta(ctx context.Context, arg dbgen.UpdateProfileMetaParams) (dbgen.PriceProfile, error)
	DeleteProfile(ctx context.Context, id string) (int64, error)
	CountAssignmentsByProfile(ctx context.Context, profileID string) (int64, error)
	ListRulesByProfile(ctx context.Context, profileID string) ([]dbgen.PriceRule, error)
	CommitRuleRevision(ctx context.Context, rev repo.RuleRevision) (int64, error)
}

// Service manages profiles and their versioned rule sets.
type Service struct {
	queries     queryProvider
	cache       *cache.JSON
	events      *events.Bus
	logger      zerolog.Logger
	maxAttempts int
	backoff     time.Duration
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries     queryProvider
	Cache       *cache.JSON
	Events      *events.Bus
	Logger      zerolog.Logger
	MaxAttempts int
	Backoff     time.Duration
}

// ProfileInput describes profile metadata.
type ProfileInput struct {
	ID          string `json:"id" validate:"omitempty,max=64"`
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=512"`
	IsGlobal    bool   `json:"isGlobal"`
	Priority    int    `json:"priority" validate:"gte=-1000000,lte=1000000"`
}

// RuleInput describes one rule write.
type RuleInput struct {
	ArticleCode string          `json:"articleCode" validate:"required,max=64"`
	RuleType    string          `json:"ruleType" validate:"required"`
	Value       decimal.Decimal `json:"value"`
	MinQuantity int             `json:"minQuantity" validate:"gte=0"`
}

// SaveInput upserts a profile and replaces its whole rule set.
type SaveInput struct {
	ProfileInput
	Items []RuleInput `json:"items" validate:"dive"`
}

// BulkInput applies one rule template to many article codes.
type BulkInput struct {
	ProfileID    string          `json:"profileId" validate:"required"`
	ArticleCodes []string        `json:"articleCodes" validate:"required,min=1,dive,max=64"`
	RuleType     string          `json:"ruleType" validate:"required"`
	Value        decimal.Decimal `json:"value"`
	MinQuantity  int             `json:"minQuantity" validate:"gte=0"`
	Mode         string          `json:"mode" validate:"required"`
}

// Detail is a profile with its ordered rules.
type Detail struct {
	Profile pricing.Profile `json:"profile"`
	Items   []pricing.Rule  `json:"items"`
}

type revision struct {
	upserts []pricing.Rule
	deletes []pricing.RuleKey
}

func (r revision) empty() bool { return len(r.upserts) == 0 && len(r.deletes) == 0 }

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("profile: queries provider is required")
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &Service{
		queries:     cfg.Queries,
		cache:       cfg.Cache,
		events:      cfg.Events,
		logger:      cfg.Logger,
		maxAttempts: attempts,
		backoff:     backoff,
	}, nil
}

// ListProfiles returns every profile ordered by (priority desc, id asc).
func (s *Service) ListProfiles(ctx context.Context) ([]pricing.Profile, error) {
	rows, err := s.queries.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return repo.ProfilesFromRows(rows), nil
}

// GetProfile returns the profile and its rules ordered by article code then tier.
func (s *Service) GetProfile(ctx context.Context, id string) (Detail, error) {
	row, err := s.loadProfile(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	rules, err := s.queries.ListRulesByProfile(ctx, row.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("list rules of %s: %w", row.ID, err)
	}
	return Detail{Profile: repo.ProfileFromRow(row), Items: repo.RulesFromRows(rules)}, nil
}

// CreateProfile stores a new profile without rules. A random id is assigned
// when none is supplied.
func (s *Service) CreateProfile(ctx context.Context, in ProfileInput) (pricing.Profile, error) {
	in = normalizeProfile(in)
	if err := common.ValidateStruct(in); err != nil {
		return pricing.Profile{}, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	row, err := s.queries.InsertProfile(ctx, dbgen.InsertProfileParams{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
		IsGlobal:    in.IsGlobal,
		Priority:    int32(in.Priority),
	})
	if err != nil {
		if repo.IsUniqueViolation(err) {
			return pricing.Profile{}, common.Conflict("profile %q already exists", in.ID).
				WithDetails(map[string]any{"id": in.ID})
		}
		return pricing.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	return repo.ProfileFromRow(row), nil
}

// SaveProfile creates or updates the profile metadata and replaces its rule
// set with in.Items as one revision.
func (s *Service) SaveProfile(ctx context.Context, in SaveInput) (Detail, error) {
	in.ProfileInput = normalizeProfile(in.ProfileInput)
	if err := common.ValidateStruct(in); err != nil {
		return Detail{}, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	desired := make([]pricing.Rule, 0, len(in.Items))
	seen := make(map[pricing.RuleKey]struct{}, len(in.Items))
	for i, item := range in.Items {
		rule, err := ruleFromInput(in.ID, item)
		if err != nil {
			return Detail{}, err
		}
		if _, dup := seen[rule.Key()]; dup {
			return Detail{}, common.Validation("duplicate rule for %s at min quantity %d", rule.ArticleCode, rule.MinQuantity).
				WithDetails(map[string]any{"index": i, "articleCode": rule.ArticleCode, "minQuantity": rule.MinQuantity})
		}
		seen[rule.Key()] = struct{}{}
		desired = append(desired, rule)
	}

	if err := s.saveMeta(ctx, in.ProfileInput); err != nil {
		return Detail{}, err
	}
	_, err := s.revise(ctx, in.ID, func(current []pricing.Rule) (revision, error) {
		return diffRules(current, desired), nil
	})
	if err != nil {
		return Detail{}, err
	}
	return s.GetProfile(ctx, in.ID)
}

func (s *Service) saveMeta(ctx context.Context, in ProfileInput) error {
	_, err := s.queries.SaveProfileMeta(ctx, dbgen.UpdateProfileMetaParams{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
		IsGlobal:    in.IsGlobal,
		Priority:    int32(in.Priority),
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrProfileAssigned):
		return common.Referenced("profile %s is assigned to clients and cannot become global", in.ID).
			WithDetails(map[string]any{"field": "isGlobal", "id": in.ID})
	case repo.IsNotFound(err):
		_, err = s.CreateProfile(ctx, in)
		return err
	default:
		return fmt.Errorf("update profile %s: %w", in.ID, err)
	}
}

// DeleteProfile removes a profile and its rules. Profiles still assigned to a
// client are kept and reported as referenced.
func (s *Service) DeleteProfile(ctx context.Context, id string) error {
	row, err := s.loadProfile(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.queries.CountAssignmentsByProfile(ctx, row.ID)
	if err != nil {
		return fmt.Errorf("count assignments of %s: %w", row.ID, err)
	}
	if n > 0 {
		return referenced(row.ID, n)
	}
	deleted, err := s.queries.DeleteProfile(ctx, row.ID)
	if err != nil {
		if repo.IsForeignKeyViolation(err) {
			return referenced(row.ID, 1)
		}
		return fmt.Errorf("delete profile %s: %w", row.ID, err)
	}
	if deleted == 0 {
		return common.NotFound("profile", row.ID)
	}
	if _, err := s.cache.DeletePrefix(ctx, cache.ProfileRulesPattern(row.ID)); err != nil {
		s.logger.Warn().Err(err).Str("profile_id", row.ID).Msg("drop cached rules")
	}
	s.events.Publish(ctx, s.logger, events.TopicProfileDeleted, row.ID, events.RulesChanged{ProfileID: row.ID, Version: row.Version})
	return nil
}

func referenced(id string, n int64) error {
	return common.Referenced("profile %s is assigned to %d clients", id, n).
		WithDetails(map[string]any{"id": id, "assignments": n})
}

// AddOrUpdateRule upserts one rule keyed by (article code, min quantity).
func (s *Service) AddOrUpdateRule(ctx context.Context, profileID string, in RuleInput) (pricing.Rule, error) {
	profileID = strings.TrimSpace(profileID)
	rule, err := ruleFromInput(profileID, in)
	if err != nil {
		return pricing.Rule{}, err
	}
	_, err = s.revise(ctx, profileID, func(current []pricing.Rule) (revision, error) {
		for _, r := range current {
			if r.Key() == rule.Key() && r.Type == rule.Type && r.Value.Equal(rule.Value) {
				return revision{}, nil
			}
		}
		return revision{upserts: []pricing.Rule{rule}}, nil
	})
	if err != nil {
		return pricing.Rule{}, err
	}
	return rule, nil
}

// RemoveRule deletes the rule at (articleCode, minQuantity).
func (s *Service) RemoveRule(ctx context.Context, profileID, articleCode string, minQuantity int) error {
	profileID = strings.TrimSpace(profileID)
	key := pricing.RuleKey{ArticleCode: canonicalCode(articleCode), MinQuantity: minQuantity}
	if key.MinQuantity == 0 {
		key.MinQuantity = 1
	}
	if key.ArticleCode == "" || key.MinQuantity < 1 {
		return common.Validation("articleCode and a positive minQuantity are required")
	}
	_, err := s.revise(ctx, profileID, func(current []pricing.Rule) (revision, error) {
		for _, r := range current {
			if r.Key() == key {
				return revision{deletes: []pricing.RuleKey{key}}, nil
			}
		}
		return revision{}, common.NotFound("rule", fmt.Sprintf("%s/%s@%d", profileID, key.ArticleCode, key.MinQuantity))
	})
	return err
}

// BulkApplyRules applies one rule to many codes under the requested mode as a
// single revision.
func (s *Service) BulkApplyRules(ctx context.Context, in BulkInput) (BulkResult, error) {
	in.ProfileID = strings.TrimSpace(in.ProfileID)
	if err := common.ValidateStruct(in); err != nil {
		return BulkResult{}, err
	}
	mode, ok := ParseMode(in.Mode)
	if !ok {
		return BulkResult{}, common.Validation("unknown mode %q", in.Mode).
			WithDetails(map[string]any{"field": "mode", "allowed": []Mode{ModeAdd, ModeUpdate, ModeReplace}})
	}
	codes := make([]string, 0, len(in.ArticleCodes))
	for _, c := range in.ArticleCodes {
		codes = append(codes, canonicalCode(c))
	}
	template, err := ruleFromInput(in.ProfileID, RuleInput{
		ArticleCode: pricing.Wildcard,
		RuleType:    in.RuleType,
		Value:       in.Value,
		MinQuantity: in.MinQuantity,
	})
	if err != nil {
		return BulkResult{}, err
	}

	var result BulkResult
	version, err := s.revise(ctx, in.ProfileID, func(current []pricing.Rule) (revision, error) {
		var upserts []pricing.Rule
		upserts, result = planBulk(current, codes, template, mode)
		return revision{upserts: upserts}, nil
	})
	if err != nil {
		obs.ObserveBulkApply(string(mode), "error")
		return BulkResult{}, err
	}
	obs.ObserveBulkApply(string(mode), "ok")
	result.Version = version
	return result, nil
}

// revise runs plan against the committed rule set and commits the outcome
// with a compare-and-swap on the profile version, retrying on conflict.
func (s *Service) revise(ctx context.Context, profileID string, plan func(current []pricing.Rule) (revision, error)) (int64, error) {
	for attempt := 1; ; attempt++ {
		row, err := s.loadProfile(ctx, profileID)
		if err != nil {
			return 0, err
		}
		rows, err := s.queries.ListRulesByProfile(ctx, row.ID)
		if err != nil {
			return 0, fmt.Errorf("list rules of %s: %w", row.ID, err)
		}
		rev, err := plan(repo.RulesFromRows(rows))
		if err != nil {
			return 0, err
		}
		if rev.empty() {
			return row.Version, nil
		}
		version, err := s.queries.CommitRuleRevision(ctx, toRuleRevision(row, rev))
		if err == nil {
			obs.ObserveRevision("committed")
			s.events.Publish(ctx, s.logger, events.TopicProfileRulesChanged, row.ID, events.RulesChanged{
				ProfileID: row.ID,
				Version:   version,
				Upserted:  len(rev.upserts),
				Deleted:   len(rev.deletes),
			})
			return version, nil
		}
		if !errors.Is(err, repo.ErrVersionConflict) {
			obs.ObserveRevision("error")
			return 0, fmt.Errorf("commit rules of %s: %w", row.ID, err)
		}
		obs.ObserveRevision("conflict")
		if attempt >= s.maxAttempts {
			obs.ObserveRevision("exhausted")
			return 0, common.Conflict("profile %s changed concurrently; gave up after %d attempts", row.ID, attempt).
				WithDetails(map[string]any{"profileId": row.ID, "attempts": attempt})
		}
		s.logger.Debug().Str("profile_id", row.ID).Int("attempt", attempt).Int64("version", row.Version).Msg("rule revision conflict, retrying")
		if err := sleep(ctx, s.jitter(attempt)); err != nil {
			return 0, err
		}
	}
}

func (s *Service) jitter(attempt int) time.Duration {
	return time.Duration(attempt)*s.backoff + rand.N(s.backoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) loadProfile(ctx context.Context, id string) (dbgen.PriceProfile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return dbgen.PriceProfile{}, common.Validation("profile id is required").WithDetails(map[string]any{"field": "id"})
	}
	row, err := s.queries.GetProfile(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return dbgen.PriceProfile{}, common.NotFound("profile", id)
		}
		return dbgen.PriceProfile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return row, nil
}

func toRuleRevision(row dbgen.PriceProfile, rev revision) repo.RuleRevision {
	out := repo.RuleRevision{ProfileID: row.ID, ExpectedVersion: row.Version}
	for _, r := range rev.upserts {
		out.Upserts = append(out.Upserts, repo.UpsertParams(r))
	}
	for _, k := range rev.deletes {
		out.Deletes = append(out.Deletes, dbgen.DeleteRuleParams{ProfileID: row.ID, ArticleCode: k.ArticleCode, MinQuantity: int32(k.MinQuantity)})
	}
	return out
}

// diffRules turns current into desired with the fewest writes.
func diffRules(current, desired []pricing.Rule) revision {
	want := make(map[pricing.RuleKey]pricing.Rule, len(desired))
	for _, r := range desired {
		want[r.Key()] = r
	}
	var rev revision
	have := make(map[pricing.RuleKey]pricing.Rule, len(current))
	for _, r := range current {
		have[r.Key()] = r
		if _, keep := want[r.Key()]; !keep {
			rev.deletes = append(rev.deletes, r.Key())
		}
	}
	for _, r := range desired {
		if old, ok := have[r.Key()]; ok && old.Type == r.Type && old.Value.Equal(r.Value) {
			continue
		}
		rev.upserts = append(rev.upserts, r)
	}
	return rev
}

func normalizeProfile(in ProfileInput) ProfileInput {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

func canonicalCode(code string) string {
	code = strings.TrimSpace(code)
	if strings.EqualFold(code, pricing.Wildcard) {
		return pricing.Wildcard
	}
	return code
}

func ruleFromInput(profileID string, in RuleInput) (pricing.Rule, error) {
	in.ArticleCode = canonicalCode(in.ArticleCode)
	if err := common.ValidateStruct(in); err != nil {
		return pricing.Rule{}, err
	}
	ruleType, err := pricing.ParseRuleType(in.RuleType)
	if err != nil {
		return pricing.Rule{}, common.Validation("%s", err.Error()).
			WithDetails(map[string]any{"field": "ruleType", "allowed": pricing.RuleTypes()})
	}
	if in.Value.IsNegative() {
		return pricing.Rule{}, common.Validation("rule value must not be negative").
			WithDetails(map[string]any{"field": "value", "value": in.Value.String()})
	}
	minQty := in.MinQuantity
	if minQty == 0 {
		minQty = 1
	}
	return pricing.Rule{
		ProfileID:   profileID,
		ArticleCode: in.ArticleCode,
		Type:        ruleType,
		Value:       in.Value,
		MinQuantity: minQty,
	}, nil
}
