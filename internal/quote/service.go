package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/pricing-engine/internal/cache"
	"github.com/noah-isme/pricing-engine/internal/common"
	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
	"github.com/noah-isme/pricing-engine/internal/obs"
	"github.com/noah-isme/pricing-engine/internal/pricing"
	"github.com/noah-isme/pricing-engine/internal/repo"
)

// maxRuleLoaders bounds concurrent rule reads for one quote.
const maxRuleLoaders = 8

type articleSource interface {
	GetArticle(ctx context.Context, code string) (pricing.Article, error)
}

type specialSource interface {
	Candidates(ctx context.Context, clientID, articleCode string) ([]pricing.SpecialRule, error)
}

type profileSource interface {
	EffectiveProfiles(ctx context.Context, clientID string, extra []string) ([]pricing.Profile, error)
}

type ruleSource interface {
	ListRulesByProfile(ctx context.Context, profileID string) ([]dbgen.PriceRule, error)
}

// Service gathers the committed pricing state for a request and hands it to
// the engine.
type Service struct {
	articles articleSource
	specials specialSource
	profiles profileSource
	rules    ruleSource
	cache    *cache.JSON
	engine   pricing.Engine
	logger   zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Articles articleSource
	Specials specialSource
	Profiles profileSource
	Rules    ruleSource
	Cache    *cache.JSON
	Scale    int32
	Logger   zerolog.Logger
}

// Request identifies what to price.
type Request struct {
	Code     string
	Quantity int
	ClientID string
	// Extra profile ids join the effective set for simulation only.
	Extra []string
	// Exclude profile ids are folded out of the breakdown as a what-if.
	Exclude []string
}

// Result is a quote plus the optional what-if unit price.
type Result struct {
	pricing.Quote
	Excluded          []string         `json:"excluded,omitempty"`
	AdjustedUnitPrice *decimal.Decimal `json:"adjustedUnitPrice,omitempty"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Articles == nil:
		return nil, errors.New("quote: article source is required")
	case cfg.Specials == nil:
		return nil, errors.New("quote: special source is required")
	case cfg.Profiles == nil:
		return nil, errors.New("quote: profile source is required")
	case cfg.Rules == nil:
		return nil, errors.New("quote: rule source is required")
	}
	scale := cfg.Scale
	if scale <= 0 {
		scale = pricing.DefaultScale
	}
	return &Service{
		articles: cfg.Articles,
		specials: cfg.Specials,
		profiles: cfg.Profiles,
		rules:    cfg.Rules,
		cache:    cfg.Cache,
		engine:   pricing.Engine{Scale: scale},
		logger:   cfg.Logger,
	}, nil
}

// Calculate prices req against the currently committed state.
func (s *Service) Calculate(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res, err := s.calculate(ctx, req)
	obs.ObserveQuote(outcome(err), time.Since(start))
	return res, err
}

func (s *Service) calculate(ctx context.Context, req Request) (Result, error) {
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		return Result{}, common.Validation("code is required").WithDetails(map[string]any{"field": "code"})
	}
	if req.Quantity <= 0 {
		return Result{}, common.Validation("quantity must be greater than zero").
			WithDetails(map[string]any{"field": "qty", "value": req.Quantity})
	}

	var (
		article  pricing.Article
		specials []pricing.SpecialRule
		profiles []pricing.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		article, err = s.articles.GetArticle(gctx, req.Code)
		return err
	})
	g.Go(func() (err error) {
		specials, err = s.specials.Candidates(gctx, req.ClientID, req.Code)
		return err
	})
	g.Go(func() (err error) {
		profiles, err = s.profiles.EffectiveProfiles(gctx, req.ClientID, req.Extra)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	withRules, err := s.loadRules(ctx, profiles)
	if err != nil {
		return Result{}, err
	}
	q, err := s.engine.Calculate(pricing.Input{
		Article:  article,
		Quantity: req.Quantity,
		Specials: specials,
		Profiles: withRules,
	})
	if err != nil {
		return Result{}, err
	}
	res := Result{Quote: q}
	if exclude := nonBlank(req.Exclude); len(exclude) > 0 {
		adjusted := pricing.Fold(q.Breakdown, pricing.Without(exclude...)).Round(s.engine.Scale)
		res.Excluded = exclude
		res.AdjustedUnitPrice = &adjusted
	}
	return res, nil
}

// loadRules reads each profile's rule set concurrently, preferring the
// version-keyed cache.
func (s *Service) loadRules(ctx context.Context, profiles []pricing.Profile) ([]pricing.ProfileRules, error) {
	out := make([]pricing.ProfileRules, len(profiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxRuleLoaders)
	for i, p := range profiles {
		g.Go(func() error {
			rules, err := s.rulesOf(gctx, p)
			if err != nil {
				return err
			}
			out[i] = pricing.ProfileRules{Profile: p, Rules: rules}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) rulesOf(ctx context.Context, p pricing.Profile) ([]pricing.Rule, error) {
	key := cache.KeyProfileRules(p.ID, p.Version)
	var cached []pricing.Rule
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		obs.ObserveCache("rules", true)
		return cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("read cached rules")
	}
	obs.ObserveCache("rules", false)
	rows, err := s.rules.ListRulesByProfile(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list rules of %s: %w", p.ID, err)
	}
	rules := repo.RulesFromRows(rows)
	if err := s.cache.SetJSON(ctx, key, rules); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache rules")
	}
	return rules, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrValidation):
		return "invalid"
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	case errors.Is(err, common.ErrConfiguration):
		return "misconfigured"
	default:
		return "error"
	}
}

func nonBlank(ids []string) []string {
	var out []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
