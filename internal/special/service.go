package special

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-engine/internal/common"
	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
	"github.com/noah-isme/pricing-engine/internal/events"
	"github.com/noah-isme/pricing-engine/internal/pricing"
	"github.com/noah-isme/pricing-engine/internal/repo"
)

type queryProvider interface {
	ListSpecialCandidates(ctx context.Context, arg dbgen.ListSpecialCandidatesParams) ([]dbgen.SpecialPrice, error)
	ListSpecialPricesByClient(ctx context.Context, clientID string) ([]dbgen.SpecialPrice, error)
	UpsertSpecialPrice(ctx context.Context, arg dbgen.UpsertSpecialPriceParams) (dbgen.SpecialPrice, error)
	DeleteSpecialPrice(ctx context.Context, arg dbgen.DeleteSpecialPriceParams) (int64, error)
	DeleteSpecialPricesByClient(ctx context.Context, clientID string) (int64, error)
	ReplaceSpecialPrices(ctx context.Context, clientID string, rows []dbgen.UpsertSpecialPriceParams) error
}

// Service stores per-client special rules that bypass profile layering.
type Service struct {
	queries queryProvider
	events  *events.Bus
	logger  zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Events  *events.Bus
	Logger  zerolog.Logger
}

// RuleInput is one special rule of a client.
type RuleInput struct {
	ArticleCode string          `json:"articleCode" validate:"required,max=64"`
	RuleType    string          `json:"ruleType" validate:"required"`
	Value       decimal.Decimal `json:"value"`
	MinQuantity int             `json:"minQuantity" validate:"gte=0"`
}

// Input is a single special rule write.
type Input struct {
	ClientID string `json:"clientId" validate:"required,max=64"`
	RuleInput
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("special: queries provider is required")
	}
	return &Service{queries: cfg.Queries, events: cfg.Events, logger: cfg.Logger}, nil
}

// Candidates returns the client's rules that may apply to articleCode: the
// exact-code rule first, then the wildcard rule.
func (s *Service) Candidates(ctx context.Context, clientID, articleCode string) ([]pricing.SpecialRule, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, nil
	}
	rows, err := s.queries.ListSpecialCandidates(ctx, dbgen.ListSpecialCandidatesParams{
		ClientID:    clientID,
		ArticleCode: strings.TrimSpace(articleCode),
	})
	if err != nil {
		return nil, fmt.Errorf("list special candidates of %s: %w", clientID, err)
	}
	return repo.SpecialsFromRows(rows), nil
}

// GetOverride returns the rule used for (clientID, articleCode), checking the
// exact code before the wildcard.
func (s *Service) GetOverride(ctx context.Context, clientID, articleCode string) (pricing.SpecialRule, error) {
	candidates, err := s.Candidates(ctx, clientID, articleCode)
	if err != nil {
		return pricing.SpecialRule{}, err
	}
	if len(candidates) == 0 {
		return pricing.SpecialRule{}, common.NotFound("special price", strings.TrimSpace(clientID)+"/"+strings.TrimSpace(articleCode))
	}
	return candidates[0], nil
}

// ListByClient returns every special rule of clientID ordered by article code.
func (s *Service) ListByClient(ctx context.Context, clientID string) ([]pricing.SpecialRule, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, common.Validation("clientId is required").WithDetails(map[string]any{"field": "clientId"})
	}
	rows, err := s.queries.ListSpecialPricesByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list special prices of %s: %w", clientID, err)
	}
	return repo.SpecialsFromRows(rows), nil
}

// UpsertOverride stores one special rule keyed by (client, article code).
func (s *Service) UpsertOverride(ctx context.Context, in Input) (pricing.SpecialRule, error) {
	in.ClientID = strings.TrimSpace(in.ClientID)
	if err := common.ValidateStruct(in); err != nil {
		return pricing.SpecialRule{}, err
	}
	params, err := toParams(in.ClientID, in.RuleInput)
	if err != nil {
		return pricing.SpecialRule{}, err
	}
	row, err := s.queries.UpsertSpecialPrice(ctx, params)
	if err != nil {
		return pricing.SpecialRule{}, fmt.Errorf("upsert special price: %w", err)
	}
	s.changed(ctx, in.ClientID, []string{row.ArticleCode})
	return repo.SpecialFromRow(row), nil
}

// DeleteOverride removes the client's rule for articleCode.
func (s *Service) DeleteOverride(ctx context.Context, clientID, articleCode string) error {
	clientID, articleCode = strings.TrimSpace(clientID), canonicalCode(articleCode)
	if clientID == "" || articleCode == "" {
		return common.Validation("clientId and code are required")
	}
	n, err := s.queries.DeleteSpecialPrice(ctx, dbgen.DeleteSpecialPriceParams{ClientID: clientID, ArticleCode: articleCode})
	if err != nil {
		return fmt.Errorf("delete special price: %w", err)
	}
	if n == 0 {
		return common.NotFound("special price", clientID+"/"+articleCode)
	}
	s.changed(ctx, clientID, []string{articleCode})
	return nil
}

// ReplaceClientRules swaps the client's whole special rule set atomically.
func (s *Service) ReplaceClientRules(ctx context.Context, clientID string, items []RuleInput) ([]pricing.SpecialRule, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, common.Validation("clientId is required").WithDetails(map[string]any{"field": "clientId"})
	}
	rows := make([]dbgen.UpsertSpecialPriceParams, 0, len(items))
	codes := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		params, err := toParams(clientID, item)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[params.ArticleCode]; dup {
			return nil, common.Validation("duplicate special price for %s", params.ArticleCode).
				WithDetails(map[string]any{"index": i, "articleCode": params.ArticleCode})
		}
		seen[params.ArticleCode] = struct{}{}
		rows = append(rows, params)
		codes = append(codes, params.ArticleCode)
	}
	if err := s.queries.ReplaceSpecialPrices(ctx, clientID, rows); err != nil {
		return nil, fmt.Errorf("replace special prices of %s: %w", clientID, err)
	}
	s.changed(ctx, clientID, codes)
	return s.ListByClient(ctx, clientID)
}

// DeleteClient removes every special rule of clientID and reports how many were dropped.
func (s *Service) DeleteClient(ctx context.Context, clientID string) (int64, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return 0, common.Validation("clientId is required").WithDetails(map[string]any{"field": "clientId"})
	}
	n, err := s.queries.DeleteSpecialPricesByClient(ctx, clientID)
	if err != nil {
		return 0, fmt.Errorf("delete special prices of %s: %w", clientID, err)
	}
	if n > 0 {
		s.changed(ctx, clientID, nil)
	}
	return n, nil
}

func (s *Service) changed(ctx context.Context, clientID string, codes []string) {
	s.events.Publish(ctx, s.logger, events.TopicSpecialChanged, clientID, events.ClientChanged{ClientID: clientID, Codes: codes})
}

func canonicalCode(code string) string {
	code = strings.TrimSpace(code)
	if strings.EqualFold(code, pricing.Wildcard) {
		return pricing.Wildcard
	}
	return code
}

func toParams(clientID string, in RuleInput) (dbgen.UpsertSpecialPriceParams, error) {
	in.ArticleCode = canonicalCode(in.ArticleCode)
	if err := common.ValidateStruct(in); err != nil {
		return dbgen.UpsertSpecialPriceParams{}, err
	}
	ruleType, err := pricing.ParseRuleType(in.RuleType)
	if err != nil {
		return dbgen.UpsertSpecialPriceParams{}, common.Validation("%s", err.Error()).
			WithDetails(map[string]any{"field": "ruleType", "allowed": pricing.RuleTypes()})
	}
	if in.Value.IsNegative() {
		return dbgen.UpsertSpecialPriceParams{}, common.Validation("value must not be negative").
			WithDetails(map[string]any{"field": "value", "value": in.Value.String()})
	}
	minQty := in.MinQuantity
	if minQty == 0 {
		minQty = 1
	}
	return dbgen.UpsertSpecialPriceParams{
		ClientID:    clientID,
		ArticleCode: in.ArticleCode,
		RuleType:    string(ruleType),
		Value:       in.Value,
		MinQuantity: int32(minQty),
	}, nil
}
