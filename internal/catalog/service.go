package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

type queryProvider interface {
	GetArticle(ctx context.Context, code string) (dbgen.Article, error)
	ListArticles(ctx context.Context) ([]dbgen.Article, error)
	UpsertArticle(ctx context.Context, arg dbgen.UpsertArticleParams) (dbgen.Article, error)
}

// Service owns article base prices.
type Service struct {
	queries queryProvider
	cache   *cache.JSON
	events  *events.Bus
	logger  zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Cache   *cache.JSON
	Events  *events.Bus
	Logger  zerolog.Logger
}

// PriceInput is one base price write.
type PriceInput struct {
	Code        string          `json:"code" validate:"required,max=64"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency" validate:"required,iso4217"`
	Description string          `json:"description" validate:"max=255"`
	Family      string          `json:"family" validate:"max=64"`
}

// BulkItemResult reports the outcome of one bulk item.
type BulkItemResult struct {
	Code    string `json:"code"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	return &Service{
		queries: cfg.Queries,
		cache:   cfg.Cache,
		events:  cfg.Events,
		logger:  cfg.Logger,
	}, nil
}

// GetArticle returns the article with its base price, served from cache when possible.
func (s *Service) GetArticle(ctx context.Context, code string) (pricing.Article, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return pricing.Article{}, common.Validation("code is required").WithDetails(map[string]any{"field": "code"})
	}
	key := cache.KeyArticle(code)
	var cached pricing.Article
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		obs.ObserveCache("article", true)
		return cached, nil
	}
	obs.ObserveCache("article", false)
	row, err := s.queries.GetArticle(ctx, code)
	if err != nil {
		if repo.IsNotFound(err) {
			return pricing.Article{}, common.NotFound("article", code)
		}
		return pricing.Article{}, fmt.Errorf("get article: %w", err)
	}
	article := repo.ArticleFromRow(row)
	if _, err := s.cache.AddJSON(ctx, key, article); err != nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("cache article")
	}
	return article, nil
}

// List returns every article ordered by code. Results are cached until the
// next base price write.
func (s *Service) List(ctx context.Context) ([]pricing.Article, error) {
	key := cache.KeyArticleList()
	var cached []pricing.Article
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		obs.ObserveCache("catalog", true)
		return cached, nil
	}
	obs.ObserveCache("catalog", false)
	rows, err := s.queries.ListArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	out := make([]pricing.Article, 0, len(rows))
	for _, row := range rows {
		out = append(out, repo.ArticleFromRow(row))
	}
	if err := s.cache.SetJSON(ctx, key, out); err != nil {
		s.logger.Warn().Err(err).Msg("cache article list")
	}
	return out, nil
}

// UpsertBasePrice sets the base price of code, creating the article when missing.
func (s *Service) UpsertBasePrice(ctx context.Context, code string, price decimal.Decimal, currency string) (pricing.Article, error) {
	return s.Upsert(ctx, PriceInput{Code: code, Price: price, Currency: currency})
}

// Upsert validates and stores one base price.
func (s *Service) Upsert(ctx context.Context, in PriceInput) (pricing.Article, error) {
	article, err := s.upsert(ctx, in)
	if err != nil {
		return pricing.Article{}, err
	}
	s.afterWrite(ctx, []pricing.Article{article})
	return article, nil
}

// BulkUpsert applies items independently. A failing item never rolls back the
// others; each gets its own result in input order.
func (s *Service) BulkUpsert(ctx context.Context, items []PriceInput) []BulkItemResult {
	results := make([]BulkItemResult, 0, len(items))
	written := make([]pricing.Article, 0, len(items))
	for _, item := range items {
		article, err := s.upsert(ctx, item)
		if err != nil {
			code := strings.TrimSpace(item.Code)
			var appErr *common.AppError
			if !errors.As(err, &appErr) {
				s.logger.Error().Err(err).Str("code", code).Msg("bulk upsert article")
			}
			results = append(results, BulkItemResult{Code: code, Error: errorMessage(err)})
			continue
		}
		written = append(written, article)
		results = append(results, BulkItemResult{Code: article.Code, Success: true})
	}
	if len(written) > 0 {
		s.afterWrite(ctx, written)
	}
	return results
}

func (s *Service) upsert(ctx context.Context, in PriceInput) (pricing.Article, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if err := common.ValidateStruct(in); err != nil {
		return pricing.Article{}, err
	}
	if strings.EqualFold(in.Code, pricing.Wildcard) {
		return pricing.Article{}, common.Validation("%s is reserved for wildcard rules", pricing.Wildcard).
			WithDetails(map[string]any{"field": "code"})
	}
	if in.Price.IsNegative() {
		return pricing.Article{}, common.Validation("price must not be negative").
			WithDetails(map[string]any{"field": "price", "value": in.Price.String()})
	}
	row, err := s.queries.UpsertArticle(ctx, dbgen.UpsertArticleParams{
		Code:        in.Code,
		Description: strings.TrimSpace(in.Description),
		Family:      strings.TrimSpace(in.Family),
		BasePrice:   in.Price,
		Currency:    in.Currency,
	})
	if err != nil {
		return pricing.Article{}, fmt.Errorf("upsert article %s: %w", in.Code, err)
	}
	return repo.ArticleFromRow(row), nil
}

// afterWrite stores the fresh articles over their cache entries and drops the
// list. Entries that cannot be refreshed are deleted instead.
func (s *Service) afterWrite(ctx context.Context, written []pricing.Article) {
	codes := make([]string, 0, len(written))
	stale := []string{cache.KeyArticleList()}
	for _, article := range written {
		codes = append(codes, article.Code)
		if err := s.cache.SetJSON(ctx, cache.KeyArticle(article.Code), article); err != nil {
			s.logger.Warn().Err(err).Str("code", article.Code).Msg("refresh cached article")
			stale = append(stale, cache.KeyArticle(article.Code))
		}
	}
	if err := s.cache.Delete(ctx, stale...); err != nil {
		s.logger.Warn().Err(err).Msg("invalidate article cache")
	}
	s.events.Publish(ctx, s.logger, events.TopicBasePriceUpdated, strings.Join(codes, ","), events.BasePriceChanged{Codes: codes})
}

func errorMessage(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
