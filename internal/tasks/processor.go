package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-engine/internal/cache"
	"github.com/noah-isme/pricing-engine/internal/events"
)

// Processor drops cached pricing data after writes.
type Processor struct {
	Cache  *cache.JSON
	Logger zerolog.Logger
}

// Register binds the processor handlers on mux.
func (p Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeRulesChanged, p.HandleRulesChanged)
	mux.HandleFunc(TypeBaseChanged, p.HandleBaseChanged)
}

// HandleRulesChanged removes every cached rule set version of the profile.
// Quotes reload the current version on their next miss.
func (p Processor) HandleRulesChanged(ctx context.Context, t *asynq.Task) error {
	var payload events.RulesChanged
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.ProfileID == "" {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	removed, err := p.Cache.DeletePrefix(ctx, cache.ProfileRulesPattern(payload.ProfileID))
	if err != nil {
		return fmt.Errorf("drop cached rules of %s: %w", payload.ProfileID, err)
	}
	p.Logger.Debug().
		Str("profile_id", payload.ProfileID).
		Int64("version", payload.Version).
		Int("removed", removed).
		Msg("rule cache invalidated")
	return nil
}

// HandleBaseChanged removes the cached article list. Per-article entries are
// refreshed by the writer; deleting them here would let a read that started
// before the write fill the old price back in.
func (p Processor) HandleBaseChanged(ctx context.Context, t *asynq.Task) error {
	var payload events.BasePriceChanged
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if err := p.Cache.Delete(ctx, cache.KeyArticleList()); err != nil {
		return fmt.Errorf("drop cached article list: %w", err)
	}
	p.Logger.Debug().Strs("codes", payload.Codes).Msg("catalog cache invalidated")
	return nil
}
