package app

import (
	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-engine/internal/assignment"
	"github.com/noah-isme/pricing-engine/internal/catalog"
	"github.com/noah-isme/pricing-engine/internal/config"
	"github.com/noah-isme/pricing-engine/internal/events"
	"github.com/noah-isme/pricing-engine/internal/profile"
	"github.com/noah-isme/pricing-engine/internal/quote"
	"github.com/noah-isme/pricing-engine/internal/special"
	"github.com/noah-isme/pricing-engine/internal/tasks"
)

// Services bundles the domain services built on one Infra.
type Services struct {
	Events      *events.Bus
	Catalog     *catalog.Service
	Profiles    *profile.Service
	Assignments *assignment.Service
	Specials    *special.Service
	Quotes      *quote.Service
}

// NewServices builds every domain service. Events are persisted to the
// store and, when a task client exists, forwarded to the worker queue.
func NewServices(infra *Infra, cfg *config.Config, logger zerolog.Logger) (*Services, error) {
	bus := &events.Bus{Store: infra.Store}
	if infra.TaskClient != nil {
		bus.Notifiers = append(bus.Notifiers, tasks.Notifier{Client: infra.TaskClient, Queue: cfg.TaskQueue})
	}

	cat, err := catalog.NewService(catalog.ServiceConfig{
		Queries: infra.Store,
		Cache:   infra.Cache,
		Events:  bus,
		Logger:  logger.With().Str("component", "catalog").Logger(),
	})
	if err != nil {
		return nil, err
	}
	prof, err := profile.NewService(profile.ServiceConfig{
		Queries:     infra.Store,
		Cache:       infra.Cache,
		Events:      bus,
		Logger:      logger.With().Str("component", "profile").Logger(),
		MaxAttempts: cfg.RevisionMaxAttempts,
		Backoff:     cfg.RevisionBackoff,
	})
	if err != nil {
		return nil, err
	}
	asg, err := assignment.NewService(assignment.ServiceConfig{
		Queries: infra.Store,
		Events:  bus,
		Logger:  logger.With().Str("component", "assignment").Logger(),
	})
	if err != nil {
		return nil, err
	}
	spc, err := special.NewService(special.ServiceConfig{
		Queries: infra.Store,
		Events:  bus,
		Logger:  logger.With().Str("component", "special").Logger(),
	})
	if err != nil {
		return nil, err
	}
	q, err := quote.NewService(quote.ServiceConfig{
		Articles: cat,
		Specials: spc,
		Profiles: asg,
		Rules:    infra.Store,
		Cache:    infra.Cache,
		Scale:    cfg.PricingScale,
		Logger:   logger.With().Str("component", "quote").Logger(),
	})
	if err != nil {
		return nil, err
	}
	return &Services{Events: bus, Catalog: cat, Profiles: prof, Assignments: asg, Specials: spc, Quotes: q}, nil
}
