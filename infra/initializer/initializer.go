// Package initializer builds the application dependency graph from
// configuration: logger, database, unit of work, event bus, and the
// payment and model providers.
package initializer

import (
	"context"
	"fmt"

	"github.com/amirasaad/tradelens/infra"
	infraeventbus "github.com/amirasaad/tradelens/infra/eventbus"
	"github.com/amirasaad/tradelens/infra/provider/gemini"
	"github.com/amirasaad/tradelens/infra/provider/stripepayment"
	infrarepository "github.com/amirasaad/tradelens/infra/repository"
	"github.com/amirasaad/tradelens/pkg/app"
	"github.com/amirasaad/tradelens/pkg/config"
	"github.com/amirasaad/tradelens/pkg/domain/events"
	"github.com/amirasaad/tradelens/pkg/eventbus"
)

// InitializeDependencies builds every infrastructure dependency the
// services need.
func InitializeDependencies(cfg *config.App) (*app.Deps, error) {
	deps := &app.Deps{}
	logger := setupLogger(cfg.Log)
	deps.Logger = logger

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("database init failed", "error", err)
		return nil, err
	}
	if err := infrarepository.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto migration failed: %w", err)
	}
	deps.Uow = infrarepository.NewUoW(db)

	var bus eventbus.Bus
	if cfg.Redis.URL != "" {
		bus, err = infraeventbus.NewWithRedis(
			cfg.Redis.URL,
			"tradelens-events",
			"tradelens",
			eventTypes(),
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("redis event bus init failed: %w", err)
		}
	} else {
		bus = infraeventbus.NewWithMemory(logger)
	}
	deps.EventBus = bus

	deps.PaymentProvider = stripepayment.New(cfg.Stripe, logger)

	model, err := gemini.New(context.Background(), cfg.Gemini, logger)
	if err != nil {
		return nil, fmt.Errorf("gemini init failed: %w", err)
	}
	deps.VisionModel = model
	deps.Embedder = model

	return deps, nil
}

// eventTypes maps event type names to constructors for stream decoding.
func eventTypes() map[string]func() events.Event {
	return map[string]func() events.Event{
		"CreditPurchaseSettled": func() events.Event { return &events.CreditPurchaseSettled{} },
		"SubscriptionActivated": func() events.Event { return &events.SubscriptionActivated{} },
		"SubscriptionRenewed":   func() events.Event { return &events.SubscriptionRenewed{} },
		"AnalysisCompleted":     func() events.Event { return &events.AnalysisCompleted{} },
		"AnalysisRefunded":      func() events.Event { return &events.AnalysisRefunded{} },
	}
}
