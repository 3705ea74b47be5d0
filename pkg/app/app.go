// Package app assembles the services from their dependencies and wires
// the event handlers onto the bus.
package app

import (
	"log/slog"

	"github.com/amirasaad/tradelens/pkg/config"
	"github.com/amirasaad/tradelens/pkg/eventbus"
	"github.com/amirasaad/tradelens/pkg/provider"
	"github.com/amirasaad/tradelens/pkg/repository"
	"github.com/amirasaad/tradelens/pkg/service/analysis"
	"github.com/amirasaad/tradelens/pkg/service/auth"
	"github.com/amirasaad/tradelens/pkg/service/checkout"
	"github.com/amirasaad/tradelens/pkg/service/knowledge"
	"github.com/amirasaad/tradelens/pkg/service/ledger"
	"github.com/amirasaad/tradelens/pkg/service/payment"
	"github.com/amirasaad/tradelens/pkg/service/user"
)

// Deps holds the infrastructure dependencies the services are built from.
type Deps struct {
	Uow             repository.UnitOfWork
	PaymentProvider provider.Payment
	VisionModel     provider.VisionModel
	Embedder        provider.Embedder
	EventBus        eventbus.Bus
	Logger          *slog.Logger
}

// App is the assembled application.
type App struct {
	Deps   *Deps
	Config *config.App

	AuthService      *auth.Service
	UserService      *user.Service
	LedgerService    *ledger.Service
	KnowledgeService *knowledge.Service
	AnalysisService  *analysis.Service
	CheckoutService  *checkout.Service
	PaymentService   *payment.Service
}

// New builds every service and registers the event handlers.
func New(deps *Deps, cfg *config.App) *App {
	a := &App{
		Deps:   deps,
		Config: cfg,
	}

	a.AuthService = auth.New(deps.Uow, cfg.Auth.Jwt, deps.Logger)
	a.UserService = user.New(deps.Uow, deps.Logger)
	a.LedgerService = ledger.New(deps.Uow, deps.Logger)
	a.KnowledgeService = knowledge.New(deps.Uow, deps.Embedder, deps.Logger)
	a.AnalysisService = analysis.New(
		deps.Uow,
		a.LedgerService,
		a.KnowledgeService,
		deps.VisionModel,
		deps.EventBus,
		analysis.Config{
			Cost:         cfg.Credits.AnalysisCost,
			ModelTimeout: cfg.Gemini.Timeout,
		},
		deps.Logger,
	)
	a.CheckoutService = checkout.New(deps.Uow, deps.PaymentProvider, cfg.Credits, cfg.Stripe, deps.Logger)
	a.PaymentService = payment.New(
		deps.Uow,
		a.LedgerService,
		deps.PaymentProvider,
		deps.EventBus,
		cfg.Credits,
		deps.Logger,
	)

	a.setupEventBus()
	return a
}
