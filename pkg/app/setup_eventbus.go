package app

import (
	"context"

	"github.com/amirasaad/tradelens/pkg/domain/events"
)

// setupEventBus registers the event handlers. Settlement and analysis
// events currently feed the audit log; delivery is best effort and
// handler failures never reach the emitting service.
func (a *App) setupEventBus() {
	bus := a.Deps.EventBus
	logger := a.Deps.Logger.With("component", "audit")

	bus.Register("CreditPurchaseSettled", func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.CreditPurchaseSettled)
		if !ok {
			return nil
		}
		logger.Info("credit purchase settled",
			"user_id", evt.UserID,
			"credits", evt.Credits,
			"amount_eur", evt.AmountEUR,
			"event_id", evt.EventID,
		)
		return nil
	})

	bus.Register("SubscriptionActivated", func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.SubscriptionActivated)
		if !ok {
			return nil
		}
		logger.Info("subscription activated",
			"user_id", evt.UserID,
			"subscription_id", evt.SubscriptionID,
			"period_end", evt.PeriodEnd,
		)
		return nil
	})

	bus.Register("SubscriptionRenewed", func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.SubscriptionRenewed)
		if !ok {
			return nil
		}
		logger.Info("subscription renewed",
			"subscription_id", evt.SubscriptionID,
			"period_end", evt.PeriodEnd,
		)
		return nil
	})

	bus.Register("AnalysisCompleted", func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.AnalysisCompleted)
		if !ok {
			return nil
		}
		logger.Info("analysis completed",
			"user_id", evt.UserID,
			"session_id", evt.SessionID,
			"mode", evt.Mode,
		)
		return nil
	})

	bus.Register("AnalysisRefunded", func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.AnalysisRefunded)
		if !ok {
			return nil
		}
		logger.Warn("analysis refunded",
			"user_id", evt.UserID,
			"amount", evt.Amount,
			"reason", evt.Reason,
		)
		return nil
	})
}
