// Package payment reconciles verified payment-provider events with the
// ledger and user subscription state. Webhook delivery is at least once, so
// every ledger mutation here is deduplicated on the provider event id.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/amirasaad/tradelens/pkg/config"
	"github.com/amirasaad/tradelens/pkg/domain/credit"
	"github.com/amirasaad/tradelens/pkg/domain/events"
	"github.com/amirasaad/tradelens/pkg/domain/user"
	"github.com/amirasaad/tradelens/pkg/eventbus"
	"github.com/amirasaad/tradelens/pkg/provider"
	"github.com/amirasaad/tradelens/pkg/repository"
	"github.com/google/uuid"
)

// Service applies provider-neutral payment events to application state.
type Service struct {
	uow      repository.UnitOfWork
	ledger   Ledger
	payments provider.Payment
	bus      eventbus.Bus
	credits  *config.Credits
	logger   *slog.Logger
}

// Ledger is the slice of the credit ledger this service needs.
type Ledger interface {
	Credit(ctx context.Context, userID uuid.UUID, amount int64, txType credit.TxType, dedupKey string, metadata map[string]string) (uuid.UUID, error)
}

// New creates a payment reconciliation Service.
func New(
	uow repository.UnitOfWork,
	ledger Ledger,
	payments provider.Payment,
	bus eventbus.Bus,
	credits *config.Credits,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:      uow,
		ledger:   ledger,
		payments: payments,
		bus:      bus,
		credits:  credits,
		logger:   logger,
	}
}

// HandleWebhook verifies and applies one raw webhook delivery. Signature
// failures are returned to the caller so the provider sees a 4xx and stops
// trusting the delivery; everything else either applies or is ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.payments.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	return s.Apply(ctx, event)
}

// Apply routes a verified event. Redelivered events are acknowledged as
// successes so the provider stops retrying.
func (s *Service) Apply(ctx context.Context, event *provider.PaymentEvent) error {
	log := s.logger.With("operation", "payment.Apply", "event_id", event.ID, "kind", event.Kind)
	switch event.Kind {
	case provider.EventCreditPurchase:
		return s.applyCreditPurchase(ctx, event, log)
	case provider.EventSubscriptionCheckout:
		return s.applySubscriptionCheckout(ctx, event, log)
	case provider.EventInvoicePaid:
		return s.applyInvoicePaid(ctx, event, log)
	default:
		log.Debug("event ignored")
		return nil
	}
}

// applyCreditPurchase grants purchased credits to the user named in the
// checkout metadata. The metadata user id is authoritative for linkage; a
// purchase without one cannot be applied.
func (s *Service) applyCreditPurchase(ctx context.Context, event *provider.PaymentEvent, log *slog.Logger) error {
	if event.UserID == uuid.Nil {
		return fmt.Errorf("credit purchase %s has no user id in metadata", event.ID)
	}
	if event.Credits <= 0 {
		return fmt.Errorf("credit purchase %s has no credit amount in metadata", event.ID)
	}
	_, err := s.ledger.Credit(ctx, event.UserID, event.Credits, credit.TxPurchase, event.ID, map[string]string{
		"checkout_session": event.SessionID,
		"amount_total":     strconv.FormatInt(event.AmountTotal, 10),
	})
	if errors.Is(err, credit.ErrDuplicateTransaction) {
		log.Info("purchase already applied")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("purchase applied", "user_id", event.UserID, "credits", event.Credits)
	return s.emit(ctx, events.CreditPurchaseSettled{
		EventID:   event.ID,
		UserID:    event.UserID,
		Credits:   event.Credits,
		AmountEUR: event.AmountTotal / 100,
		Timestamp: time.Now().UTC(),
	})
}

// applySubscriptionCheckout links a new subscription to the user from the
// checkout metadata, fetching authoritative detail from the provider, and
// grants the first period's credits.
func (s *Service) applySubscriptionCheckout(ctx context.Context, event *provider.PaymentEvent, log *slog.Logger) error {
	if event.UserID == uuid.Nil {
		return fmt.Errorf("subscription checkout %s has no user id in metadata", event.ID)
	}
	sub, err := s.payments.GetSubscription(ctx, event.SubscriptionID)
	if err != nil {
		return fmt.Errorf("fetch subscription %s: %w", event.SubscriptionID, err)
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		return users.UpdateSubscription(ctx, event.UserID, sub.CustomerID, sub.ID, sub.PriceID, sub.PeriodEnd)
	})
	if err != nil {
		return err
	}

	_, err = s.ledger.Credit(ctx, event.UserID, s.credits.SubscriptionGrant, credit.TxSubscriptionGrant, event.ID, map[string]string{
		"subscription": sub.ID,
	})
	if err != nil && !errors.Is(err, credit.ErrDuplicateTransaction) {
		return err
	}
	log.Info("subscription activated", "user_id", event.UserID, "subscription", sub.ID)
	return s.emit(ctx, events.SubscriptionActivated{
		UserID:         event.UserID,
		SubscriptionID: sub.ID,
		PriceID:        sub.PriceID,
		PeriodEnd:      sub.PeriodEnd,
	})
}

// applyInvoicePaid handles a renewal. The first invoice of a subscription
// is settled by the checkout flow, so invoices with billing reason
// subscription_create are skipped. Renewals are looked up by subscription
// id, refresh the stored period, and grant the period's credits.
func (s *Service) applyInvoicePaid(ctx context.Context, event *provider.PaymentEvent, log *slog.Logger) error {
	if event.BillingReason == "subscription_create" {
		log.Debug("initial invoice settled via checkout, skipping")
		return nil
	}
	if event.SubscriptionID == "" {
		log.Debug("invoice without subscription, skipping")
		return nil
	}

	var u *user.User
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		u, err = users.GetBySubscriptionID(ctx, event.SubscriptionID)
		return err
	})
	if errors.Is(err, user.ErrUserNotFound) {
		// renewal for a subscription this system never linked; nothing to
		// reconcile against
		log.Warn("renewal for unknown subscription", "subscription", event.SubscriptionID)
		return nil
	}
	if err != nil {
		return err
	}

	sub, err := s.payments.GetSubscription(ctx, event.SubscriptionID)
	if err != nil {
		return fmt.Errorf("fetch subscription %s: %w", event.SubscriptionID, err)
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		return users.UpdateSubscription(ctx, u.ID, sub.CustomerID, sub.ID, sub.PriceID, sub.PeriodEnd)
	})
	if err != nil {
		return err
	}

	_, err = s.ledger.Credit(ctx, u.ID, s.credits.SubscriptionGrant, credit.TxSubscriptionGrant, event.ID, map[string]string{
		"subscription": sub.ID,
		"renewal":      "true",
	})
	if errors.Is(err, credit.ErrDuplicateTransaction) {
		log.Info("renewal already applied")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("renewal applied", "user_id", u.ID, "subscription", sub.ID)
	return s.emit(ctx, events.SubscriptionRenewed{
		SubscriptionID: sub.ID,
		PriceID:        sub.PriceID,
		PeriodEnd:      sub.PeriodEnd,
	})
}

func (s *Service) emit(ctx context.Context, event events.Event) error {
	if err := s.bus.Emit(ctx, event); err != nil {
		s.logger.Warn("event emit failed", "event", event.Type(), "error", err)
	}
	return nil
}
