// Package checkout prices credit purchases and creates hosted checkout
// sessions. Pricing depends on subscription status: subscribed users buy at
// the discounted per-credit rate.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/tradelens/pkg/config"
	"github.com/amirasaad/tradelens/pkg/provider"
	"github.com/amirasaad/tradelens/pkg/repository"
	"github.com/google/uuid"
)

// ErrAmountOutOfRange is returned when a purchase amount falls outside the
// configured bounds.
var ErrAmountOutOfRange = errors.New("purchase amount out of range")

// Quote prices a prospective purchase before checkout.
type Quote struct {
	AmountEUR           int64   `json:"amountEur"`
	Credits             int64   `json:"credits"`
	PricePerCreditCents float64 `json:"pricePerCreditCents"`
	Pro                 bool    `json:"pro"`
}

// Service prices purchases and starts checkout sessions.
type Service struct {
	uow      repository.UnitOfWork
	payments provider.Payment
	credits  *config.Credits
	stripe   *config.Stripe
	logger   *slog.Logger
}

// New creates a checkout Service.
func New(
	uow repository.UnitOfWork,
	payments provider.Payment,
	credits *config.Credits,
	stripe *config.Stripe,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:      uow,
		payments: payments,
		credits:  credits,
		stripe:   stripe,
		logger:   logger,
	}
}

// Quote validates the amount and prices it at the user's tier.
func (s *Service) Quote(ctx context.Context, userID uuid.UUID, amountEUR int64) (*Quote, error) {
	if amountEUR < s.credits.MinPurchaseEUR || amountEUR > s.credits.MaxPurchaseEUR {
		return nil, fmt.Errorf("%w: %d EUR not in [%d, %d]",
			ErrAmountOutOfRange, amountEUR, s.credits.MinPurchaseEUR, s.credits.MaxPurchaseEUR)
	}
	pro, err := s.isSubscribed(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Quote{
		AmountEUR:           amountEUR,
		Credits:             s.credits.CreditsForAmount(amountEUR, pro),
		PricePerCreditCents: s.credits.PricePerCreditCents(pro),
		Pro:                 pro,
	}, nil
}

// CreateSession quotes the purchase and opens a hosted checkout for it. The
// user id and credit count ride along as checkout metadata so the webhook
// can settle the purchase without any state here.
func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID, amountEUR int64) (*provider.CheckoutSession, *Quote, error) {
	quote, err := s.Quote(ctx, userID, amountEUR)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.payments.CreateCheckoutSession(ctx, &provider.CheckoutParams{
		UserID:      userID,
		Credits:     quote.Credits,
		AmountCents: amountEUR * 100,
		Currency:    s.stripe.Currency,
		Description: fmt.Sprintf("%d analysis credits", quote.Credits),
		SuccessURL:  s.stripe.SuccessPath,
		CancelURL:   s.stripe.CancelPath,
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("checkout session created",
		"user_id", userID, "amount_eur", amountEUR, "credits", quote.Credits, "session", session.ID)
	return session, quote, nil
}

func (s *Service) isSubscribed(ctx context.Context, userID uuid.UUID) (pro bool, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		u, err := users.Get(ctx, userID)
		if err != nil {
			return err
		}
		pro = u.Subscribed()
		return nil
	})
	return
}
