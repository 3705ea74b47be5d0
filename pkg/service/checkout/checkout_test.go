package checkout_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/tradelens/internal/fixtures"
	"github.com/amirasaad/tradelens/pkg/config"
	"github.com/amirasaad/tradelens/pkg/domain/user"
	"github.com/amirasaad/tradelens/pkg/provider"
	"github.com/amirasaad/tradelens/pkg/service/checkout"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*checkout.Service, *fixtures.MemoryUoW, *fixtures.PaymentStub) {
	t.Helper()
	uow := fixtures.NewMemoryUoW()
	payments := &fixtures.PaymentStub{
		Session: &provider.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"},
	}
	credits := &config.Credits{
		BasePriceCents:    22,
		ProDiscount:       0.35,
		MinPurchaseEUR:    6,
		MaxPurchaseEUR:    1000,
		AnalysisCost:      1,
		SubscriptionGrant: 100,
	}
	stripe := &config.Stripe{
		SuccessPath: "https://app.example/credits?success=true",
		CancelPath:  "https://app.example/credits?success=false",
		Currency:    "eur",
	}
	svc := checkout.New(uow, payments, credits, stripe, slog.Default())
	return svc, uow, payments
}

func seedUser(t *testing.T, uow *fixtures.MemoryUoW, subscribed bool) *user.User {
	t.Helper()
	u, err := user.New("trader", "trader@example.com", "s3cret-pass")
	require.NoError(t, err)
	if subscribed {
		end := time.Now().Add(20 * 24 * time.Hour)
		u.StripeSubscriptionID = "sub_1"
		u.StripePeriodEnd = &end
	}
	uow.SeedUser(u)
	return u
}

func TestQuote_BaseRate(t *testing.T) {
	svc, uow, _ := setup(t)
	u := seedUser(t, uow, false)

	quote, err := svc.Quote(context.Background(), u.ID, 11)
	require.NoError(t, err)
	// 1100 cents at 22 cents per credit
	assert.EqualValues(t, 50, quote.Credits)
	assert.False(t, quote.Pro)
	assert.InDelta(t, 22, quote.PricePerCreditCents, 1e-9)
}

func TestQuote_ProDiscount(t *testing.T) {
	svc, uow, _ := setup(t)
	u := seedUser(t, uow, true)

	quote, err := svc.Quote(context.Background(), u.ID, 11)
	require.NoError(t, err)
	// 1100 cents at 22*(1-0.35) = 14.3 cents per credit, rounded down
	assert.EqualValues(t, 76, quote.Credits)
	assert.True(t, quote.Pro)
}

func TestQuote_AmountBounds(t *testing.T) {
	svc, uow, _ := setup(t)
	u := seedUser(t, uow, false)

	_, err := svc.Quote(context.Background(), u.ID, 5)
	assert.ErrorIs(t, err, checkout.ErrAmountOutOfRange)

	_, err = svc.Quote(context.Background(), u.ID, 1001)
	assert.ErrorIs(t, err, checkout.ErrAmountOutOfRange)

	_, err = svc.Quote(context.Background(), u.ID, 6)
	assert.NoError(t, err, "minimum is inclusive")

	_, err = svc.Quote(context.Background(), u.ID, 1000)
	assert.NoError(t, err, "maximum is inclusive")
}

func TestQuote_ExpiredSubscriptionPaysBaseRate(t *testing.T) {
	svc, uow, _ := setup(t)
	u, err := user.New("lapsed", "lapsed@example.com", "s3cret-pass")
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour)
	u.StripeSubscriptionID = "sub_old"
	u.StripePeriodEnd = &past
	uow.SeedUser(u)

	quote, err := svc.Quote(context.Background(), u.ID, 11)
	require.NoError(t, err)
	assert.False(t, quote.Pro)
	assert.EqualValues(t, 50, quote.Credits)
}

func TestCreateSession(t *testing.T) {
	svc, uow, payments := setup(t)
	u := seedUser(t, uow, false)

	session, quote, err := svc.CreateSession(context.Background(), u.ID, 11)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_1", session.URL)
	assert.EqualValues(t, 50, quote.Credits)

	require.NotNil(t, payments.LastCheckout)
	assert.Equal(t, u.ID, payments.LastCheckout.UserID)
	assert.EqualValues(t, 50, payments.LastCheckout.Credits)
	assert.EqualValues(t, 1100, payments.LastCheckout.AmountCents)
	assert.Equal(t, "eur", payments.LastCheckout.Currency)
}

func TestCreateSession_UnknownUser(t *testing.T) {
	svc, _, payments := setup(t)

	_, _, err := svc.CreateSession(context.Background(), uuid.New(), 11)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	assert.Nil(t, payments.LastCheckout)
}
