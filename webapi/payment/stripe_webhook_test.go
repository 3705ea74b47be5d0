package payment

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirasaad/tradelens/internal/fixtures"
	"github.com/amirasaad/tradelens/pkg/config"
	"github.com/amirasaad/tradelens/pkg/domain/credit"
	"github.com/amirasaad/tradelens/pkg/domain/user"
	"github.com/amirasaad/tradelens/pkg/provider"
	ledgersvc "github.com/amirasaad/tradelens/pkg/service/ledger"
	paymentsvc "github.com/amirasaad/tradelens/pkg/service/payment"
)

func setup(t *testing.T, stub *fixtures.PaymentStub) (*fiber.App, *fixtures.MemoryUoW, *user.User) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uow := fixtures.NewMemoryUoW()

	u, err := user.New("trader", "trader@example.com", "s3cret-pass")
	require.NoError(t, err)
	uow.SeedUser(u)

	svc := paymentsvc.New(
		uow,
		ledgersvc.New(uow, logger),
		stub,
		&fixtures.CollectingBus{},
		&config.Credits{SubscriptionGrant: 100},
		logger,
	)
	app := fiber.New()
	Routes(app, svc)
	return app, uow, u
}

func post(t *testing.T, app *fiber.App, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestWebhook_MissingSignatureRejected(t *testing.T) {
	app, uow, _ := setup(t, &fixtures.PaymentStub{})

	resp := post(t, app, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, uow.Transactions())
}

func TestWebhook_BadSignatureFailsClosed(t *testing.T) {
	app, uow, _ := setup(t, &fixtures.PaymentStub{})

	resp := post(t, app, "t=1,v1=bogus")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, uow.Transactions())
}

func TestWebhook_CreditPurchaseApplied(t *testing.T) {
	stub := &fixtures.PaymentStub{}
	app, uow, u := setup(t, stub)
	stub.WebhookEvent = &provider.PaymentEvent{
		ID:          "evt_1",
		Kind:        provider.EventCreditPurchase,
		SessionID:   "cs_1",
		UserID:      u.ID,
		Credits:     50,
		AmountTotal: 1100,
	}

	resp := post(t, app, "t=1,v1=valid")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	txs := uow.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, int64(50), txs[0].Amount)
	assert.Equal(t, credit.TxPurchase, txs[0].Type)
}

func TestWebhook_DuplicateEventAcknowledged(t *testing.T) {
	stub := &fixtures.PaymentStub{}
	app, uow, u := setup(t, stub)
	stub.WebhookEvent = &provider.PaymentEvent{
		ID:      "evt_1",
		Kind:    provider.EventCreditPurchase,
		UserID:  u.ID,
		Credits: 50,
	}

	first := post(t, app, "t=1,v1=valid")
	require.Equal(t, fiber.StatusOK, first.StatusCode)
	second := post(t, app, "t=1,v1=valid")
	assert.Equal(t, fiber.StatusOK, second.StatusCode)
	assert.Len(t, uow.Transactions(), 1)
}
