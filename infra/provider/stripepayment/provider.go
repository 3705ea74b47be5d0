// Package stripepayment implements the payment provider contract on
// Stripe. Webhook payloads are verified with the signing secret and mapped
// to provider-neutral events; checkout metadata carries the user id and
// credit count so settlement needs no local state.
package stripepayment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/amirasaad/tradelens/pkg/config"
	"github.com/amirasaad/tradelens/pkg/provider"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Provider implements provider.Payment using the Stripe API.
type Provider struct {
	client *stripe.Client
	cfg    *config.Stripe
	logger *slog.Logger
}

var _ provider.Payment = (*Provider)(nil)

// New creates a Stripe payment provider.
func New(cfg *config.Stripe, logger *slog.Logger) *Provider {
	return &Provider{
		client: stripe.NewClient(cfg.ApiKey),
		cfg:    cfg,
		logger: logger.With("provider", "stripe"),
	}
}

// CreateCheckoutSession opens a hosted checkout for a credit purchase.
func (p *Provider) CreateCheckoutSession(ctx context.Context, params *provider.CheckoutParams) (*provider.CheckoutSession, error) {
	metadata := map[string]string{
		"userId":  params.UserID.String(),
		"credits": strconv.FormatInt(params.Credits, 10),
		"amount":  strconv.FormatInt(params.AmountCents/100, 10),
	}

	session, err := p.client.V1CheckoutSessions.Create(ctx, &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
		Metadata:           metadata,
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String(params.Currency),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name:        stripe.String("AI Analysis Credits"),
					Description: stripe.String(params.Description),
				},
				UnitAmount: stripe.Int64(params.AmountCents),
			},
			Quantity: stripe.Int64(1),
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	p.logger.Info("checkout session created", "session_id", session.ID)
	return &provider.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// ParseWebhook verifies the signature and maps the Stripe event to a
// provider-neutral PaymentEvent. Verified events with types this service
// does not act on come back as EventIgnored.
func (p *Provider) ParseWebhook(payload []byte, signature string) (*provider.PaymentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.cfg.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrWebhookSignature, err)
	}
	log := p.logger.With("event_id", event.ID, "event_type", event.Type)

	switch event.Type {
	case "checkout.session.completed":
		return p.parseCheckoutCompleted(event, log)
	case "invoice.payment_succeeded":
		return p.parseInvoicePaid(event, log)
	default:
		log.Debug("event type ignored")
		return &provider.PaymentEvent{ID: event.ID, Kind: provider.EventIgnored}, nil
	}
}

func (p *Provider) parseCheckoutCompleted(event stripe.Event, log *slog.Logger) (*provider.PaymentEvent, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("stripe: parse checkout.session.completed: %w", err)
	}

	out := &provider.PaymentEvent{
		ID:          event.ID,
		SessionID:   session.ID,
		AmountTotal: session.AmountTotal,
	}
	if raw := session.Metadata["userId"]; raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("stripe: invalid userId in session metadata: %w", err)
		}
		out.UserID = id
	}

	if session.Subscription != nil {
		out.Kind = provider.EventSubscriptionCheckout
		out.SubscriptionID = session.Subscription.ID
		log.Info("subscription checkout completed", "subscription", out.SubscriptionID)
		return out, nil
	}

	credits, err := strconv.ParseInt(session.Metadata["credits"], 10, 64)
	if err != nil {
		// a completed checkout this service did not originate
		log.Warn("checkout without credit metadata, ignoring")
		return &provider.PaymentEvent{ID: event.ID, Kind: provider.EventIgnored}, nil
	}
	out.Kind = provider.EventCreditPurchase
	out.Credits = credits
	log.Info("credit purchase completed", "credits", credits)
	return out, nil
}

// invoicePayload decodes the invoice fields this service needs. The
// subscription reference moved under parent in newer Stripe API versions,
// so both locations are read.
type invoicePayload struct {
	BillingReason string `json:"billing_reason"`
	Subscription  string `json:"subscription"`
	Parent        struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (p *Provider) parseInvoicePaid(event stripe.Event, log *slog.Logger) (*provider.PaymentEvent, error) {
	var invoice invoicePayload
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return nil, fmt.Errorf("stripe: parse invoice.payment_succeeded: %w", err)
	}
	subscriptionID := invoice.Subscription
	if subscriptionID == "" {
		subscriptionID = invoice.Parent.SubscriptionDetails.Subscription
	}
	log.Info("invoice paid", "subscription", subscriptionID, "billing_reason", invoice.BillingReason)
	return &provider.PaymentEvent{
		ID:             event.ID,
		Kind:           provider.EventInvoicePaid,
		SubscriptionID: subscriptionID,
		BillingReason:  invoice.BillingReason,
	}, nil
}

// GetSubscription fetches authoritative subscription detail from Stripe.
func (p *Provider) GetSubscription(ctx context.Context, id string) (*provider.Subscription, error) {
	sub, err := p.client.V1Subscriptions.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe: retrieve subscription %s: %w", id, err)
	}
	out := &provider.Subscription{ID: sub.ID}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
		out.PeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
	}
	return out, nil
}
