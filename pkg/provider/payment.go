// Package provider defines the contracts for external collaborators: the
// payment provider, the vision model and the embedding provider. Concrete
// implementations live under infra/provider; tests substitute fakes.
package provider

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentEventKind classifies an inbound payment-provider event after
// signature verification.
type PaymentEventKind string

const (
	// EventCreditPurchase is a settled checkout carrying credit metadata.
	EventCreditPurchase PaymentEventKind = "credit_purchase"
	// EventSubscriptionCheckout is a settled checkout that started a
	// subscription.
	EventSubscriptionCheckout PaymentEventKind = "subscription_checkout"
	// EventInvoicePaid is a paid invoice on an existing subscription.
	EventInvoicePaid PaymentEventKind = "invoice_paid"
	// EventIgnored is any verified event type the service does not act on.
	EventIgnored PaymentEventKind = "ignored"
)

// PaymentEvent is a verified, provider-neutral webhook event. ID is the
// provider's event id and doubles as the ledger dedup key.
type PaymentEvent struct {
	ID             string
	Kind           PaymentEventKind
	SessionID      string
	SubscriptionID string
	BillingReason  string
	UserID         uuid.UUID
	Credits        int64
	AmountTotal    int64
}

// CheckoutParams describes a credit-purchase checkout session to create.
type CheckoutParams struct {
	UserID      uuid.UUID
	Credits     int64
	AmountCents int64
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the provider's handle for a created checkout.
type CheckoutSession struct {
	ID  string
	URL string
}

// Subscription is the authoritative subscription detail fetched from the
// provider after a subscription event.
type Subscription struct {
	ID         string
	CustomerID string
	PriceID    string
	PeriodEnd  time.Time
}

// Payment is the outbound and inbound payment-provider surface.
type Payment interface {
	// CreateCheckoutSession creates a hosted checkout for a credit
	// purchase and returns its URL.
	CreateCheckoutSession(ctx context.Context, params *CheckoutParams) (*CheckoutSession, error)

	// ParseWebhook verifies the event signature against the shared secret
	// and maps the payload to a PaymentEvent. A bad signature fails closed:
	// the returned error wraps ErrWebhookSignature and nothing else happens.
	ParseWebhook(payload []byte, signature string) (*PaymentEvent, error)

	// GetSubscription fetches subscription detail by provider id.
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
}
