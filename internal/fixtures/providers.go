package fixtures

import (
	"context"
	"sync"

	"github.com/amirasaad/tradelens/pkg/domain/events"
	"github.com/amirasaad/tradelens/pkg/eventbus"
	"github.com/amirasaad/tradelens/pkg/provider"
)

// VisionModelStub returns a canned response or error.
type VisionModelStub struct {
	Response string
	Err      error

	mu               sync.Mutex
	Calls            int
	LastInstruction  string
	LastImage        []byte
	BlockUntilCancel bool
}

func (v *VisionModelStub) Generate(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	v.mu.Lock()
	v.Calls++
	v.LastInstruction = instruction
	v.LastImage = image
	block := v.BlockUntilCancel
	v.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if v.Err != nil {
		return "", v.Err
	}
	return v.Response, nil
}

// EmbedderStub returns fixed vectors keyed by input text, with a fallback
// vector for unknown inputs.
type EmbedderStub struct {
	Vectors  map[string][]float32
	Fallback []float32
	Err      error
}

func (e *EmbedderStub) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	if v, ok := e.Vectors[text]; ok {
		return v, nil
	}
	return e.Fallback, nil
}

// PaymentStub implements provider.Payment with canned values. A nil
// WebhookEvent makes ParseWebhook fail signature verification.
type PaymentStub struct {
	Session      *provider.CheckoutSession
	SessionErr   error
	Subscription *provider.Subscription
	SubErr       error
	WebhookEvent *provider.PaymentEvent

	LastCheckout *provider.CheckoutParams
}

func (p *PaymentStub) CreateCheckoutSession(ctx context.Context, params *provider.CheckoutParams) (*provider.CheckoutSession, error) {
	p.LastCheckout = params
	if p.SessionErr != nil {
		return nil, p.SessionErr
	}
	return p.Session, nil
}

func (p *PaymentStub) ParseWebhook(payload []byte, signature string) (*provider.PaymentEvent, error) {
	if p.WebhookEvent == nil {
		return nil, provider.ErrWebhookSignature
	}
	return p.WebhookEvent, nil
}

func (p *PaymentStub) GetSubscription(ctx context.Context, id string) (*provider.Subscription, error) {
	if p.SubErr != nil {
		return nil, p.SubErr
	}
	return p.Subscription, nil
}

// CollectingBus records every emitted event.
type CollectingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *CollectingBus) Emit(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *CollectingBus) Register(eventType string, handler eventbus.HandlerFunc) {}

var _ eventbus.Bus = (*CollectingBus)(nil)

// Events returns a copy of everything emitted so far.
func (b *CollectingBus) Events() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Event, len(b.events))
	copy(out, b.events)
	return out
}
