package provider

import (
	"context"
	"errors"
)

// ErrWebhookSignature is wrapped by Payment.ParseWebhook when the event
// signature does not verify.
var ErrWebhookSignature = errors.New("webhook signature verification failed")

// VisionModel generates free-form text from an image plus instructions. No
// output shape is guaranteed; callers recover structure with pkg/jsonfix.
// Implementations must honor ctx cancellation, as the model call is the
// latency-dominant step of the analyze path.
type VisionModel interface {
	Generate(ctx context.Context, image []byte, mimeType, instruction string) (string, error)
}

// Embedder turns text into an embedding vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
