// Package payment receives payment-provider webhooks.
package payment

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/amirasaad/tradelens/pkg/provider"
	paymentsvc "github.com/amirasaad/tradelens/pkg/service/payment"
)

// Routes registers the webhook endpoint.
func Routes(app *fiber.App, svc *paymentsvc.Service) {
	app.Post("/webhooks/stripe", StripeWebhookHandler(svc))
}

// StripeWebhookHandler verifies and applies one Stripe event. Bad
// signatures fail closed with 400 and no side effects. Processing errors
// also return non-2xx so Stripe redelivers; duplicates are acknowledged.
func StripeWebhookHandler(svc *paymentsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get("Stripe-Signature")
		if signature == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing Stripe-Signature header",
			})
		}
		payload := c.Body()
		if len(payload) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Empty request body",
			})
		}

		if err := svc.HandleWebhook(c.Context(), payload, signature); err != nil {
			status := fiber.StatusInternalServerError
			if errors.Is(err, provider.ErrWebhookSignature) {
				status = fiber.StatusBadRequest
			}
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(fiber.StatusOK)
	}
}
