// Package webapi wires the HTTP surface: auth, analysis, credits and the
// payment webhook, behind rate limiting and panic recovery.
package webapi

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/amirasaad/tradelens/pkg/app"
	analysisweb "github.com/amirasaad/tradelens/webapi/analysis"
	authweb "github.com/amirasaad/tradelens/webapi/auth"
	"github.com/amirasaad/tradelens/webapi/common"
	creditsweb "github.com/amirasaad/tradelens/webapi/credits"
	paymentweb "github.com/amirasaad/tradelens/webapi/payment"
)

// SetupApp builds the Fiber application around the assembled services.
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		// large enough for a base64 chart screenshot
		BodyLimit: 16 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	// Uses X-Forwarded-For when behind a proxy, falling back to X-Real-IP
	// and then the direct peer address.
	fiberApp.Use(limiter.New(limiter.Config{
		Max:        a.Config.RateLimit.MaxRequests,
		Expiration: a.Config.RateLimit.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
				if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
					return strings.TrimSpace(forwardedFor[:commaIndex])
				}
				return strings.TrimSpace(forwardedFor)
			}
			if realIP := c.Get("X-Real-IP"); realIP != "" {
				return realIP
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(
				c,
				"Too Many Requests",
				errors.New("rate limit exceeded"),
				fiber.StatusTooManyRequests,
			)
		},
	}))
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("TradeLens API is running")
	})

	paymentweb.Routes(fiberApp, a.PaymentService)
	authweb.Routes(fiberApp, a.AuthService, a.UserService)
	analysisweb.Routes(fiberApp, a.AnalysisService, a.Config)
	creditsweb.Routes(fiberApp, a.LedgerService, a.CheckoutService, a.Config)

	return fiberApp
}
