// Package credits exposes the credit balance, history and purchase
// endpoints. Every route is self-only: the authenticated user must match
// the :userId path parameter.
package credits

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/amirasaad/tradelens/pkg/config"
	"github.com/amirasaad/tradelens/pkg/middleware"
	authsvc "github.com/amirasaad/tradelens/pkg/service/auth"
	checkoutsvc "github.com/amirasaad/tradelens/pkg/service/checkout"
	ledgersvc "github.com/amirasaad/tradelens/pkg/service/ledger"
	"github.com/amirasaad/tradelens/webapi/common"
)

// Routes registers the credit endpoints.
func Routes(app *fiber.App, ledger *ledgersvc.Service, checkout *checkoutsvc.Service, cfg *config.App) {
	app.Get("/credits/:userId", middleware.JwtProtected(cfg.Auth.Jwt), GetBalance(ledger))
	app.Get("/credits/:userId/history", middleware.JwtProtected(cfg.Auth.Jwt), GetHistory(ledger))
	app.Post("/credits/:userId/purchase", middleware.JwtProtected(cfg.Auth.Jwt), Purchase(checkout))
}

// GetBalance returns the user's current credit balance.
func GetBalance(ledger *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok, err := ownUserID(c)
		if !ok {
			return err
		}
		balance, err := ledger.GetBalance(c.Context(), userID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Balance lookup failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Balance fetched", BalanceDTO{
			UserID:  userID.String(),
			Balance: balance,
		})
	}
}

// GetHistory returns the user's ledger transactions, newest first.
func GetHistory(ledger *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok, err := ownUserID(c)
		if !ok {
			return err
		}
		history, err := ledger.ListHistory(c.Context(), userID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "History lookup failed", err)
		}
		dtos := make([]TransactionDTO, 0, len(history))
		for _, tx := range history {
			dtos = append(dtos, TransactionDTO{
				ID:        tx.ID.String(),
				Amount:    tx.Amount,
				Type:      string(tx.Type),
				Status:    string(tx.Status),
				Metadata:  tx.Metadata,
				CreatedAt: tx.CreatedAt,
			})
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "History fetched", dtos)
	}
}

// Purchase opens a hosted checkout session for a credit purchase.
func Purchase(checkout *checkoutsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok, err := ownUserID(c)
		if !ok {
			return err
		}
		input, err := common.BindAndValidate[PurchaseInput](c)
		if input == nil {
			return err
		}
		session, quote, err := checkout.CreateSession(c.Context(), userID, input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Checkout failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Checkout session created", PurchaseDTO{
			CheckoutURL: session.URL,
			SessionID:   session.ID,
			Credits:     quote.Credits,
			AmountEUR:   quote.AmountEUR,
			PricePerCr:  quote.PricePerCreditCents,
		})
	}
}

// ownUserID parses :userId and requires it to match the token subject. On
// failure the problem response is already written and ok is false. A
// mismatch is forbidden, not hidden: the path is guessable anyway.
func ownUserID(c *fiber.Ctx) (uuid.UUID, bool, error) {
	pathID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return uuid.Nil, false, common.ProblemDetailsJSON(c, "Invalid user id", err, fiber.StatusBadRequest)
	}
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, false, common.ProblemDetailsJSON(c, "Unauthorized", nil, "missing user context", fiber.StatusUnauthorized)
	}
	tokenID, err := authsvc.CurrentUserID(token)
	if err != nil {
		return uuid.Nil, false, common.ProblemDetailsJSON(c, "Unauthorized", err)
	}
	if tokenID != pathID {
		return uuid.Nil, false, common.ProblemDetailsJSON(c, "Forbidden", nil, "cannot access another user's credits", fiber.StatusForbidden)
	}
	return pathID, true, nil
}
