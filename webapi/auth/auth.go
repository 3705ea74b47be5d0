// Package auth exposes registration and login over HTTP.
package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/amirasaad/tradelens/pkg/domain/user"
	authsvc "github.com/amirasaad/tradelens/pkg/service/auth"
	usersvc "github.com/amirasaad/tradelens/pkg/service/user"
	"github.com/amirasaad/tradelens/webapi/common"
)

// Routes registers the auth endpoints.
func Routes(app *fiber.App, authSvc *authsvc.Service, userSvc *usersvc.Service) {
	app.Post("/auth/register", Register(userSvc, authSvc))
	app.Post("/auth/login", Login(authSvc))
}

// Register creates an account and returns a token so the client can start
// a session without a second round trip.
func Register(userSvc *usersvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[RegisterInput](c)
		if input == nil {
			return err
		}
		u, err := userSvc.Register(c.Context(), input.Username, input.Email, input.Password)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Registration failed", err)
		}
		token, err := authSvc.GenerateToken(u)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Account created", fiber.Map{
			"token": token,
			"user": UserDTO{
				ID:       u.ID.String(),
				Username: u.Username,
				Email:    u.Email,
			},
		})
	}
}

// Login authenticates by username or email and returns a JWT.
func Login(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[LoginInput](c)
		if input == nil {
			return err
		}
		u, err := authSvc.Login(c.Context(), input.Identity, input.Password)
		if err != nil {
			if errors.Is(err, user.ErrUserUnauthorized) {
				return common.ProblemDetailsJSON(c,
					"Invalid identity or password", nil,
					"Identity or password is incorrect",
					fiber.StatusUnauthorized)
			}
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		}
		token, err := authSvc.GenerateToken(u)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Success login", fiber.Map{"token": token})
	}
}
