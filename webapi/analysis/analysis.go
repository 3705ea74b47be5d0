// Package analysis exposes metered chart analysis over HTTP.
package analysis

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/amirasaad/tradelens/pkg/config"
	domainanalysis "github.com/amirasaad/tradelens/pkg/domain/analysis"
	"github.com/amirasaad/tradelens/pkg/middleware"
	analysissvc "github.com/amirasaad/tradelens/pkg/service/analysis"
	authsvc "github.com/amirasaad/tradelens/pkg/service/auth"
	"github.com/amirasaad/tradelens/webapi/common"
)

// Routes registers the analysis endpoints.
func Routes(app *fiber.App, svc *analysissvc.Service, cfg *config.App) {
	app.Post("/analyze", middleware.JwtProtected(cfg.Auth.Jwt), Analyze(svc))
	app.Get(
		"/analyze/sessions/:sessionId/records",
		middleware.JwtProtected(cfg.Auth.Jwt),
		ListRecords(svc),
	)
}

// Analyze runs one credit-metered chart analysis.
func Analyze(svc *analysissvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[AnalyzeInput](c)
		if input == nil {
			return err
		}

		mode, err := domainanalysis.ParseMode(input.Mode)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid mode", err, fiber.StatusBadRequest)
		}
		image, mimeType, err := decodeImage(input.Image, input.MIMEType)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid image", err, fiber.StatusBadRequest)
		}
		sessionID := uuid.Nil
		if input.SessionID != "" {
			sessionID, err = uuid.Parse(input.SessionID)
			if err != nil {
				return common.ProblemDetailsJSON(c, "Invalid session id", err, fiber.StatusBadRequest)
			}
		}

		resp, err := svc.Analyze(c.Context(), analysissvc.Request{
			UserID:    userID,
			SessionID: sessionID,
			Mode:      mode,
			Prompt:    input.Prompt,
			Image:     image,
			MIMEType:  mimeType,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Analysis failed", err)
		}

		return common.SuccessResponseJSON(c, fiber.StatusOK, "Analysis complete", AnalyzeResponse{
			SessionID: resp.SessionID.String(),
			RecordID:  resp.RecordID.String(),
			Mode:      string(mode),
			Result:    resp.Result,
			Context:   resp.Knowledge,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ListRecords returns the analyses of one owned session, oldest first.
func ListRecords(svc *analysissvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		sessionID, err := uuid.Parse(c.Params("sessionId"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid session id", err, fiber.StatusBadRequest)
		}

		records, err := svc.ListRecords(c.Context(), userID, sessionID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Session lookup failed", err)
		}

		dtos := make([]RecordDTO, 0, len(records))
		for _, r := range records {
			dtos = append(dtos, RecordDTO{
				ID:        r.ID.String(),
				Mode:      string(r.Mode),
				Prompt:    r.Prompt,
				Result:    r.Result,
				CreatedAt: r.CreatedAt,
			})
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Session records", dtos)
	}
}

func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	return authsvc.CurrentUserID(token)
}

// decodeImage accepts bare base64 or a data URL and returns the raw bytes
// plus the effective MIME type.
func decodeImage(encoded, declaredMIME string) ([]byte, string, error) {
	mimeType := declaredMIME
	if strings.HasPrefix(encoded, "data:") {
		header, rest, found := strings.Cut(encoded, ",")
		if !found {
			return nil, "", fiber.NewError(fiber.StatusBadRequest, "malformed data URL")
		}
		encoded = rest
		header = strings.TrimPrefix(header, "data:")
		if mt, _, _ := strings.Cut(header, ";"); mt != "" {
			mimeType = mt
		}
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", err
	}
	return image, mimeType, nil
}
