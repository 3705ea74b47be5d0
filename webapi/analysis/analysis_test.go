package analysis

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirasaad/tradelens/internal/fixtures"
	"github.com/amirasaad/tradelens/pkg/config"
	"github.com/amirasaad/tradelens/pkg/domain/credit"
	"github.com/amirasaad/tradelens/pkg/domain/user"
	analysissvc "github.com/amirasaad/tradelens/pkg/service/analysis"
	authsvc "github.com/amirasaad/tradelens/pkg/service/auth"
	knowledgesvc "github.com/amirasaad/tradelens/pkg/service/knowledge"
	ledgersvc "github.com/amirasaad/tradelens/pkg/service/ledger"
)

const modelReply = `Here is the assessment.
{"technicalScore": 82, "marketContextScore": 74, "riskScore": 68,
"overallScore": 76, "confidence": 80,
"explanation": "Clean breakout with strong volume.",
"timeframe": {"recommended": true, "duration": "2-4 days"}}`

type env struct {
	app    *fiber.App
	uow    *fixtures.MemoryUoW
	ledger *ledgersvc.Service
	model  *fixtures.VisionModelStub
	userID uuid.UUID
	token  string
}

func setup(t *testing.T, balance int64) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uow := fixtures.NewMemoryUoW()

	u, err := user.New("trader", "trader@example.com", "s3cret-pass")
	require.NoError(t, err)
	uow.SeedUser(u)

	jwtCfg := &config.Jwt{Secret: "test-secret", Expiry: time.Hour}
	auth := authsvc.New(uow, jwtCfg, logger)
	token, err := auth.GenerateToken(u)
	require.NoError(t, err)

	ledger := ledgersvc.New(uow, logger)
	if balance > 0 {
		_, err = ledger.Credit(t.Context(), u.ID, balance, credit.TxPurchase, "evt_seed", nil)
		require.NoError(t, err)
	}

	embedder := &fixtures.EmbedderStub{Fallback: []float32{1, 0, 0}}
	model := &fixtures.VisionModelStub{Response: modelReply}
	svc := analysissvc.New(
		uow,
		ledger,
		knowledgesvc.New(uow, embedder, logger),
		model,
		&fixtures.CollectingBus{},
		analysissvc.Config{Cost: 1},
		logger,
	)

	app := fiber.New()
	Routes(app, svc, &config.App{Auth: &config.Auth{Jwt: jwtCfg}})
	return &env{app: app, uow: uow, ledger: ledger, model: model, userID: u.ID, token: token}
}

func (e *env) analyze(t *testing.T, input AnalyzeInput, authed bool) *http.Response {
	t.Helper()
	payload, err := json.Marshal(input)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func chartImage() string {
	return base64.StdEncoding.EncodeToString([]byte("fake-png-bytes"))
}

func TestAnalyze_HappyPath(t *testing.T) {
	e := setup(t, 5)

	resp := e.analyze(t, AnalyzeInput{
		Image:  chartImage(),
		Prompt: "Is this breakout worth entering?",
		Mode:   "OPPORTUNITY",
	}, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var envelope struct {
		Data AnalyzeResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "OPPORTUNITY", envelope.Data.Mode)
	assert.NotEmpty(t, envelope.Data.SessionID)
	require.NotNil(t, envelope.Data.Result.Score)
	assert.InDelta(t, 76, envelope.Data.Result.Score.OverallScore, 0.001)

	balance, err := e.ledger.GetBalance(t.Context(), e.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), balance)
}

func TestAnalyze_DataURLImage(t *testing.T) {
	e := setup(t, 5)

	resp := e.analyze(t, AnalyzeInput{
		Image:  "data:image/jpeg;base64," + chartImage(),
		Prompt: "Assess this chart",
	}, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte("fake-png-bytes"), e.model.LastImage)
}

func TestAnalyze_Unauthenticated(t *testing.T) {
	e := setup(t, 5)

	resp := e.analyze(t, AnalyzeInput{Image: chartImage(), Prompt: "hello"}, false)
	assert.NotEqual(t, fiber.StatusOK, resp.StatusCode)
	assert.Zero(t, e.model.Calls)
}

func TestAnalyze_InsufficientCreditsPaymentRequired(t *testing.T) {
	e := setup(t, 0)

	resp := e.analyze(t, AnalyzeInput{Image: chartImage(), Prompt: "hello"}, true)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
	assert.Zero(t, e.model.Calls)
}

func TestAnalyze_InvalidModeRejected(t *testing.T) {
	e := setup(t, 5)

	resp := e.analyze(t, AnalyzeInput{Image: chartImage(), Prompt: "hello", Mode: "WRONG"}, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, e.model.Calls)
}

func TestAnalyze_InvalidBase64Rejected(t *testing.T) {
	e := setup(t, 5)

	resp := e.analyze(t, AnalyzeInput{Image: "%%%not-base64%%%", Prompt: "hello"}, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, e.model.Calls)
}

func TestAnalyze_ForeignSessionNotFound(t *testing.T) {
	e := setup(t, 5)

	resp := e.analyze(t, AnalyzeInput{
		Image:     chartImage(),
		Prompt:    "hello",
		SessionID: uuid.NewString(),
	}, true)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Zero(t, e.model.Calls)
}

func TestListRecords_ReturnsSessionHistory(t *testing.T) {
	e := setup(t, 5)

	resp := e.analyze(t, AnalyzeInput{Image: chartImage(), Prompt: "first look"}, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var envelope struct {
		Data AnalyzeResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))

	req := httptest.NewRequest(
		http.MethodGet,
		"/analyze/sessions/"+envelope.Data.SessionID+"/records",
		nil,
	)
	req.Header.Set("Authorization", "Bearer "+e.token)
	listResp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var listEnvelope struct {
		Data []RecordDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listEnvelope))
	require.Len(t, listEnvelope.Data, 1)
	assert.Equal(t, "first look", listEnvelope.Data[0].Prompt)
}
