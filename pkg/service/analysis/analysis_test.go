package analysis_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/tradelens/internal/fixtures"
	"github.com/amirasaad/tradelens/pkg/domain"
	domainanalysis "github.com/amirasaad/tradelens/pkg/domain/analysis"
	"github.com/amirasaad/tradelens/pkg/domain/credit"
	"github.com/amirasaad/tradelens/pkg/domain/events"
	"github.com/amirasaad/tradelens/pkg/service/analysis"
	"github.com/amirasaad/tradelens/pkg/service/knowledge"
	"github.com/amirasaad/tradelens/pkg/service/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	svc    *analysis.Service
	ledger *ledger.Service
	uow    *fixtures.MemoryUoW
	model  *fixtures.VisionModelStub
	bus    *fixtures.CollectingBus
	userID uuid.UUID
}

func setup(t *testing.T, model *fixtures.VisionModelStub, balance int64) *env {
	t.Helper()
	uow := fixtures.NewMemoryUoW()
	logger := slog.Default()
	ledgerSvc := ledger.New(uow, logger)
	knowledgeSvc := knowledge.New(uow, &fixtures.EmbedderStub{Fallback: []float32{1, 0}}, logger)
	bus := &fixtures.CollectingBus{}
	svc := analysis.New(uow, ledgerSvc, knowledgeSvc, model, bus, analysis.Config{
		Cost:          1,
		ModelTimeout:  time.Second,
		RetrievalTopK: 3,
	}, logger)

	userID := uuid.New()
	if balance > 0 {
		_, err := ledgerSvc.Credit(context.Background(), userID, balance, credit.TxPurchase, "evt_seed", nil)
		require.NoError(t, err)
	}
	return &env{svc: svc, ledger: ledgerSvc, uow: uow, model: model, bus: bus, userID: userID}
}

const opportunityReply = `Here is my read of the chart.
{"technicalScore": 85, "marketContextScore": 70, "riskScore": 90, "overallScore": 83, "confidence": 75, "explanation": "Clean breakout with volume.", "timeframe": {"recommended": true, "duration": "3-5 days", "reason": "momentum window"}}`

func TestAnalyze_HappyPath(t *testing.T) {
	e := setup(t, &fixtures.VisionModelStub{Response: opportunityReply}, 5)
	e.uow.SeedKnowledge("patterns", "Breakouts need volume.", []float32{1, 0})

	resp, err := e.svc.Analyze(context.Background(), analysis.Request{
		UserID:   e.userID,
		Mode:     domainanalysis.ModeOpportunity,
		Prompt:   "Is this breakout valid?",
		Image:    []byte{0x89, 0x50},
		MIMEType: "image/png",
		ImageRef: "charts/abc.png",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Result.Score)
	assert.InDelta(t, 85, resp.Result.Score.TechnicalScore, 1e-9)
	assert.Equal(t, opportunityReply, resp.Result.RawText)
	assert.NotEqual(t, uuid.Nil, resp.SessionID)

	// one credit consumed
	balance, err := e.ledger.GetBalance(context.Background(), e.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, balance)

	// record persisted against the new session
	records := e.uow.AnalysisRecords()
	require.Len(t, records, 1)
	assert.Equal(t, resp.SessionID, records[0].SessionID)
	assert.Equal(t, "charts/abc.png", records[0].ImageRef)

	// knowledge context reached the model
	assert.Contains(t, e.model.LastInstruction, "patterns: Breakouts need volume.")

	// retrieval feedback recorded
	require.Len(t, e.uow.Feedback(), 1)
	assert.Equal(t, e.userID, e.uow.Feedback()[0].UserID)

	// completion event emitted
	emitted := e.bus.Events()
	require.Len(t, emitted, 1)
	done, ok := emitted[0].(events.AnalysisCompleted)
	require.True(t, ok)
	assert.Equal(t, resp.SessionID, done.SessionID)
}

func TestAnalyze_InsufficientCreditsSkipsModel(t *testing.T) {
	e := setup(t, &fixtures.VisionModelStub{Response: opportunityReply}, 0)

	_, err := e.svc.Analyze(context.Background(), analysis.Request{
		UserID: e.userID,
		Mode:   domainanalysis.ModeOpportunity,
		Prompt: "p",
	})
	require.ErrorIs(t, err, credit.ErrInsufficientCredits)
	assert.Zero(t, e.model.Calls, "model must not be called without a debit")
	assert.Empty(t, e.uow.AnalysisRecords())
}

func TestAnalyze_ModelFailureRefunds(t *testing.T) {
	e := setup(t, &fixtures.VisionModelStub{Err: errors.New("upstream 503")}, 5)

	_, err := e.svc.Analyze(context.Background(), analysis.Request{
		UserID: e.userID,
		Mode:   domainanalysis.ModeOpportunity,
		Prompt: "p",
	})
	require.ErrorIs(t, err, domain.ErrUpstreamModel)

	balance, err := e.ledger.GetBalance(context.Background(), e.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, balance, "failed analysis must be refunded")

	history, err := e.ledger.ListHistory(context.Background(), e.userID)
	require.NoError(t, err)
	require.Len(t, history, 3, "debit and refund both stay in the ledger")
	assert.Equal(t, credit.TxRefund, history[0].Type)
	assert.Equal(t, credit.TxAnalysisDebit, history[1].Type)

	emitted := e.bus.Events()
	require.Len(t, emitted, 1)
	refunded, ok := emitted[0].(events.AnalysisRefunded)
	require.True(t, ok)
	assert.EqualValues(t, 1, refunded.Amount)
}

func TestAnalyze_ModelTimeoutRefunds(t *testing.T) {
	e := setup(t, &fixtures.VisionModelStub{BlockUntilCancel: true}, 3)

	_, err := e.svc.Analyze(context.Background(), analysis.Request{
		UserID: e.userID,
		Mode:   domainanalysis.ModeGuidance,
		Prompt: "p",
	})
	require.ErrorIs(t, err, domain.ErrUpstreamModel)

	balance, err := e.ledger.GetBalance(context.Background(), e.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, balance)
}

func TestAnalyze_GarbageModelOutputStillCharges(t *testing.T) {
	e := setup(t, &fixtures.VisionModelStub{Response: "I cannot analyze this image, sorry."}, 5)

	resp, err := e.svc.Analyze(context.Background(), analysis.Request{
		UserID: e.userID,
		Mode:   domainanalysis.ModeOpportunity,
		Prompt: "p",
	})
	require.NoError(t, err, "unparseable output is recovered, not failed")
	require.NotNil(t, resp.Result.Score)
	assert.Zero(t, resp.Result.Score.OverallScore)
	assert.Contains(t, resp.Result.Score.Explanation, "could not be interpreted")

	balance, err := e.ledger.GetBalance(context.Background(), e.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, balance, "a delivered fallback result is still a charged analysis")
}

func TestAnalyze_ExistingSessionReused(t *testing.T) {
	e := setup(t, &fixtures.VisionModelStub{Response: opportunityReply}, 5)
	session := &domainanalysis.Session{ID: uuid.New(), UserID: e.userID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	e.uow.SeedSession(session)

	resp, err := e.svc.Analyze(context.Background(), analysis.Request{
		UserID:    e.userID,
		SessionID: session.ID,
		Mode:      domainanalysis.ModeOpportunity,
		Prompt:    "p",
	})
	require.NoError(t, err)
	assert.Equal(t, session.ID, resp.SessionID)
}

func TestAnalyze_ForeignSessionNotFound(t *testing.T) {
	e := setup(t, &fixtures.VisionModelStub{Response: opportunityReply}, 5)
	other := &domainanalysis.Session{ID: uuid.New(), UserID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	e.uow.SeedSession(other)

	_, err := e.svc.Analyze(context.Background(), analysis.Request{
		UserID:    e.userID,
		SessionID: other.ID,
		Mode:      domainanalysis.ModeOpportunity,
		Prompt:    "p",
	})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Zero(t, e.model.Calls)

	balance, err := e.ledger.GetBalance(context.Background(), e.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, balance, "no debit before the session check passes")
}

func TestListRecords(t *testing.T) {
	e := setup(t, &fixtures.VisionModelStub{Response: opportunityReply}, 5)

	resp, err := e.svc.Analyze(context.Background(), analysis.Request{
		UserID: e.userID,
		Mode:   domainanalysis.ModeOpportunity,
		Prompt: "p",
	})
	require.NoError(t, err)

	records, err := e.svc.ListRecords(context.Background(), e.userID, resp.SessionID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, resp.RecordID, records[0].ID)

	_, err = e.svc.ListRecords(context.Background(), uuid.New(), resp.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
