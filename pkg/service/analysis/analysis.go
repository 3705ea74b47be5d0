// Package analysis orchestrates one metered chart analysis: debit the
// ledger, retrieve knowledge context, call the vision model, recover a
// structured result and persist it. A debit whose analysis never produced a
// persisted record is always compensated with a refund.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/tradelens/pkg/domain"
	domainanalysis "github.com/amirasaad/tradelens/pkg/domain/analysis"
	"github.com/amirasaad/tradelens/pkg/domain/events"
	domainknowledge "github.com/amirasaad/tradelens/pkg/domain/knowledge"
	"github.com/amirasaad/tradelens/pkg/eventbus"
	"github.com/amirasaad/tradelens/pkg/jsonfix"
	"github.com/amirasaad/tradelens/pkg/prompt"
	"github.com/amirasaad/tradelens/pkg/provider"
	"github.com/amirasaad/tradelens/pkg/repository"
	"github.com/amirasaad/tradelens/pkg/service/knowledge"
	"github.com/amirasaad/tradelens/pkg/service/ledger"
	"github.com/google/uuid"
)

// Config tunes one analysis run.
type Config struct {
	// Cost is the credit price of one analysis.
	Cost int64
	// ModelTimeout bounds the vision-model call.
	ModelTimeout time.Duration
	// RetrievalTopK is how many knowledge entries augment the prompt.
	RetrievalTopK int
}

// Service runs metered chart analyses.
type Service struct {
	uow       repository.UnitOfWork
	ledger    *ledger.Service
	knowledge *knowledge.Service
	model     provider.VisionModel
	bus       eventbus.Bus
	cfg       Config
	logger    *slog.Logger
}

// New creates an analysis Service.
func New(
	uow repository.UnitOfWork,
	ledgerSvc *ledger.Service,
	knowledgeSvc *knowledge.Service,
	model provider.VisionModel,
	bus eventbus.Bus,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = 3
	}
	return &Service{
		uow:       uow,
		ledger:    ledgerSvc,
		knowledge: knowledgeSvc,
		model:     model,
		bus:       bus,
		cfg:       cfg,
		logger:    logger,
	}
}

// Request is one analysis call. A zero SessionID starts a new session;
// otherwise the session must exist and belong to the user.
type Request struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	Mode      domainanalysis.Mode
	Prompt    string
	Image     []byte
	MIMEType  string
	ImageRef  string
}

// Response is the outcome of a successful analysis.
type Response struct {
	SessionID uuid.UUID               `json:"sessionId"`
	RecordID  uuid.UUID               `json:"recordId"`
	Result    domainanalysis.Result   `json:"result"`
	Knowledge []domainknowledge.Match `json:"knowledge,omitempty"`
}

// EnsureSession resolves the request's session. Sessions of other users are
// reported as not found rather than forbidden, so session ids cannot be
// probed.
func (s *Service) EnsureSession(ctx context.Context, userID, sessionID uuid.UUID) (*domainanalysis.Session, error) {
	var session *domainanalysis.Session
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AnalysisSessionRepository()
		if err != nil {
			return err
		}
		if sessionID == uuid.Nil {
			now := time.Now().UTC()
			session = &domainanalysis.Session{
				ID:        uuid.New(),
				UserID:    userID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return repo.Create(ctx, session)
		}
		session, err = repo.Get(ctx, sessionID)
		if err != nil {
			return domain.ErrSessionNotFound
		}
		if session.UserID != userID {
			return domain.ErrSessionNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ListRecords returns the session's persisted analyses after verifying
// ownership.
func (s *Service) ListRecords(ctx context.Context, userID, sessionID uuid.UUID) ([]*domainanalysis.Record, error) {
	if _, err := s.EnsureSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	var records []*domainanalysis.Record
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AnalysisRecordRepository()
		if err != nil {
			return err
		}
		records, err = repo.ListBySession(ctx, sessionID)
		return err
	})
	return records, err
}

// Analyze runs one metered analysis. The debit happens up front; any
// failure between the debit and the persisted record refunds the credits
// before the error is returned. Model garbage is not a failure: the JSON
// recovery layer always yields a result, so a consumed credit always buys a
// response.
func (s *Service) Analyze(ctx context.Context, req Request) (*Response, error) {
	log := s.logger.With("operation", "analysis.Analyze", "user_id", req.UserID, "mode", req.Mode)

	session, err := s.EnsureSession(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.Debit(ctx, req.UserID, s.cfg.Cost, "chart analysis"); err != nil {
		return nil, err
	}

	resp, err := s.analyzeAfterDebit(ctx, session, req, log)
	if err != nil {
		s.refund(ctx, req.UserID, err.Error())
		return nil, err
	}

	if emitErr := s.bus.Emit(ctx, events.AnalysisCompleted{
		UserID:    req.UserID,
		SessionID: session.ID,
		Mode:      string(req.Mode),
		Timestamp: time.Now().UTC(),
	}); emitErr != nil {
		log.Warn("event emit failed", "error", emitErr)
	}
	return resp, nil
}

func (s *Service) analyzeAfterDebit(
	ctx context.Context,
	session *domainanalysis.Session,
	req Request,
	log *slog.Logger,
) (*Response, error) {
	// retrieval is best effort: a degraded corpus or embedder must not
	// block a paid analysis
	matches, err := s.knowledge.Retrieve(ctx, req.Prompt, "", s.cfg.RetrievalTopK)
	if err != nil {
		log.Warn("knowledge retrieval failed, proceeding without context", "error", err)
		matches = nil
	}

	modelReq := prompt.Build(req.Mode, req.Prompt, req.Image, req.MIMEType, prompt.FormatKnowledge(matches))

	modelCtx := ctx
	if s.cfg.ModelTimeout > 0 {
		var cancel context.CancelFunc
		modelCtx, cancel = context.WithTimeout(ctx, s.cfg.ModelTimeout)
		defer cancel()
	}
	raw, err := s.model.Generate(modelCtx, modelReq.Image, modelReq.MIMEType, modelReq.Instruction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamModel, err)
	}

	result := jsonfix.Recover(raw, req.Mode)

	record := &domainanalysis.Record{
		ID:        uuid.New(),
		SessionID: session.ID,
		Mode:      req.Mode,
		Prompt:    req.Prompt,
		ImageRef:  req.ImageRef,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		records, err := uow.AnalysisRecordRepository()
		if err != nil {
			return err
		}
		sessions, err := uow.AnalysisSessionRepository()
		if err != nil {
			return err
		}
		if err := records.Create(ctx, record); err != nil {
			return err
		}
		return sessions.Touch(ctx, session.ID, record.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	if fbErr := s.knowledge.RecordFeedback(ctx, req.UserID, req.Prompt, matches, true); fbErr != nil {
		log.Warn("retrieval feedback not recorded", "error", fbErr)
	}

	return &Response{
		SessionID: session.ID,
		RecordID:  record.ID,
		Result:    result,
		Knowledge: matches,
	}, nil
}

func (s *Service) refund(ctx context.Context, userID uuid.UUID, reason string) {
	// the refund must go through even when the request context is already
	// canceled, which is exactly the model-timeout case
	ctx = context.WithoutCancel(ctx)
	if _, err := s.ledger.Refund(ctx, userID, s.cfg.Cost, map[string]string{"reason": reason}); err != nil {
		// a failed refund is the one state we cannot repair inline
		s.logger.Error("refund failed after analysis error",
			"user_id", userID, "amount", s.cfg.Cost, "error", err)
		return
	}
	if err := s.bus.Emit(ctx, events.AnalysisRefunded{
		UserID: userID,
		Amount: s.cfg.Cost,
		Reason: reason,
	}); err != nil {
		s.logger.Warn("event emit failed", "error", err)
	}
}
