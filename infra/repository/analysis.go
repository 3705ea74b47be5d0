package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amirasaad/tradelens/pkg/domain"
	"github.com/amirasaad/tradelens/pkg/domain/analysis"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type analysisSessionRepository struct {
	db *gorm.DB
}

func (r *analysisSessionRepository) Create(ctx context.Context, s *analysis.Session) error {
	model := AnalysisSession{ID: s.ID, UserID: s.UserID}
	model.CreatedAt = s.CreatedAt
	model.UpdatedAt = s.UpdatedAt
	return mapGormError(r.db.WithContext(ctx).Create(&model).Error)
}

func (r *analysisSessionRepository) Get(ctx context.Context, id uuid.UUID) (*analysis.Session, error) {
	var model AnalysisSession
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, mapGormError(err)
	}
	return &analysis.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func (r *analysisSessionRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&AnalysisSession{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at)
	if res.Error != nil {
		return mapGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type analysisRecordRepository struct {
	db *gorm.DB
}

func (r *analysisRecordRepository) Create(ctx context.Context, rec *analysis.Record) error {
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return err
	}
	model := AnalysisRecord{
		ID:        rec.ID,
		SessionID: rec.SessionID,
		Mode:      string(rec.Mode),
		Prompt:    rec.Prompt,
		ImageRef:  rec.ImageRef,
		Result:    result,
	}
	model.CreatedAt = rec.CreatedAt
	return mapGormError(r.db.WithContext(ctx).Create(&model).Error)
}

func (r *analysisRecordRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*analysis.Record, error) {
	var models []AnalysisRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	out := make([]*analysis.Record, 0, len(models))
	for i := range models {
		rec := &analysis.Record{
			ID:        models[i].ID,
			SessionID: models[i].SessionID,
			Mode:      analysis.Mode(models[i].Mode),
			Prompt:    models[i].Prompt,
			ImageRef:  models[i].ImageRef,
			CreatedAt: models[i].CreatedAt,
		}
		if len(models[i].Result) > 0 {
			if err := json.Unmarshal(models[i].Result, &rec.Result); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
