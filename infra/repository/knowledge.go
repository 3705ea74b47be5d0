package repository

import (
	"context"
	"encoding/json"

	"github.com/amirasaad/tradelens/pkg/domain/knowledge"
	"gorm.io/gorm"
)

type knowledgeRepository struct {
	db *gorm.DB
}

func (r *knowledgeRepository) Add(ctx context.Context, e *knowledge.Entry) error {
	embedding, err := json.Marshal(e.Embedding)
	if err != nil {
		return err
	}
	model := KnowledgeEntry{
		ID:        e.ID,
		Category:  e.Category,
		Content:   e.Content,
		Embedding: embedding,
	}
	model.CreatedAt = e.CreatedAt
	return mapGormError(r.db.WithContext(ctx).Create(&model).Error)
}

func (r *knowledgeRepository) List(ctx context.Context, category string) ([]*knowledge.Entry, error) {
	q := r.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var models []KnowledgeEntry
	if err := q.Find(&models).Error; err != nil {
		return nil, mapGormError(err)
	}
	out := make([]*knowledge.Entry, 0, len(models))
	for i := range models {
		e := &knowledge.Entry{
			ID:        models[i].ID,
			Category:  models[i].Category,
			Content:   models[i].Content,
			CreatedAt: models[i].CreatedAt,
		}
		if len(models[i].Embedding) > 0 {
			if err := json.Unmarshal(models[i].Embedding, &e.Embedding); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *knowledgeRepository) CreateFeedback(ctx context.Context, f *knowledge.Feedback) error {
	ids, err := json.Marshal(f.KnowledgeIDs)
	if err != nil {
		return err
	}
	model := RetrievalFeedback{
		ID:           f.ID,
		UserID:       f.UserID,
		Query:        f.Query,
		KnowledgeIDs: ids,
		Relevant:     f.Relevant,
	}
	model.CreatedAt = f.CreatedAt
	return mapGormError(r.db.WithContext(ctx).Create(&model).Error)
}
