// Package knowledge implements retrieval over the trading-knowledge corpus.
// Queries are embedded once and ranked against stored entry embeddings by
// cosine similarity.
package knowledge

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/amirasaad/tradelens/pkg/domain/knowledge"
	"github.com/amirasaad/tradelens/pkg/provider"
	"github.com/amirasaad/tradelens/pkg/repository"
	"github.com/google/uuid"
)

// Service embeds queries and ranks corpus entries for prompt augmentation.
type Service struct {
	uow      repository.UnitOfWork
	embedder provider.Embedder
	logger   *slog.Logger
}

// New creates a knowledge Service.
func New(uow repository.UnitOfWork, embedder provider.Embedder, logger *slog.Logger) *Service {
	return &Service{uow: uow, embedder: embedder, logger: logger}
}

// Add embeds content and stores it as a corpus entry.
func (s *Service) Add(ctx context.Context, category, content string) (*knowledge.Entry, error) {
	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, err
	}
	entry := &knowledge.Entry{
		ID:        uuid.New(),
		Category:  strings.ToLower(strings.TrimSpace(category)),
		Content:   content,
		Embedding: vec,
		CreatedAt: time.Now().UTC(),
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.KnowledgeRepository()
		if err != nil {
			return err
		}
		return repo.Add(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Retrieve returns the topK corpus entries most similar to the query,
// highest similarity first. A non-empty category restricts the corpus to
// that category. Ties keep insertion order. An empty corpus yields an
// empty result, not an error.
func (s *Service) Retrieve(ctx context.Context, query, category string, topK int) ([]knowledge.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	var entries []*knowledge.Entry
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.KnowledgeRepository()
		if err != nil {
			return err
		}
		entries, err = repo.List(ctx, strings.ToLower(strings.TrimSpace(category)))
		return err
	})
	if err != nil {
		return nil, err
	}

	matches := make([]knowledge.Match, 0, len(entries))
	for _, e := range entries {
		matches = append(matches, knowledge.Match{
			ID:         e.ID,
			Category:   e.Category,
			Content:    e.Content,
			Similarity: cosine(queryVec, e.Embedding),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	s.logger.Debug("knowledge retrieved", "query_len", len(query), "matches", len(matches))
	return matches, nil
}

// RecordFeedback links a query to the entries retrieved for it. Feedback is
// advisory; failures here never affect the analysis that produced it.
func (s *Service) RecordFeedback(ctx context.Context, userID uuid.UUID, query string, matches []knowledge.Match, relevant bool) error {
	if len(matches) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.KnowledgeRepository()
		if err != nil {
			return err
		}
		return repo.CreateFeedback(ctx, &knowledge.Feedback{
			ID:           uuid.New(),
			UserID:       userID,
			Query:        query,
			KnowledgeIDs: ids,
			Relevant:     relevant,
			CreatedAt:    time.Now().UTC(),
		})
	})
}

// cosine returns the cosine similarity of two vectors. Mismatched lengths
// and zero vectors score 0 so malformed embeddings rank last instead of
// failing retrieval.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
