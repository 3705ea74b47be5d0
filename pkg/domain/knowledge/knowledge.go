// Package knowledge models the trading-knowledge corpus used for retrieval
// augmented analysis.
package knowledge

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one piece of trading knowledge with its precomputed embedding.
type Entry struct {
	ID        uuid.UUID
	Category  string
	Content   string
	Embedding []float32
	CreatedAt time.Time
}

// Match is a retrieval hit: an entry plus its similarity to the query,
// in [0, 1] for unit-normalized embeddings.
type Match struct {
	ID         uuid.UUID `json:"id"`
	Category   string    `json:"category"`
	Content    string    `json:"content"`
	Similarity float64   `json:"similarity"`
}

// Feedback links a query to the knowledge entries that were retrieved for it,
// recorded after each analysis so retrieval quality can be tuned later.
type Feedback struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Query        string
	KnowledgeIDs []uuid.UUID
	Relevant     bool
	CreatedAt    time.Time
}
