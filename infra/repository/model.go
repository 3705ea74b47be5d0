package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a user record in the database.
type User struct {
	gorm.Model
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	Username string    `gorm:"uniqueIndex;not null;size:50;" validate:"required,min=3,max=50"`
	Email    string    `gorm:"uniqueIndex;not null;size:255;" validate:"required,email"`
	Password string    `gorm:"not null;" validate:"required,min=6,max=72"`

	StripeCustomerID     string     `gorm:"size:255;index"`
	StripeSubscriptionID string     `gorm:"size:255;index"`
	StripePriceID        string     `gorm:"size:255"`
	StripePeriodEnd      *time.Time `gorm:""`
}

// CreditAccount represents a per-user credit balance record.
type CreditAccount struct {
	gorm.Model
	ID      uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID  uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Balance int64     `gorm:"not null;default:0"`
}

// CreditTransaction represents one row of the append-only credit ledger.
// DedupKey carries the payment-provider event id; the unique index is the
// database-level idempotency guarantee.
type CreditTransaction struct {
	gorm.Model
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	AccountID uuid.UUID `gorm:"type:uuid;index;not null"`
	Amount    int64     `gorm:"not null"`
	Type      string    `gorm:"type:varchar(32);not null"`
	Status    string    `gorm:"type:varchar(16);not null"`
	DedupKey  *string   `gorm:"size:255;uniqueIndex"`
	Metadata  []byte    `gorm:"type:jsonb"`
}

// AnalysisSession groups analysis records for one user conversation.
type AnalysisSession struct {
	gorm.Model
	ID     uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null"`
}

// AnalysisRecord represents one persisted analysis call. Result holds the
// full typed outcome as JSON.
type AnalysisRecord struct {
	gorm.Model
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null"`
	Mode      string    `gorm:"type:varchar(16);not null"`
	Prompt    string    `gorm:"type:text"`
	ImageRef  string    `gorm:"size:512"`
	Result    []byte    `gorm:"type:jsonb"`
}

// KnowledgeEntry represents one piece of the trading-knowledge corpus with
// its precomputed embedding stored as JSON.
type KnowledgeEntry struct {
	gorm.Model
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Category  string    `gorm:"size:64;index;not null"`
	Content   string    `gorm:"type:text;not null"`
	Embedding []byte    `gorm:"type:jsonb"`
}

// RetrievalFeedback links a query to the knowledge entries retrieved for it.
type RetrievalFeedback struct {
	gorm.Model
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID       uuid.UUID `gorm:"type:uuid;index;not null"`
	Query        string    `gorm:"type:text"`
	KnowledgeIDs []byte    `gorm:"type:jsonb"`
	Relevant     bool      `gorm:"not null;default:true"`
}

// Models lists every table for migration.
func Models() []any {
	return []any{
		&User{},
		&CreditAccount{},
		&CreditTransaction{},
		&AnalysisSession{},
		&AnalysisRecord{},
		&KnowledgeEntry{},
		&RetrievalFeedback{},
	}
}

// Migrate runs the schema auto migration for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
