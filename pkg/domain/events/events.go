// Package events defines the domain events emitted by the ledger and
// reconciliation flows. Handlers are wired on the event bus at startup.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every domain event.
type Event interface {
	Type() string
}

// CreditPurchaseSettled is emitted after a checkout-driven credit purchase
// has been applied to the ledger.
type CreditPurchaseSettled struct {
	EventID   string
	UserID    uuid.UUID
	Credits   int64
	AmountEUR int64
	Timestamp time.Time
}

// SubscriptionActivated is emitted when a new subscription checkout settles.
type SubscriptionActivated struct {
	UserID         uuid.UUID
	SubscriptionID string
	PriceID        string
	PeriodEnd      time.Time
}

// SubscriptionRenewed is emitted when a renewal invoice settles and the
// user's price id and period end have been refreshed.
type SubscriptionRenewed struct {
	SubscriptionID string
	PriceID        string
	PeriodEnd      time.Time
}

// AnalysisCompleted is emitted after an analysis record has been persisted.
type AnalysisCompleted struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	Mode      string
	Timestamp time.Time
}

// AnalysisRefunded is emitted when a failed analysis triggers a
// compensating ledger refund.
type AnalysisRefunded struct {
	UserID uuid.UUID
	Amount int64
	Reason string
}

func (e CreditPurchaseSettled) Type() string { return "CreditPurchaseSettled" }
func (e SubscriptionActivated) Type() string { return "SubscriptionActivated" }
func (e SubscriptionRenewed) Type() string   { return "SubscriptionRenewed" }
func (e AnalysisCompleted) Type() string     { return "AnalysisCompleted" }
func (e AnalysisRefunded) Type() string      { return "AnalysisRefunded" }
